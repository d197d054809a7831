// Package explorer builds block-explorer links for ledger transactions.
package explorer

import "strings"

// TxURL returns the explorer page for hash under base, e.g.
// https://sepolia.etherscan.io/tx/0xabc. An empty hash yields "".
func TxURL(base, hash string) string {
	if hash == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/tx/" + hash
}

// AddressURL returns the explorer page for a wallet address.
func AddressURL(base, address string) string {
	if address == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/address/" + address
}
