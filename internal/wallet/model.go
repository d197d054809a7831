package wallet

import "time"

// Source describes how a signer was unlocked.
type Source string

const (
	SourceKeystore   Source = "keystore"
	SourcePrivateKey Source = "private_key"
)

// Connection is the public view of a user's connected signer.
type Connection struct {
	UserID      string
	Address     string
	Source      Source
	ConnectedAt time.Time
}

// ConnectInput carries either an encrypted keystore with its passphrase or a raw hex key.
type ConnectInput struct {
	Keystore   string
	Passphrase string
	PrivateKey string
}
