package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	readTimeout         = 4 * time.Second
	defaultPollInterval = 5 * time.Second
)

// Backend is the slice of an Ethereum JSON-RPC client the ledger needs.
// *ethclient.Client satisfies it.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// EthereumLedger talks to the registry contract through a JSON-RPC node.
type EthereumLedger struct {
	backend      Backend
	contract     common.Address
	chainID      *big.Int
	abi          abi.ABI
	pollInterval time.Duration
}

// NewEthereumLedger binds the registry contract at address on chainID.
func NewEthereumLedger(backend Backend, address string, chainID int64, pollInterval time.Duration) (*EthereumLedger, error) {
	if backend == nil {
		return nil, fmt.Errorf("ethereum backend is required")
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address %q", address)
	}
	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("parse registry abi: %w", err)
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &EthereumLedger{
		backend:      backend,
		contract:     common.HexToAddress(address),
		chainID:      big.NewInt(chainID),
		abi:          parsed,
		pollInterval: pollInterval,
	}, nil
}

// WalletOf reads phonenumberToAddress(phoneID).
func (l *EthereumLedger) WalletOf(ctx context.Context, phoneID *big.Int) (common.Address, error) {
	data, err := l.abi.Pack(methodWalletOf, phoneID)
	if err != nil {
		return common.Address{}, err
	}

	timeout, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	out, err := l.backend.CallContract(timeout, ethereum.CallMsg{To: &l.contract, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("call %s: %w", methodWalletOf, err)
	}
	values, err := l.abi.Unpack(methodWalletOf, out)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack %s: %w", methodWalletOf, err)
	}
	if len(values) != 1 {
		return common.Address{}, fmt.Errorf("unpack %s: expected 1 value, got %d", methodWalletOf, len(values))
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unpack %s: unexpected type %T", methodWalletOf, values[0])
	}
	return addr, nil
}

// SendToPhone submits sendMoneyToPhonenumber(phoneID) carrying wei.
func (l *EthereumLedger) SendToPhone(ctx context.Context, signer Signer, phoneID, wei *big.Int) (string, error) {
	if wei == nil || wei.Sign() <= 0 {
		return "", fmt.Errorf("%w: value must be positive", ErrSubmission)
	}
	return l.transact(ctx, signer, wei, methodSendToPhone, phoneID)
}

// RegisterPhone submits register(phoneID) from the signer's account.
func (l *EthereumLedger) RegisterPhone(ctx context.Context, signer Signer, phoneID *big.Int) (string, error) {
	return l.transact(ctx, signer, big.NewInt(0), methodRegisterPhone, phoneID)
}

func (l *EthereumLedger) transact(ctx context.Context, signer Signer, value *big.Int, method string, args ...interface{}) (string, error) {
	if signer == nil {
		return "", fmt.Errorf("%w: no signer", ErrSubmission)
	}
	data, err := l.abi.Pack(method, args...)
	if err != nil {
		return "", fmt.Errorf("%w: pack %s: %w", ErrSubmission, method, err)
	}
	from := signer.Address()

	nonce, err := l.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("%w: nonce: %w", ErrSubmission, err)
	}
	tip, err := l.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: gas tip: %w", ErrSubmission, err)
	}
	price, err := l.backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: gas price: %w", ErrSubmission, err)
	}
	gas, err := l.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &l.contract,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return "", fmt.Errorf("%w: estimate gas: %w", ErrSubmission, err)
	}
	// 20% headroom over the estimate.
	gas += gas / 5

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   l.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: new(big.Int).Add(price, tip),
		Gas:       gas,
		To:        &l.contract,
		Value:     value,
		Data:      data,
	})

	signed, err := signer.SignTx(tx, l.chainID)
	if err != nil {
		return "", fmt.Errorf("%w: sign: %w", ErrSubmission, err)
	}
	if err := l.backend.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("%w: broadcast: %w", ErrSubmission, err)
	}
	return signed.Hash().Hex(), nil
}

// WaitConfirmed polls for the receipt of txHash until it shows up or ctx ends.
// Transient RPC errors are retried on the next tick.
func (l *EthereumLedger) WaitConfirmed(ctx context.Context, txHash string) error {
	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		receipt, err := l.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status == types.ReceiptStatusSuccessful {
				return nil
			}
			return fmt.Errorf("%w: %s reverted", ErrRejected, txHash)
		case err != nil && !errors.Is(err, ethereum.NotFound):
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("%w (last rpc error: %v)", ctx.Err(), lastErr)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
