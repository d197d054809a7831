// Package history stores the record of every payment attempt.
package history

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a TransactionRecord.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusError:
		return true
	}
	return false
}

var (
	// ErrRecordNotFound is returned when no record matches.
	ErrRecordNotFound = errors.New("transaction record not found")
	// ErrUnknownUser is returned when the record references a missing user.
	ErrUnknownUser = errors.New("unknown user")
	// ErrNotOwner is returned when a user reads another user's record.
	ErrNotOwner = errors.New("transaction belongs to another user")
	// ErrInvalidRecord is returned when input fails validation.
	ErrInvalidRecord = errors.New("invalid transaction record")
)

// Record is one persisted payment attempt.
type Record struct {
	ID             string
	UserID         string
	SenderPhone    string
	ReceiverPhone  string
	ReceiverWallet string
	Amount         decimal.Decimal
	Unit           string
	Status         Status
	TxHash         string
	CreatedAt      time.Time
}

// Update is a partial change; nil fields are left unchanged.
type Update struct {
	Status *Status
	TxHash *string
}

func (u Update) apply(r Record) Record {
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.TxHash != nil {
		r.TxHash = *u.TxHash
	}
	return r
}
