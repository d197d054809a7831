package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payphone/payphone/internal/logging"
)

// maxAmount is the first value the NUMERIC(18,2) amount column cannot hold.
var maxAmount = decimal.New(1, 16)

// NewRecord is the input to Service.Create. ID may be preset by the caller.
type NewRecord struct {
	ID             string
	UserID         string
	SenderPhone    string
	ReceiverPhone  string
	ReceiverWallet string
	Amount         decimal.Decimal
	Unit           string
	Status         Status
	TxHash         string
}

// Service records payment attempts.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a history service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logging.Component(logger, "history"), now: time.Now}
}

// Create inserts a record. Amount is kept to two decimal places and Status
// defaults to pending.
func (s *Service) Create(ctx context.Context, in NewRecord) (Record, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return Record{}, ErrUnknownUser
	}
	if in.ReceiverPhone == "" {
		return Record{}, fmt.Errorf("%w: receiver phone is required", ErrInvalidRecord)
	}
	if in.Amount.IsNegative() {
		return Record{}, fmt.Errorf("%w: amount must not be negative", ErrInvalidRecord)
	}
	if in.Amount.Round(2).GreaterThanOrEqual(maxAmount) {
		return Record{}, fmt.Errorf("%w: amount %s exceeds 16 integer digits", ErrInvalidRecord, in.Amount)
	}
	status := in.Status
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return Record{}, fmt.Errorf("%w: status %q", ErrInvalidRecord, status)
	}
	unit := in.Unit
	if unit == "" {
		unit = "ether"
	}
	id := in.ID
	if id == "" {
		id = uuid.New().String()
	}

	record := Record{
		ID:             id,
		UserID:         in.UserID,
		SenderPhone:    in.SenderPhone,
		ReceiverPhone:  in.ReceiverPhone,
		ReceiverWallet: in.ReceiverWallet,
		Amount:         in.Amount.Round(2),
		Unit:           unit,
		Status:         status,
		TxHash:         in.TxHash,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return Record{}, err
	}
	s.logger.Info("transaction recorded", "record_id", record.ID, "user_id", record.UserID, "state", string(record.Status))
	return record, nil
}

// List returns the user's records, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Record, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get returns a record by id without an ownership check.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.repo.Get(ctx, id)
}

// GetOwned returns a record only when it belongs to userID.
func (s *Service) GetOwned(ctx context.Context, userID, id string) (Record, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if record.UserID != userID {
		return Record{}, ErrNotOwner
	}
	return record, nil
}

// Update changes status and/or tx hash.
func (s *Service) Update(ctx context.Context, id string, update Update) (Record, error) {
	if update.Status != nil && !update.Status.Valid() {
		return Record{}, fmt.Errorf("%w: status %q", ErrInvalidRecord, *update.Status)
	}
	record, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return Record{}, err
	}
	s.logger.Info("transaction updated", "record_id", id, "state", string(record.Status), "tx_hash", record.TxHash)
	return record, nil
}

// DeleteByUser removes every record of userID.
func (s *Service) DeleteByUser(ctx context.Context, userID string) error {
	return s.repo.DeleteByUser(ctx, userID)
}
