// Package notification delivers user-facing status messages about payments
// and registrations.
package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	// KindPaymentPending is the optimistic toast shown shortly after a send.
	KindPaymentPending = "payment_pending"
	// KindPaymentConfirmed reports a payment the ledger accepted.
	KindPaymentConfirmed = "payment_confirmed"
	// KindPaymentFailed reports a payment the ledger rejected or that never confirmed.
	KindPaymentFailed = "payment_failed"
	// KindPhoneRegistered reports a confirmed phone registration.
	KindPhoneRegistered = "phone_registered"
)

// Message describes a notification payload.
type Message struct {
	Kind      string    `json:"kind"`
	UserID    string    `json:"user_id"`
	Body      string    `json:"body"`
	TxHash    string    `json:"tx_hash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// Inbox returns the most recent messages for a user, newest first.
type Inbox interface {
	Recent(ctx context.Context, userID string, limit int) ([]Message, error)
}

// LoggerNotifier writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "user_id", message.UserID, "body", message.Body, "tx_hash", message.TxHash)
	return nil
}

type fanout []Notifier

// Fanout sends every message to each notifier and joins their errors.
func Fanout(notifiers ...Notifier) Notifier {
	return fanout(notifiers)
}

func (f fanout) Send(ctx context.Context, message Message) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
