package payments

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/payphone/payphone/internal/history"
	"github.com/payphone/payphone/internal/logging"
	"github.com/payphone/payphone/internal/notification"
)

// HistoryRecorder persists the authoritative outcome of each attempt. A
// record is created when an attempt starts sending; attempts that fail
// validation leave no record.
type HistoryRecorder struct {
	history *history.Service
	logger  *slog.Logger
}

// NewHistoryRecorder builds a recorder over the history service.
func NewHistoryRecorder(svc *history.Service, logger *slog.Logger) *HistoryRecorder {
	return &HistoryRecorder{history: svc, logger: logging.Component(logger, "payments.history")}
}

// Observe implements Observer.
func (r *HistoryRecorder) Observe(ctx context.Context, ev Event) {
	a := ev.Attempt
	switch {
	case ev.From == StateValidating && ev.To == StateSending:
		if _, err := r.history.Create(ctx, history.NewRecord{
			ID:             a.ID,
			UserID:         a.UserID,
			SenderPhone:    a.SenderPhone,
			ReceiverPhone:  a.ReceiverPhone,
			ReceiverWallet: a.ReceiverWallet,
			Amount:         etherAmount(a.Wei),
			Unit:           UnitEther,
			Status:         history.StatusPending,
		}); err != nil {
			r.logger.Error("create transaction record", "record_id", a.ID, "error", err)
		}
	case ev.From == StateSending && ev.To == StateSending:
		r.update(ctx, a.ID, history.Update{TxHash: &a.TxHash})
	case ev.From == StateSending && ev.To == StateSuccess:
		status := history.StatusSuccess
		r.update(ctx, a.ID, history.Update{Status: &status, TxHash: &a.TxHash})
	case ev.From == StateSending && ev.To == StateError:
		status := history.StatusError
		r.update(ctx, a.ID, history.Update{Status: &status})
	}
}

// etherAmount renders wei as ether rounded to cents, the precision of the
// transactions table, whatever unit the payment was entered in.
func etherAmount(wei string) decimal.Decimal {
	v, ok := new(big.Int).SetString(wei, 10)
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -etherDecimals).Round(2)
}

func (r *HistoryRecorder) update(ctx context.Context, id string, update history.Update) {
	if _, err := r.history.Update(ctx, id, update); err != nil {
		r.logger.Error("update transaction record", "record_id", id, "error", err)
	}
}

// Messages posted by OptimisticNotifier.
const (
	MessageSent      = "Payment sent successfully!"
	MessageConfirmed = "Payment confirmed on the ledger."
	MessageFailed    = "Payment failed: "
)

type toast struct {
	txHash string
	fired  bool
	queued []notification.Message
}

// OptimisticNotifier shows the "sent" toast a fixed delay after an attempt
// starts sending, independent of confirmation, then posts the reconciled
// outcome. The reconciled message is never delivered before the toast.
type OptimisticNotifier struct {
	notifier notification.Notifier
	delay    time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	toasts map[string]*toast
}

// NewOptimisticNotifier builds the notifier.
func NewOptimisticNotifier(notifier notification.Notifier, delay time.Duration, logger *slog.Logger) *OptimisticNotifier {
	return &OptimisticNotifier{
		notifier: notifier,
		delay:    delay,
		logger:   logging.Component(logger, "payments.optimistic"),
		toasts:   make(map[string]*toast),
	}
}

// Observe implements Observer.
func (o *OptimisticNotifier) Observe(ctx context.Context, ev Event) {
	a := ev.Attempt
	switch {
	case ev.From == StateValidating && ev.To == StateSending:
		o.mu.Lock()
		o.toasts[a.ID] = &toast{}
		o.mu.Unlock()
		detached := context.WithoutCancel(ctx)
		time.AfterFunc(o.delay, func() { o.fire(detached, a) })
	case ev.From == StateSending && ev.To == StateSending:
		o.mu.Lock()
		if t, ok := o.toasts[a.ID]; ok {
			t.txHash = a.TxHash
		}
		o.mu.Unlock()
	case ev.From == StateSending && ev.To == StateSuccess:
		o.reconcile(ctx, a.ID, notification.Message{
			Kind:   notification.KindPaymentConfirmed,
			UserID: a.UserID,
			Body:   MessageConfirmed,
			TxHash: a.TxHash,
		})
	case ev.From == StateSending && ev.To == StateError:
		body := MessageFailed
		if a.Err != nil {
			body += a.Err.Error()
		}
		o.reconcile(ctx, a.ID, notification.Message{
			Kind:   notification.KindPaymentFailed,
			UserID: a.UserID,
			Body:   body,
			TxHash: a.TxHash,
		})
	}
}

func (o *OptimisticNotifier) fire(ctx context.Context, a Attempt) {
	o.mu.Lock()
	txHash := a.TxHash
	if t, ok := o.toasts[a.ID]; ok && t.txHash != "" {
		txHash = t.txHash
	}
	o.mu.Unlock()
	o.send(ctx, notification.Message{Kind: notification.KindPaymentPending, UserID: a.UserID, Body: MessageSent, TxHash: txHash})

	o.mu.Lock()
	t, ok := o.toasts[a.ID]
	var queued []notification.Message
	if ok {
		t.fired = true
		queued = t.queued
		if len(queued) > 0 {
			delete(o.toasts, a.ID)
		}
	}
	o.mu.Unlock()

	for _, msg := range queued {
		o.send(ctx, msg)
	}
}

// reconcile delivers msg now, or queues it behind a toast that has not fired.
func (o *OptimisticNotifier) reconcile(ctx context.Context, attemptID string, msg notification.Message) {
	o.mu.Lock()
	t, ok := o.toasts[attemptID]
	if ok && !t.fired {
		t.queued = append(t.queued, msg)
		o.mu.Unlock()
		return
	}
	delete(o.toasts, attemptID)
	o.mu.Unlock()
	o.send(context.WithoutCancel(ctx), msg)
}

func (o *OptimisticNotifier) send(ctx context.Context, msg notification.Message) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Send(ctx, msg); err != nil {
		o.logger.Warn("notification failed", "user_id", msg.UserID, "kind", msg.Kind, "error", err)
	}
}
