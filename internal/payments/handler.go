package payments

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/payphone/payphone/internal/explorer"
	"github.com/payphone/payphone/internal/identity"
	"github.com/payphone/payphone/internal/ledger"
	"github.com/payphone/payphone/internal/logging"
	"github.com/payphone/payphone/internal/phone"
	"github.com/payphone/payphone/internal/resolver"
	"github.com/payphone/payphone/internal/wallet"
)

// Users looks up the sender's profile.
type Users interface {
	Get(ctx context.Context, id string) (identity.User, error)
}

// Signers returns a user's connected signer.
type Signers interface {
	Signer(userID string) (ledger.Signer, bool)
}

// HandlerConfig wires the payment handler.
type HandlerConfig struct {
	Service        *Service
	Sessions       *resolver.Sessions
	Users          Users
	Signers        Signers
	ExplorerURL    string
	ConfirmTimeout time.Duration
	Logger         *slog.Logger
}

// Handler exposes payment endpoints.
type Handler struct {
	cfg     HandlerConfig
	logger  *slog.Logger
	pending sync.WaitGroup
}

// NewHandler constructs a payment handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 3 * time.Minute
	}
	return &Handler{cfg: cfg, logger: logging.Component(cfg.Logger, "payments.http")}
}

type sendRequest struct {
	Phone  string `json:"phone"`
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

type sendResponse struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	ReceiverPhone  string `json:"receiver_phone"`
	ReceiverWallet string `json:"receiver_wallet"`
	Amount         string `json:"amount"`
	Unit           string `json:"unit"`
	Wei            string `json:"wei"`
	TxHash         string `json:"tx_hash"`
	ExplorerURL    string `json:"explorer_url"`
}

// Send submits a payment to the phone in the body, or to the compose
// session's phone when the body leaves it empty. It answers 202 once the
// transaction is broadcast and confirms in the background.
func (h *Handler) Send(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	ctx := c.UserContext()

	session := h.cfg.Sessions.For(userID)
	if req.Phone != "" {
		session.Update(ctx, req.Phone)
	}
	snap, err := session.Settle(ctx)
	if err != nil {
		return fiber.NewError(http.StatusGatewayTimeout, err.Error())
	}

	var senderPhone string
	if h.cfg.Users != nil {
		if user, err := h.cfg.Users.Get(ctx, userID); err == nil {
			senderPhone = user.PhoneNumber
		}
	}
	var signer ledger.Signer
	if h.cfg.Signers != nil {
		if s, ok := h.cfg.Signers.Signer(userID); ok {
			signer = s
		}
	}

	attempt, err := h.cfg.Service.Submit(ctx, PendingPayment{
		UserID:        userID,
		SenderPhone:   senderPhone,
		ReceiverPhone: snap.Input,
		Resolution:    snap.Result,
		Amount:        req.Amount,
		Unit:          req.Unit,
		Signer:        signer,
	})
	if err != nil {
		return MapError(err)
	}

	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		confirmCtx, cancel := context.WithTimeout(context.Background(), h.cfg.ConfirmTimeout)
		defer cancel()
		_, _ = h.cfg.Service.Confirm(confirmCtx, attempt)
	}()

	return c.Status(http.StatusAccepted).JSON(sendResponse{
		ID:             attempt.ID,
		Status:         string(attempt.State),
		ReceiverPhone:  attempt.ReceiverPhone,
		ReceiverWallet: attempt.ReceiverWallet,
		Amount:         attempt.Amount,
		Unit:           attempt.Unit,
		Wei:            attempt.Wei,
		TxHash:         attempt.TxHash,
		ExplorerURL:    explorer.TxURL(h.cfg.ExplorerURL, attempt.TxHash),
	})
}

// Wait blocks until background confirmations finish or ctx ends.
func (h *Handler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MapError turns payment errors into HTTP errors with the user-facing message.
func MapError(err error) error {
	switch {
	case errors.Is(err, phone.ErrInvalidPhone):
		return fiber.NewError(http.StatusUnprocessableEntity, "Please enter a valid phone number")
	case errors.Is(err, ErrUnregisteredReceiver):
		return fiber.NewError(http.StatusUnprocessableEntity, "Phone number not registered")
	case errors.Is(err, ErrMissingAmount):
		return fiber.NewError(http.StatusUnprocessableEntity, "Please enter an amount")
	case errors.Is(err, wallet.ErrNotConnected):
		return fiber.NewError(http.StatusUnprocessableEntity, "Please connect your wallet first.")
	case errors.Is(err, ErrUnsupportedUnit), errors.Is(err, ErrInvalidAmount):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ledger.ErrNotLoaded):
		return fiber.NewError(http.StatusServiceUnavailable, "Contract not loaded.")
	case errors.Is(err, ledger.ErrSubmission):
		return fiber.NewError(http.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
