package registration

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/payphone/payphone/internal/explorer"
	"github.com/payphone/payphone/internal/ledger"
	"github.com/payphone/payphone/internal/phone"
	"github.com/payphone/payphone/internal/wallet"
)

// Signers returns a user's connected signer.
type Signers interface {
	Signer(userID string) (ledger.Signer, bool)
}

// Handler exposes registration endpoints.
type Handler struct {
	service        *Service
	signers        Signers
	explorerURL    string
	confirmTimeout time.Duration
	pending        sync.WaitGroup
}

// NewHandler builds a registration HTTP handler.
func NewHandler(service *Service, signers Signers, explorerURL string, confirmTimeout time.Duration) *Handler {
	if confirmTimeout <= 0 {
		confirmTimeout = 3 * time.Minute
	}
	return &Handler{service: service, signers: signers, explorerURL: explorerURL, confirmTimeout: confirmTimeout}
}

type registerRequest struct {
	Phone string `json:"phone"`
}

type statusResponse struct {
	State       string    `json:"state"`
	Message     string    `json:"message,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Wallet      string    `json:"wallet,omitempty"`
	TxHash      string    `json:"tx_hash,omitempty"`
	ExplorerURL string    `json:"explorer_url,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Register submits the phone binding and confirms it in the background.
func (h *Handler) Register(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	var signer ledger.Signer
	if h.signers != nil {
		if s, ok := h.signers.Signer(userID); ok {
			signer = s
		}
	}

	st, err := h.service.Submit(c.UserContext(), userID, req.Phone, signer)
	if err != nil {
		return mapError(err, st)
	}

	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), h.confirmTimeout)
		defer cancel()
		_, _ = h.service.Confirm(ctx, userID, st)
	}()
	return c.Status(http.StatusAccepted).JSON(h.toResponse(st))
}

// Status returns the user's sticky registration state.
func (h *Handler) Status(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	return c.JSON(h.toResponse(h.service.Status(userID)))
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

func mapError(err error, st Status) error {
	switch {
	case errors.Is(err, ErrInProgress):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, phone.ErrInvalidPhone):
		return fiber.NewError(http.StatusUnprocessableEntity, st.Message)
	case errors.Is(err, wallet.ErrNotConnected):
		return fiber.NewError(http.StatusUnprocessableEntity, st.Message)
	case errors.Is(err, ledger.ErrNotLoaded):
		return fiber.NewError(http.StatusServiceUnavailable, st.Message)
	case errors.Is(err, ledger.ErrSubmission):
		return fiber.NewError(http.StatusBadGateway, st.Message)
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) toResponse(st Status) statusResponse {
	return statusResponse{
		State:       string(st.State),
		Message:     st.Message,
		Phone:       st.Phone,
		Wallet:      st.Wallet,
		TxHash:      st.TxHash,
		ExplorerURL: explorer.TxURL(h.explorerURL, st.TxHash),
		UpdatedAt:   st.UpdatedAt,
	}
}
