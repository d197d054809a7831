package history

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Handler exposes transaction history endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a history HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	SenderPhone    string          `json:"sender_phone"`
	ReceiverPhone  string          `json:"receiver_phone"`
	ReceiverWallet string          `json:"receiver_wallet"`
	Amount         decimal.Decimal `json:"amount"`
	Unit           string          `json:"unit"`
	Status         string          `json:"status"`
	TxHash         string          `json:"tx_hash"`
}

type updateRequest struct {
	Status *string `json:"status"`
	TxHash *string `json:"tx_hash"`
}

type recordResponse struct {
	ID             string    `json:"id"`
	SenderPhone    string    `json:"sender_phone"`
	ReceiverPhone  string    `json:"receiver_phone"`
	ReceiverWallet string    `json:"receiver_wallet"`
	Amount         string    `json:"amount"`
	Unit           string    `json:"unit"`
	Status         string    `json:"status"`
	TxHash         string    `json:"tx_hash,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Create stores a record for the authenticated user.
func (h *Handler) Create(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	record, err := h.service.Create(c.UserContext(), NewRecord{
		UserID:         userID,
		SenderPhone:    req.SenderPhone,
		ReceiverPhone:  req.ReceiverPhone,
		ReceiverWallet: req.ReceiverWallet,
		Amount:         req.Amount,
		Unit:           req.Unit,
		Status:         Status(req.Status),
		TxHash:         req.TxHash,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(record))
}

// List returns the user's history, newest first.
func (h *Handler) List(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	records, err := h.service.List(c.UserContext(), userID)
	if err != nil {
		return mapError(err)
	}
	out := make([]recordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toResponse(record))
	}
	return c.JSON(fiber.Map{"transactions": out})
}

// Get returns one record owned by the user.
func (h *Handler) Get(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	record, err := h.service.GetOwned(c.UserContext(), userID, c.Params("transactionId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(toResponse(record))
}

// Update patches status or tx hash of a record owned by the user.
func (h *Handler) Update(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	id := c.Params("transactionId")
	if _, err := h.service.GetOwned(c.UserContext(), userID, id); err != nil {
		return mapError(err)
	}
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	var update Update
	if req.Status != nil {
		status := Status(*req.Status)
		update.Status = &status
	}
	update.TxHash = req.TxHash
	record, err := h.service.Update(c.UserContext(), id, update)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(toResponse(record))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidRecord):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrUnknownUser):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotOwner):
		return fiber.NewError(http.StatusForbidden, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

// toResponse renders record for JSON clients.
func toResponse(record Record) recordResponse {
	return recordResponse{
		ID:             record.ID,
		SenderPhone:    record.SenderPhone,
		ReceiverPhone:  record.ReceiverPhone,
		ReceiverWallet: record.ReceiverWallet,
		Amount:         record.Amount.StringFixed(2),
		Unit:           record.Unit,
		Status:         string(record.Status),
		TxHash:         record.TxHash,
		CreatedAt:      record.CreatedAt,
	}
}
