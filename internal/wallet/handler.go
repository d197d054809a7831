package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes wallet connection endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type connectRequest struct {
	Keystore   string `json:"keystore"`
	Passphrase string `json:"passphrase"`
	PrivateKey string `json:"private_key"`
}

type connectionResponse struct {
	Connected   bool      `json:"connected"`
	Address     string    `json:"address,omitempty"`
	Source      string    `json:"source,omitempty"`
	ConnectedAt time.Time `json:"connected_at,omitempty"`
}

// Connect unlocks a signer for the authenticated user.
func (h *Handler) Connect(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req connectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	info, err := h.service.Connect(c.UserContext(), userID, ConnectInput{
		Keystore:   req.Keystore,
		Passphrase: req.Passphrase,
		PrivateKey: req.PrivateKey,
	})
	switch {
	case errors.Is(err, ErrMissingCredentials), errors.Is(err, ErrInvalidKey):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrRawKeyDisabled):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case err != nil:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(info))
}

// Disconnect drops the user's signer.
func (h *Handler) Disconnect(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if err := h.service.Disconnect(c.UserContext(), userID); err != nil {
		if errors.Is(err, ErrNotConnected) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

// Status reports whether the user has a connected signer.
func (h *Handler) Status(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	info, err := h.service.Status(userID)
	if errors.Is(err, ErrNotConnected) {
		return c.JSON(connectionResponse{Connected: false})
	}
	return c.JSON(toResponse(info))
}

func toResponse(info Connection) connectionResponse {
	return connectionResponse{
		Connected:   true,
		Address:     info.Address,
		Source:      string(info.Source),
		ConnectedAt: info.ConnectedAt,
	}
}
