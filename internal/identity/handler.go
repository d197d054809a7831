package identity

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/payphone/payphone/internal/phone"
)

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
}

type updateRequest struct {
	PhoneNumber   *string `json:"phone_number"`
	WalletAddress *string `json:"wallet_address"`
}

type userResponse struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	PhoneNumber   string    `json:"phone_number,omitempty"`
	WalletAddress string    `json:"wallet_address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Register creates an account.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Create(c.UserContext(), NewUser{Username: req.Username, Password: req.Password, PhoneNumber: req.PhoneNumber})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(user))
}

// Me returns the authenticated user.
func (h *Handler) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	user, err := h.service.Get(c.UserContext(), userID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(toResponse(user))
}

// Update patches the authenticated user's phone number or wallet address.
func (h *Handler) Update(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Update(c.UserContext(), userID, Patch{PhoneNumber: req.PhoneNumber, WalletAddress: req.WalletAddress})
	if err != nil {
		return mapError(err)
	}
	return c.JSON(toResponse(user))
}

// Delete removes the authenticated user with their contacts and history.
func (h *Handler) Delete(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if err := h.service.Delete(c.UserContext(), userID); err != nil {
		return mapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, phone.ErrInvalidFormat):
		return fiber.NewError(http.StatusUnprocessableEntity, "Please enter a valid phone number")
	case errors.Is(err, ErrInvalidUser):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrUsernameTaken):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrUserNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

func toResponse(user User) userResponse {
	return userResponse{
		ID:            user.ID,
		Username:      user.Username,
		PhoneNumber:   user.PhoneNumber,
		WalletAddress: user.WalletAddress,
		CreatedAt:     user.CreatedAt,
	}
}
