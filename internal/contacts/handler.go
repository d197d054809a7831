package contacts

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/payphone/payphone/internal/phone"
)

// Handler exposes address book endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a contacts HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name          string `json:"name"`
	PhoneNumber   string `json:"phone_number"`
	WalletAddress string `json:"wallet_address"`
}

type contactResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	PhoneNumber   string `json:"phone_number"`
	WalletAddress string `json:"wallet_address,omitempty"`
}

// Create saves a contact.
func (h *Handler) Create(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	contact, err := h.service.Create(c.UserContext(), userID, NewContact{Name: req.Name, PhoneNumber: req.PhoneNumber, WalletAddress: req.WalletAddress})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(contact))
}

// List returns the user's contacts, or the single match when ?phone= is set.
func (h *Handler) List(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if raw := c.Query("phone"); raw != "" {
		contact, err := h.service.FindByPhone(c.UserContext(), userID, raw)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(fiber.Map{"contacts": []contactResponse{toResponse(contact)}})
	}
	list, err := h.service.List(c.UserContext(), userID)
	if err != nil {
		return mapError(err)
	}
	out := make([]contactResponse, 0, len(list))
	for _, contact := range list {
		out = append(out, toResponse(contact))
	}
	return c.JSON(fiber.Map{"contacts": out})
}

// Get returns one contact.
func (h *Handler) Get(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	contact, err := h.service.Get(c.UserContext(), userID, c.Params("contactId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(toResponse(contact))
}

// Delete removes one contact.
func (h *Handler) Delete(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if err := h.service.Delete(c.UserContext(), userID, c.Params("contactId")); err != nil {
		return mapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, phone.ErrInvalidFormat):
		return fiber.NewError(http.StatusUnprocessableEntity, "Please enter a valid phone number")
	case errors.Is(err, ErrInvalidContact):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrContactNotFound), errors.Is(err, ErrUnknownUser):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotOwner):
		return fiber.NewError(http.StatusForbidden, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

func toResponse(contact Contact) contactResponse {
	return contactResponse{
		ID:            contact.ID,
		Name:          contact.Name,
		PhoneNumber:   contact.PhoneNumber,
		WalletAddress: contact.WalletAddress,
	}
}
