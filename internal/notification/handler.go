package notification

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the user's notification inbox.
type Handler struct {
	inbox Inbox
}

// NewHandler builds a notification HTTP handler.
func NewHandler(inbox Inbox) *Handler {
	return &Handler{inbox: inbox}
}

// List returns recent notifications; ?limit= caps the count.
func (h *Handler) List(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	messages, err := h.inbox.Recent(c.UserContext(), userID, c.QueryInt("limit", 20))
	if err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(fiber.Map{"notifications": messages})
}
