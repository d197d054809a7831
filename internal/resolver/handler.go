package resolver

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/payphone/payphone/internal/phone"
)

// Handler exposes wallet resolution and compose state.
type Handler struct {
	resolver *Resolver
	sessions *Sessions
}

// NewHandler builds a resolver HTTP handler.
func NewHandler(resolver *Resolver, sessions *Sessions) *Handler {
	return &Handler{resolver: resolver, sessions: sessions}
}

type resolveRequest struct {
	Phone string `json:"phone"`
}

type composeRequest struct {
	Phone string `json:"phone"`
	Wait  bool   `json:"wait"`
}

type resultResponse struct {
	Phone         string `json:"phone"`
	Wallet        string `json:"wallet"`
	Status        string `json:"status"`
	HasResolution bool   `json:"has_resolution"`
	Error         string `json:"error,omitempty"`
}

type composeResponse struct {
	Input   string         `json:"input"`
	Digits  string         `json:"digits"`
	Pending bool           `json:"pending"`
	Result  resultResponse `json:"result"`
}

// Resolve performs a one-shot lookup for a phone number.
func (h *Handler) Resolve(c *fiber.Ctx) error {
	var req resolveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	digits, err := phone.Normalize(req.Phone)
	if err != nil {
		if errors.Is(err, phone.ErrInvalidFormat) {
			return fiber.NewError(http.StatusUnprocessableEntity, "Please enter a valid phone number")
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(toResult(h.resolver.Resolve(c.UserContext(), digits)))
}

// UpdatePhone feeds keypad input into the user's compose session.
func (h *Handler) UpdatePhone(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req composeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	session := h.sessions.For(userID)
	snap := session.Update(c.UserContext(), req.Phone)
	if req.Wait {
		settled, err := session.Settle(c.UserContext())
		if err != nil {
			return fiber.NewError(http.StatusGatewayTimeout, err.Error())
		}
		snap = settled
	}
	return c.JSON(toCompose(snap))
}

// Compose returns the user's current compose state.
func (h *Handler) Compose(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	return c.JSON(toCompose(h.sessions.For(userID).Snapshot()))
}

func toResult(res Result) resultResponse {
	out := resultResponse{
		Phone:         res.Phone,
		Wallet:        res.Display(),
		Status:        string(res.Kind),
		HasResolution: res.HasResolution(),
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

func toCompose(snap Snapshot) composeResponse {
	return composeResponse{
		Input:   snap.Input,
		Digits:  snap.Digits,
		Pending: snap.Pending,
		Result:  toResult(snap.Result),
	}
}
