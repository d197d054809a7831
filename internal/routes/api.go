package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/payphone/payphone/internal/auth"
	"github.com/payphone/payphone/internal/contacts"
	"github.com/payphone/payphone/internal/history"
	"github.com/payphone/payphone/internal/identity"
	"github.com/payphone/payphone/internal/notification"
	"github.com/payphone/payphone/internal/payments"
	"github.com/payphone/payphone/internal/registration"
	"github.com/payphone/payphone/internal/resolver"
	"github.com/payphone/payphone/internal/wallet"
)

// RegisterAuthRoutes wires login and refresh. Login is rate limited.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, loginLimiter fiber.Handler) {
	r.Post("/auth/login", loginLimiter, h.Login)
	r.Post("/auth/refresh", h.Refresh)
}

// RegisterIdentityRoutes wires the caller's profile.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	r.Get("/me", h.Me)
	r.Patch("/me", h.Update)
	r.Delete("/me", h.Delete)
}

// RegisterContactRoutes wires the address book.
func RegisterContactRoutes(r fiber.Router, h *contacts.Handler) {
	r.Post("/contacts", h.Create)
	r.Get("/contacts", h.List)
	r.Get("/contacts/:contactId", h.Get)
	r.Delete("/contacts/:contactId", h.Delete)
}

// RegisterHistoryRoutes wires transaction history.
func RegisterHistoryRoutes(r fiber.Router, h *history.Handler) {
	r.Post("/transactions", h.Create)
	r.Get("/transactions", h.List)
	r.Get("/transactions/:transactionId", h.Get)
	r.Patch("/transactions/:transactionId", h.Update)
}

// RegisterWalletRoutes wires wallet connection management.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/wallet/connect", h.Connect)
	r.Delete("/wallet/connect", h.Disconnect)
	r.Get("/wallet", h.Status)
}

// RegisterResolverRoutes wires one-shot lookups and the compose session.
func RegisterResolverRoutes(r fiber.Router, h *resolver.Handler) {
	r.Post("/resolve", h.Resolve)
	r.Put("/compose/phone", h.UpdatePhone)
	r.Get("/compose", h.Compose)
}

// RegisterPaymentRoutes wires payment submission.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler) {
	r.Post("/payments", h.Send)
}

// RegisterRegistrationRoutes wires phone registration.
func RegisterRegistrationRoutes(r fiber.Router, h *registration.Handler) {
	r.Post("/registrations", h.Register)
	r.Get("/registrations/status", h.Status)
}

// RegisterNotificationRoutes wires the notification inbox.
func RegisterNotificationRoutes(r fiber.Router, h *notification.Handler) {
	r.Get("/notifications", h.List)
}
