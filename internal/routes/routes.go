package routes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/payphone/payphone/internal/auth"
	"github.com/payphone/payphone/internal/config"
	"github.com/payphone/payphone/internal/contacts"
	"github.com/payphone/payphone/internal/history"
	"github.com/payphone/payphone/internal/identity"
	"github.com/payphone/payphone/internal/ledger"
	"github.com/payphone/payphone/internal/middleware"
	"github.com/payphone/payphone/internal/notification"
	"github.com/payphone/payphone/internal/payments"
	"github.com/payphone/payphone/internal/registration"
	"github.com/payphone/payphone/internal/resolver"
	"github.com/payphone/payphone/internal/wallet"
)

const lookupTimeout = 10 * time.Second

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Ledger ledger.Handle
	Logger *slog.Logger
}

// Background is implemented by handlers that confirm transactions after
// responding.
type Background interface {
	Wait(ctx context.Context) error
}

// Drain waits for every background confirmation of the wired handlers.
type Drain []Background

// Wait blocks until all handlers are idle or ctx ends.
func (d Drain) Wait(ctx context.Context) error {
	var errs []error
	for _, b := range d {
		if err := b.Wait(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Setup configures middlewares and all application routes. Without a
// database or Redis (development only) it falls back to in-memory stores.
func Setup(app *fiber.App, d Deps) (Drain, error) {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// Stores
	var (
		userRepo    identity.Repository
		usersSvc    *identity.Service
		contactRepo contacts.Repository
		recordRepo  history.Repository
		inbox       notification.Inbox
		notifier    notification.Notifier
	)
	if d.DB != nil {
		userRepo = identity.NewPostgresRepository(d.DB)
	} else {
		userRepo = identity.NewMemoryRepository()
	}
	usersSvc = identity.NewService(userRepo, d.Logger)
	if d.DB != nil {
		contactRepo = contacts.NewPostgresRepository(d.DB)
		recordRepo = history.NewPostgresRepository(d.DB)
	} else {
		contactRepo = contacts.NewMemoryRepository(usersSvc)
		recordRepo = history.NewMemoryRepository(usersSvc)
	}
	if d.Cache != nil {
		redisInbox := notification.NewRedisNotifier(d.Cache)
		inbox, notifier = redisInbox, redisInbox
	} else {
		memInbox := notification.NewMemoryInbox()
		inbox, notifier = memInbox, memInbox
	}
	notifier = notification.Fanout(notification.NewLoggerNotifier(d.Logger), notifier)

	// Services
	contactsSvc := contacts.NewService(contactRepo, d.Logger)
	historySvc := history.NewService(recordRepo, d.Logger)
	authSvc := auth.NewService(d.Cfg, usersSvc)
	wallets := wallet.NewService(wallet.NewConnections(), usersSvc, d.Cfg.IsDev(), d.Logger)
	lookups := resolver.New(d.Ledger, d.Logger)
	sessions := resolver.NewSessions(lookups, lookupTimeout)
	usersSvc.Cascade(contactsSvc, historySvc, wallets, sessions)
	paymentSvc := payments.NewService(d.Ledger, d.Logger,
		payments.NewHistoryRecorder(historySvc, d.Logger),
		payments.NewOptimisticNotifier(notifier, d.Cfg.OptimisticDelay, d.Logger),
	)
	registrationSvc := registration.NewService(d.Ledger, usersSvc, notifier, d.Logger)

	// Handlers
	paymentHandler := payments.NewHandler(payments.HandlerConfig{
		Service:        paymentSvc,
		Sessions:       sessions,
		Users:          usersSvc,
		Signers:        wallets,
		ExplorerURL:    d.Cfg.ExplorerURL,
		ConfirmTimeout: d.Cfg.ConfirmTimeout,
		Logger:         d.Logger,
	})
	registrationHandler := registration.NewHandler(registrationSvc, wallets, d.Cfg.ExplorerURL, d.Cfg.ConfirmTimeout)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"contract":   d.Ledger.IsLoaded(),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	identityHandler := identity.NewHandler(usersSvc)
	api.Post("/users", identityHandler.Register)
	RegisterAuthRoutes(api, auth.NewHandler(authSvc), middleware.LoginRateLimit(d.Cache, 5))

	// Protected routes
	protected := api.Group("", middleware.JWTAuth(authSvc, usersSvc), middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	RegisterIdentityRoutes(protected, identityHandler)
	RegisterContactRoutes(protected, contacts.NewHandler(contactsSvc))
	RegisterHistoryRoutes(protected, history.NewHandler(historySvc))
	RegisterWalletRoutes(protected, wallet.NewHandler(wallets))
	RegisterResolverRoutes(protected, resolver.NewHandler(lookups, sessions))
	RegisterPaymentRoutes(protected, paymentHandler)
	RegisterRegistrationRoutes(protected, registrationHandler)
	RegisterNotificationRoutes(protected, notification.NewHandler(inbox))

	return Drain{paymentHandler, registrationHandler}, nil
}
