package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/payphone/payphone/internal/auth"
)

type stubVerifier map[string]string

func (s stubVerifier) Verify(token string) (auth.Claims, error) {
	sub, ok := s[token]
	if !ok {
		return auth.Claims{}, errors.New("bad token")
	}
	return auth.Claims{Username: "alice", RegisteredClaims: jwt.RegisteredClaims{Subject: sub}}, nil
}

type stubUsers map[string]bool

func (s stubUsers) Exists(_ context.Context, id string) (bool, error) {
	return s[id], nil
}

func TestJWTAuth(t *testing.T) {
	app := fiber.New()
	app.Use(JWTAuth(stubVerifier{"good": "user-1", "gone": "user-2"}, stubUsers{"user-1": true}))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_id").(string))
	})

	cases := []struct {
		header string
		want   int
	}{
		{"", fiber.StatusUnauthorized},
		{"Basic abc", fiber.StatusUnauthorized},
		{"Bearer nope", fiber.StatusUnauthorized},
		{"Bearer good", fiber.StatusOK},
		{"bearer good", fiber.StatusOK},
		{"Bearer gone", fiber.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
		if tc.header != "" {
			req.Header.Set(fiber.HeaderAuthorization, tc.header)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if resp.StatusCode != tc.want {
			t.Fatalf("header %q: expected %d, got %d", tc.header, tc.want, resp.StatusCode)
		}
	}
}

func TestLoginRateLimit(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Post("/login", LoginRateLimit(cache, 2), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	login := func(username string) int {
		req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(`{"username":"`+username+`"}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		return resp.StatusCode
	}

	login("alice")
	login("alice")
	if status := login("alice"); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 on third attempt, got %d", status)
	}
	if status := login("bob"); status != fiber.StatusOK {
		t.Fatalf("expected other user unaffected, got %d", status)
	}
	if ttl := mr.TTL(loginRateLimitPrefix + "alice"); ttl <= 0 {
		t.Fatalf("expected counter to expire, ttl %s", ttl)
	}
}

func TestLoginRateLimitWithoutRedis(t *testing.T) {
	app := fiber.New()
	app.Post("/login", LoginRateLimit(nil, 1), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/login", nil))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected pass-through, got %d", resp.StatusCode)
		}
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(requestIDHeader).(string))
	})

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-42")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if got := resp.Header.Get(requestIDHeader); got != "req-42" {
		t.Fatalf("expected echoed request id, got %q", got)
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}
}
