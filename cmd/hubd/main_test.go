package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/contrib/v3/websocket"
	"github.com/gofiber/fiber/v3"

	"github.com/uncord-chat/uncord-server/internal/command"
	"github.com/uncord-chat/uncord-server/internal/httputil"
)

// TestGatewayRouteRejectsNonWebSocket mirrors run()'s /gateway handler:
// a plain HTTP GET without the websocket upgrade headers must be
// rejected before a Session is ever constructed.
func TestGatewayRouteRejectsNonWebSocket(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Get("/gateway", func(c fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return nil
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/gateway", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUpgradeRequired)
	}
}

// TestUnknownRouteReturns404 verifies that requests to undefined paths receive a 404 JSON response. Fiber v3 treats
// app.Use() middleware as route matches, so without the catch-all handler at the end of run()'s route registration
// the router would return 200 with an empty body for unmatched paths.
func TestUnknownRouteReturns404(t *testing.T) {
	t.Parallel()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c fiber.Ctx, err error) error {
			status := fiber.StatusInternalServerError
			message := "An internal error occurred"
			code := string(command.KindInternalError)
			if fiberErr, ok := errors.AsType[*fiber.Error](err); ok {
				status = fiberErr.Code
				message = fiberErr.Message
				code = fiberStatusToKind(status)
			}
			return httputil.Fail(c, status, code, message)
		},
	})

	// Register middleware so the router has app.Use() handlers that match all paths, reproducing the condition
	// that causes Fiber v3 to treat unmatched requests as handled.
	app.Use(func(c fiber.Ctx) error {
		return c.Next()
	})

	app.Get("/known", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// Catch-all: mirrors the handler registered at the end of run().
	app.Use(func(_ fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	tests := []struct {
		name string
		path string
		want int
	}{
		{"unknown path", "/no-such-route", fiber.StatusNotFound},
		{"favicon", "/favicon.ico", fiber.StatusNotFound},
		{"known path", "/known", fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}

			if tt.want == fiber.StatusNotFound {
				body, err := io.ReadAll(resp.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				var env struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				if err := json.Unmarshal(body, &env); err != nil {
					t.Fatalf("unmarshal error response: %v", err)
				}
				if env.Error.Code != "NotFound" {
					t.Errorf("error code = %q, want %q", env.Error.Code, "NotFound")
				}
			}
		})
	}
}

func TestFiberStatusToKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   string
	}{
		{"not found", fiber.StatusNotFound, "NotFound"},
		{"method not allowed", fiber.StatusMethodNotAllowed, "ValidationError"},
		{"too many requests", fiber.StatusTooManyRequests, "RateLimited"},
		{"request entity too large", fiber.StatusRequestEntityTooLarge, "PayloadTooLarge"},
		{"service unavailable", fiber.StatusServiceUnavailable, "ServiceUnavailable"},
		{"generic 4xx falls back to validation error", fiber.StatusConflict, "ValidationError"},
		{"another 4xx", fiber.StatusGone, "ValidationError"},
		{"5xx falls back to internal error", fiber.StatusInternalServerError, string(command.KindInternalError)},
		{"502 falls back to internal error", fiber.StatusBadGateway, string(command.KindInternalError)},
		{"unknown status falls back to internal error", 600, string(command.KindInternalError)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := fiberStatusToKind(tt.status)
			if got != tt.want {
				t.Errorf("fiberStatusToKind(%d) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}
