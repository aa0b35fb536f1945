// Command hubd runs the group-chat hub server: it wires the on-disk
// hub/message stores, the realtime fan-out actor, and the websocket
// gateway together behind a small HTTP surface, grounded on the
// teacher's cmd/uncord/main.go startup/shutdown shape.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/v3/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/uncord-chat/uncord-server/internal/command"
	"github.com/uncord-chat/uncord-server/internal/config"
	"github.com/uncord-chat/uncord-server/internal/fanout"
	"github.com/uncord-chat/uncord-server/internal/gateway"
	"github.com/uncord-chat/uncord-server/internal/hub"
	"github.com/uncord-chat/uncord-server/internal/httputil"
	"github.com/uncord-chat/uncord-server/internal/identity"
	"github.com/uncord-chat/uncord-server/internal/message"
	"github.com/uncord-chat/uncord-server/internal/oauth"
)

// Build metadata injected via ldflags at compile time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.IsDevelopment() {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().Timestamp().Logger()
	}

	log.Info().
		Str("version", version).
		Str("commit", commit).
		Str("server_name", cfg.ServerName).
		Msg("Starting hubd")

	serverKP, err := identity.LoadOrCreate(cfg.ServerName, cfg.KeySecretPath, cfg.KeyPublicPath)
	if err != nil {
		return fmt.Errorf("load or create server key pair: %w", err)
	}
	log.Info().Str("fingerprint", identity.Fingerprint(serverKP.Public)).Msg("Server identity loaded")

	hubs := hub.NewStore(cfg.DataDir)
	messages := message.NewStore(cfg.DataDir)
	accounts := identity.NewStore(cfg.DataDir)
	tokens := oauth.NewIssuer(cfg.JWTSigningKey, cfg.JWTAccessTTL, cfg.ServerName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	actor := fanout.NewActor(hubs, cfg.TypingTTL, log.Logger)
	go actor.Run(ctx)

	commands := command.NewAPI(hubs, messages, actor, cfg.MaxNameSize, cfg.MaxDescriptionSize, cfg.MessageMaxSize, log.Logger)

	app := fiber.New(fiber.Config{
		AppName: cfg.ServerName,
		ErrorHandler: func(c fiber.Ctx, err error) error {
			status := fiber.StatusInternalServerError
			message := "An internal error occurred"
			code := string(command.KindInternalError)
			if fiberErr, ok := errors.AsType[*fiber.Error](err); ok {
				status = fiberErr.Code
				message = fiberErr.Message
				code = fiberStatusToKind(status)
			} else {
				log.Error().Err(err).
					Str("method", c.Method()).
					Str("path", c.Path()).
					Msg("Unhandled error")
			}
			return httputil.Fail(c, status, code, message)
		},
	})

	app.Use(requestid.New())
	app.Use(httputil.RequestLogger(log.Logger))

	app.Get("/health", func(c fiber.Ctx) error {
		return httputil.Success(c, fiber.Map{"status": "ok"})
	})

	app.Get("/gateway", func(c fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return websocket.New(func(conn *websocket.Conn) {
			session := gateway.NewSession(conn, actor, commands, accounts, tokens, serverKP, cfg.HandshakeTimeout, log.Logger)
			session.Run()
		})(c)
	})

	// Fiber v3 treats app.Use() middleware as a route match, so without
	// this catch-all unmatched paths fall through to a 200 empty body.
	app.Use(func(_ fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("Shutting down hubd")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", cfg.ListenAddr).Msg("hubd listening")
	if err := app.Listen(cfg.ListenAddr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// fiberStatusToKind maps an HTTP status from Fiber's own error handling
// (routing failures, payload-too-large, etc.) to a command.Kind-style
// wire code, grounded on the teacher's fiberStatusToAPICode.
func fiberStatusToKind(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "NotFound"
	case fiber.StatusMethodNotAllowed:
		return "ValidationError"
	case fiber.StatusTooManyRequests:
		return "RateLimited"
	case fiber.StatusRequestEntityTooLarge:
		return "PayloadTooLarge"
	case fiber.StatusServiceUnavailable:
		return "ServiceUnavailable"
	default:
		if status >= 400 && status < 500 {
			return "ValidationError"
		}
		return string(command.KindInternalError)
	}
}
