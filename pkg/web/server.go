// Package web serves the bridge's HTTP surface: the browser relay
// WebSocket, the session monitor feed, the ephemeral token endpoint, and
// health checks.
package web

import (
	"context"
	"log/slog"
	"net"
	"sync/atomic"

	contribws "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	monitorws "github.com/gofiber/websocket/v2"

	"github.com/voicebridge/voicebridge/internal/config"
	"github.com/voicebridge/voicebridge/pkg/hub"
)

// Server is the bridge HTTP/WebSocket server.
type Server struct {
	cfg    config.Config
	app    *fiber.App
	logger *slog.Logger

	monitor *hub.Hub

	activeSessions atomic.Int64
}

// NewServer builds the fiber app and its routes.
func NewServer(cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		monitor: hub.New(logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "voicebridge",
		DisableStartupMessage: true,
	})

	// CORS for browser clients during local development
	app.Use(cors.New())

	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Post("/session", s.handleEphemeralSession)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if contribws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", contribws.New(s.handleRelay))
	app.Get("/ws/monitor", monitorws.New(s.handleMonitor))

	s.app = app
	return s
}

// Addr returns the listen address from the configuration.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, s.cfg.Port)
}

// Start runs the monitor hub and listens. Blocks until Shutdown.
func (s *Server) Start() error {
	go s.monitor.Run()
	s.logger.Info("bridge server listening", "addr", s.Addr())
	return s.app.Listen(s.Addr())
}

// Shutdown stops accepting connections and closes the monitor hub.
func (s *Server) Shutdown(ctx context.Context) error {
	s.monitor.Stop()
	return s.app.ShutdownWithContext(ctx)
}

// Monitor exposes the broadcast hub, e.g. for tests.
func (s *Server) Monitor() *hub.Hub {
	return s.monitor
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"sessions": s.activeSessions.Load(),
		"monitors": s.monitor.ClientCount(),
	})
}

// handleMonitor attaches an observer to the broadcast hub.
func (s *Server) handleMonitor(c *monitorws.Conn) {
	client := hub.NewClient(s.monitor, c)
	client.Run()
}
