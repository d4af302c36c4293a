// Package http serves the public API: scrape submission, health and
// readiness probes, the storefront listing, and Prometheus metrics.
package http

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketscrape/internal/config"
	"marketscrape/internal/engine"
	"marketscrape/internal/metrics"
	"marketscrape/internal/ratelimit"
	"marketscrape/internal/ready"
)

type Server struct {
	app    *fiber.App
	config *config.Config
	logger *slog.Logger
}

func NewServer(cfg *config.Config, eng *engine.Engine, prober *ready.Prober, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: cfg.Server.MaxContentMB << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			return c.Status(code).JSON(ErrorResponse{
				Success: false,
				Error:   "Internal server error",
				Message: err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.Origins(), ","),
		AllowHeaders: "Origin, Content-Type, Accept, X-API-Key, Authorization",
	}))

	// Request ID, access log, and request counter. The id is minted
	// fresh per request; inbound X-Request-Id headers are not trusted.
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		reqID := uuid.New().String()
		c.Locals("request_id", reqID)
		c.Set("X-Request-Id", reqID)

		err := c.Next()

		status := c.Response().StatusCode()
		metrics.APIRequests.WithLabelValues(c.Path(), fmt.Sprintf("%d", status)).Inc()
		logger.Info("request",
			"request_id", reqID,
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		)
		return err
	})

	h := &handlers{config: cfg, engine: eng, prober: prober, logger: logger}

	app.Get("/", h.index)
	app.Get("/api/health", h.health)
	app.Get("/api/ready", h.readiness)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	keys := ratelimit.New(cfg.RateLimit.KeyPerMinute, 0)
	ips := ratelimit.New(cfg.RateLimit.IPPerMinute, 0)

	api := app.Group("/api", authMiddleware(cfg), rateLimitMiddleware(keys, ips))
	api.Get("/countries", h.countries)
	api.Post("/scrape", h.scrape)

	return &Server{app: app, config: cfg, logger: logger}
}

func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
