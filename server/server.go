// Package server exposes a trained pipeline over HTTP with fiber.
//
// Routes:
//
//	GET  /health   {"status":"ok","model_loaded":bool}
//	POST /predict  ChurnRequest -> ChurnResponse
//	GET  /metrics  Prometheus exposition
//
// The model is loaded once, before the server starts, and never reloaded.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ezoic/churnpulse/pkg/log"
)

// Server is the HTTP front of a ModelHandle.
type Server struct {
	app     *fiber.App
	model   *ModelHandle
	metrics *Metrics
	logger  log.Logger
}

// New builds the app and registers the routes.
func New(model *ModelHandle) *Server {
	s := &Server{
		model:   model,
		metrics: NewMetrics(),
		logger:  log.GetLoggerWithName("server"),
	}
	s.metrics.SetModelLoaded(model.Loaded())

	s.app = fiber.New(fiber.Config{
		AppName:               "ChurnPulse API",
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.app.Use(recover.New())
	s.app.Use(s.metrics.Handler())
	s.app.Use(s.requestLogger)

	s.app.Get("/health", s.health)
	s.app.Post("/predict", s.predict)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	return s
}

// App returns the fiber app, e.g. for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("Server listening",
		"addr", addr,
		"model_loaded", s.model.Loaded(),
		log.PathKey, s.model.Path(),
	)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("Request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return err
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		log.LogError(err, "Request failed", "path", c.Path())
	}
	return c.Status(code).JSON(fiber.Map{"error": message})
}
