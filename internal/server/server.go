// Package server provides the operational HTTP surface (health + status).
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/floofteam/meowvolt/internal/version"
)

// Stats is what the bridge exposes about itself. No secrets, no message
// content.
type Stats struct {
	Links   int64 `json:"links"`
	Chats   int64 `json:"chats"`
	Pending int   `json:"pending_links"`
}

// StatsProvider supplies live bridge statistics for /status.
type StatsProvider interface {
	Stats(ctx context.Context) (Stats, error)
}

// Server is the ops HTTP server (Echo).
type Server struct {
	echo    *echo.Echo
	addr    string
	logger  *slog.Logger
	stats   StatsProvider
	started time.Time
}

// New builds the Echo server with recovery and request logging.
func New(log *slog.Logger, addr string, stats StatsProvider) *Server {
	if addr == "" {
		addr = ":8080"
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "server"))

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	s := &Server{
		echo:    e,
		addr:    addr,
		logger:  log,
		stats:   stats,
		started: time.Now(),
	}

	e.GET("/health", s.handleHealth)
	e.GET("/status", s.handleStatus)
	return s
}

// Start begins serving. It blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.logger.Info("ops server listening", slog.String("addr", s.addr))
	if err := s.echo.Start(s.addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(c echo.Context) error {
	payload := map[string]any{
		"version": version.String(),
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	}
	if s.stats != nil {
		stats, err := s.stats.Stats(c.Request().Context())
		if err != nil {
			s.logger.Error("stats failed", slog.Any("error", err))
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
		}
		payload["stats"] = stats
	}
	return c.JSON(http.StatusOK, payload)
}
