// Package api exposes the HTTP surface: health, chat, and negotiate.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/homescout-ai/homescout/pkg/config"
	"github.com/homescout-ai/homescout/pkg/coordinator"
	"github.com/homescout-ai/homescout/pkg/models"
)

// Orchestrator is the surface the HTTP layer needs from the coordinator.
type Orchestrator interface {
	Chat(ctx context.Context, sessionID, message string) (*coordinator.ChatOutcome, error)
	Negotiate(ctx context.Context, address, name, email, additionalInfo string) (*models.NegotiationRecord, error)
}

// Server hosts the HTTP API.
type Server struct {
	cfg    *config.Config
	orch   Orchestrator
	echo   *echo.Echo
	http   *http.Server
	logger *slog.Logger
}

// NewServer wires routes and middleware.
func NewServer(cfg *config.Config, orch Orchestrator) *Server {
	s := &Server{
		cfg:    cfg,
		orch:   orch,
		logger: slog.Default().With("component", "api"),
	}

	e := echo.New()
	e.Use(securityHeaders())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))

	e.GET("/health", s.healthHandler)
	e.POST("/api/chat", s.chatHandler)
	e.POST("/api/negotiate", s.negotiateHandler)

	s.echo = e
	return s
}

// ServeHTTP lets the server be driven directly by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start blocks serving on addr until Shutdown or a listener error.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("http server listening", "addr", addr)
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
