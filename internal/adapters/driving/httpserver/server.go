// Package httpserver exposes the webhook ingress, query and health
// endpoints over HTTP.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/answergrid/answergrid/internal/core/domain"
	"github.com/answergrid/answergrid/internal/core/ports/driving"
	"github.com/answergrid/answergrid/internal/logger"
)

// Server wires the driving services to HTTP routes.
type Server struct {
	answerer driving.Answerer
	syncOrch driving.SyncOrchestrator

	addr          string
	webhookSecret string
	demoMode      bool

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address. Defaults to ":8080".
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithWebhookSecret sets the shared HMAC secret for webhook signature
// verification. An empty secret puts the ingress in unsigned mode, which
// is logged at startup and on every accepted event.
func WithWebhookSecret(secret string) Option {
	return func(s *Server) { s.webhookSecret = secret }
}

// WithDemoMode marks the server as running with the demo-mode tenant
// fallback, so the health endpoint can report it.
func WithDemoMode(enabled bool) Option {
	return func(s *Server) { s.demoMode = enabled }
}

// NewServer creates the HTTP server.
func NewServer(answerer driving.Answerer, syncOrch driving.SyncOrchestrator, opts ...Option) *Server {
	s := &Server{
		answerer: answerer,
		syncOrch: syncOrch,
		addr:     ":8080",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	apiV1 := router.Group("/api/v1")
	apiV1.POST("/query", s.handleQuery)
	apiV1.POST("/webhooks/source", s.handleWebhook)
	apiV1.GET("/sync/status", s.handleSyncStatus)
	apiV1.GET("/health", s.handleHealth)

	return router
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s.webhookSecret == "" {
		logger.Warn("webhook ingress running in unsigned mode; deliveries are not authenticated")
	}

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	logger.Info("http server listening on %s", s.addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	}
}

// errorResponse is the JSON error body for every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeError classifies the error and writes the matching status code.
func writeError(c *gin.Context, err error) {
	fault := domain.ClassifyFault(err)
	c.JSON(fault.Kind.HTTPStatus(), errorResponse{
		Error: fault.Message,
		Kind:  string(fault.Kind),
	})
}
