// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/approval-router/internal/application/port"
	"github.com/garyjia/approval-router/internal/application/service"
	"github.com/garyjia/approval-router/internal/domain/entity"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// LeaveBalances reads and maintains leave entitlements
type LeaveBalances interface {
	AvailableBalance(ctx context.Context, userID string, leaveType entity.RequestType, year int) (int, error)
	SetEntitlement(ctx context.Context, userID string, leaveType entity.RequestType, year, days int) error
}

// HealthFunc reports overall health plus per-component details
type HealthFunc func(ctx context.Context) (bool, interface{})

// Dependencies are the application services the handlers call
type Dependencies struct {
	Requests      service.RequestService
	Notifications service.NotificationService
	Leave         LeaveBalances
	Users         port.UserRepository
	Exporter      port.RegisterExporter
	Health        HealthFunc
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Mode            string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Mode:            gin.ReleaseMode,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	deps       Dependencies
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, deps Dependencies, logger Logger) *Server {
	if config.Mode == "" {
		config.Mode = gin.ReleaseMode
	}
	gin.SetMode(config.Mode)

	server := &Server{
		config: config,
		router: gin.New(),
		deps:   deps,
		logger: logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"user_id", c.GetString(actorKey),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.deps, s.logger)

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api", requireActor())
	{
		api.POST("/requests", h.CreateRequest)
		api.GET("/requests", h.ListRequests)
		api.GET("/requests/:id", h.GetRequest)
		api.GET("/requests/:id/history", h.GetHistory)
		api.GET("/requests/:id/notifications", h.ListRequestNotifications)
		api.GET("/requests/:id/can-approve", h.CanApprove)
		api.POST("/requests/:id/decisions", h.Decide)

		api.GET("/inbox", h.Inbox)
		api.GET("/routing", h.PreviewRouting)
		api.GET("/leave/balance", h.LeaveBalance)
		api.GET("/reports/register.xlsx", h.ExportRegister)

		admin := api.Group("/admin", h.requireAdmin())
		{
			admin.PUT("/users/:id", h.UpsertUser)
			admin.PUT("/entitlements", h.SetEntitlement)
			admin.GET("/notifications/pending", h.ListPendingNotifications)
			admin.POST("/notifications/:id/sent", h.MarkNotificationSent)
			admin.POST("/notifications/:id/failed", h.MarkNotificationFailed)
		}
	}
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
