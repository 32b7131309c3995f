// Package http provides the HTTP adapter for the application layer.
// Handlers translate requests into application service calls; the caller's
// identity arrives in the X-User-Id header, set by the gateway in front of
// this service.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/timesheet-approval/internal/application/service"
	"github.com/campusworks/timesheet-approval/internal/domain/validation"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config           ServerConfig
	httpServer       *http.Server
	router           *gin.Engine
	timesheetService service.TimesheetService
	approvalService  service.ApprovalService
	payrollService   service.PayrollService
	bounds           validation.Bounds
	logger           Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	timesheetService service.TimesheetService,
	approvalService service.ApprovalService,
	payrollService service.PayrollService,
	bounds validation.Bounds,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:           config,
		router:           router,
		timesheetService: timesheetService,
		approvalService:  approvalService,
		payrollService:   payrollService,
		bounds:           bounds,
		logger:           logger,
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

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.timesheetService, s.approvalService, s.payrollService, s.bounds, s.logger)

	// Health check
	s.router.GET("/health", handlers.HealthCheck)

	// API routes; all require the caller identity header
	api := s.router.Group("/api", requireIdentity())
	{
		api.POST("/timesheets", handlers.CreateTimesheet)
		api.GET("/timesheets", handlers.ListTimesheets)
		api.GET("/timesheets/:id", handlers.GetTimesheet)
		api.PUT("/timesheets/:id", handlers.UpdateTimesheet)
		api.DELETE("/timesheets/:id", handlers.DeleteTimesheet)

		api.POST("/timesheets/:id/actions", handlers.PerformAction)
		api.GET("/timesheets/:id/actions", handlers.ValidActions)
		api.GET("/timesheets/:id/history", handlers.History)

		api.GET("/dashboard/summary", handlers.DashboardSummary)
		api.GET("/payroll/export", handlers.PayrollExport)
		api.GET("/config/validation", handlers.ValidationBounds)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
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
