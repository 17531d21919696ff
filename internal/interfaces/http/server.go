// Package http exposes the attendance workflows over a JSON API.
// Handlers only translate requests; all rules live in the application services.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/vendor-attendance/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// MaxUploadBytes caps swipe workbook uploads
	MaxUploadBytes int64
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxUploadBytes:  20 << 20,
	}
}

// Services bundles the application services the API exposes
type Services struct {
	Vendors    service.VendorService
	Holidays   service.HolidayService
	Statuses   service.StatusService
	Mismatches service.MismatchService
	Billing    service.BillingService
	Reports    service.ReportService
	Imports    service.SwipeImportService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		services: services,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

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
			"actor", c.GetHeader(ActorHeader),
			"client_ip", c.ClientIP(),
		)
	}
}

func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.config.MaxUploadBytes, s.logger)

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	{
		api.POST("/managers", h.CreateManager)
		api.GET("/managers", h.ListManagers)
		api.GET("/managers/:id/team", h.ListTeam)

		api.POST("/vendors", h.CreateVendor)
		api.GET("/vendors/:id", h.GetVendor)
		api.PUT("/vendors/:id/manager", h.AssignManager)
		api.DELETE("/vendors/:id", h.DeactivateVendor)
		api.GET("/vendors/:id/statuses", h.ListStatuses)
		api.GET("/vendors/:id/corrections", h.CorrectionHistory)

		api.GET("/holidays", h.ListHolidays)
		api.POST("/holidays", h.AddHoliday)
		api.DELETE("/holidays/:date", h.RemoveHoliday)

		api.POST("/statuses", h.SubmitStatus)
		api.GET("/statuses/:id", h.GetStatus)
		api.POST("/statuses/:id/approve", h.ApproveStatus)
		api.POST("/statuses/:id/reject", h.RejectStatus)

		api.POST("/mismatches/detect", h.DetectMismatches)
		api.GET("/mismatches/:id", h.GetMismatch)
		api.POST("/mismatches/:id/explain", h.ExplainMismatch)
		api.POST("/mismatches/:id/approve", h.ApproveMismatch)
		api.POST("/mismatches/:id/reject", h.RejectMismatch)

		api.GET("/billing/window", h.BillingWindow)
		api.POST("/billing/corrections", h.CorrectHours)

		api.GET("/reports/reconciliation", h.Reconciliation)
		api.GET("/audit/:table/:id", h.AuditTrail)

		api.POST("/imports/swipes", h.ImportSwipes)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled
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
