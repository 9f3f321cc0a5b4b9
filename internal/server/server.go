package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/matthieukhl/loyaltydesk/internal/service"
)

const version = "0.1.0"

// HealthChecker is satisfied by the ledger database
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Server struct {
	router  *gin.Engine
	loyalty *service.Loyalty
	db      HealthChecker
	logger  *slog.Logger
}

// NewServer creates a new server instance. db may be nil when the ledger
// is kept in memory.
func NewServer(loyalty *service.Loyalty, db HealthChecker, logger *slog.Logger) *Server {
	router := gin.New()
	router.Use(requestID(), requestLogger(logger), gin.Recovery())

	server := &Server{
		router:  router,
		loyalty: loyalty,
		db:      db,
		logger:  logger,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthCheck)
		api.GET("/dashboard", s.dashboard)
		api.GET("/profile", s.profile)
		api.GET("/history", s.history)

		api.GET("/catalog", s.catalog)
		api.GET("/rewards/:id", s.reward)
		api.POST("/rewards/:id/redeem", s.redeem)
		api.GET("/products", s.products)

		api.GET("/conversions", s.conversions)
		api.GET("/conversions/lookups", s.conversionLookups)
		api.POST("/conversions", s.submitConversion)
		api.POST("/orders/preview", s.previewOrder)
		api.POST("/orders", s.createOrder)
		api.GET("/submissions", s.submissions)

		api.POST("/points/transfer", s.transferPoints)
		api.POST("/scans", s.scan)
		api.GET("/coverage", s.coverage)
		api.GET("/coverage/products", s.coverageProducts)
		api.GET("/survey", s.survey)
		api.POST("/survey", s.submitSurvey)
		api.GET("/referral", s.referral)
		api.POST("/referral/share", s.shareReferral)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// healthCheck endpoint for monitoring
func (s *Server) healthCheck(c *gin.Context) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "error",
				"error":  "database connection failed",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "loyaltydesk",
		"source":  s.loyalty.SourceName(),
		"version": version,
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
