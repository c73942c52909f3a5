package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gsclens/gsclens/internal/config"
	"github.com/gsclens/gsclens/internal/errors"
	"github.com/gsclens/gsclens/internal/gsc"
	"github.com/gsclens/gsclens/internal/logging"
	"github.com/gsclens/gsclens/internal/metrics"
	"github.com/gsclens/gsclens/internal/store"
	"github.com/gsclens/gsclens/internal/token"
)

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	config      config.ServerConfig
	apiConfig   config.APIConfig
	propMu      sync.RWMutex
	property    config.PropertyConfig
	client      *gsc.Client
	tokens      *token.Store
	cache       store.Cache
	metrics     *metrics.Metrics
	logger      *logging.Logger
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// Router returns the gin router for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// ApplyConfig swaps in reloaded property settings; report defaults take
// effect on the next request. Routes, auth keys and rate limits are fixed at
// startup, and the GSC client keeps the site it was started with.
func (s *Server) ApplyConfig(propCfg config.PropertyConfig) {
	s.propMu.Lock()
	s.property = propCfg
	s.propMu.Unlock()
}

func (s *Server) propertyConfig() config.PropertyConfig {
	s.propMu.RLock()
	defer s.propMu.RUnlock()
	return s.property
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, apiCfg config.APIConfig, propCfg config.PropertyConfig, client *gsc.Client, tokens *token.Store, cache store.Cache, m *metrics.Metrics, logger *logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	if m == nil {
		m = metrics.NewMetrics("gsclens")
	}
	if logger == nil {
		logger = logging.NewLogger()
	}

	requestsPerMinute := apiCfg.RateLimit.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = 600
	}
	burst := apiCfg.RateLimit.Burst
	if burst <= 0 {
		burst = 50
	}
	rateLimiter := newIPRateLimiter(time.Minute/time.Duration(requestsPerMinute), burst)

	server := &Server{
		router:      gin.New(),
		config:      cfg,
		apiConfig:   apiCfg,
		property:    propCfg,
		client:      client,
		tokens:      tokens,
		cache:       cache,
		metrics:     m,
		logger:      logger,
		rateLimiter: rateLimiter,
	}
	server.router.HandleMethodNotAllowed = true

	server.router.Use(gin.Recovery())
	server.router.Use(rateLimitMiddleware(rateLimiter))
	server.router.Use(bodyLimitMiddleware(1 << 20))
	server.router.Use(metrics.Middleware(m, logger))
	server.router.Use(loggingMiddleware(logger))

	server.setupRoutes()
	return server
}

// loggingMiddleware provides structured logging for all requests
func loggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = logging.GenerateCorrelationID()
		}

		ctx := logging.WithCorrelationID(c.Request.Context(), correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		duration := time.Since(start).Seconds()
		logger.InfoWithContext(ctx, "request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_seconds", duration,
		)
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint - NO authentication required
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	// Health check - NO authentication required
	s.router.GET("/health", s.handleHealth)

	if len(s.apiConfig.Auth.APIKeys) > 0 {
		s.logger.Info("API key auth enabled", "keys", MaskAPIKeys(s.apiConfig.Auth.APIKeys))
	}
	authMiddleware := APIKeyAuth(s.apiConfig.Auth.APIKeys, s.apiConfig.Auth.HeaderName, s.logger)

	base := s.router.Group(s.apiConfig.BasePath)
	base.Use(authMiddleware)
	{
		base.GET("/auth/status", s.handleAuthStatus)

		base.GET("/report/performance", s.handlePerformance)
		base.GET("/report/queries", s.handleTopQueries)
		base.GET("/report/pages", s.handleTopPages)
		base.GET("/report/countries", s.handleCountries)
		base.GET("/report/devices", s.handleDevices)
		base.GET("/report/query-pages", s.handleQueryPages)
		base.GET("/report/export", s.handleExport)
		base.GET("/report/tips", s.handleTips)

		base.GET("/sites", s.handleListSites)
		base.GET("/sitemaps", s.handleListSitemaps)
		base.PUT("/sitemaps", s.handleSubmitSitemap)
		base.DELETE("/sitemaps", s.handleDeleteSitemap)

		base.POST("/inspect", s.handleInspect)
		base.POST("/inspect/batch", s.handleBatchInspect)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.HTTPPort)

	if s.httpServer == nil {
		s.httpServer = NewHTTPServer(addr, s.router)
	}

	s.logger.Info("starting HTTP server", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return &errors.ErrServerStart{Addr: addr, Err: err}
	}
	return nil
}

// Shutdown gracefully shuts down the server and closes the cache store
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	if s.httpServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.logger.Info("shutting down HTTP server")
			if err := s.httpServer.Shutdown(ctx); err != nil {
				s.logger.Error("HTTP server shutdown error", "error", err.Error())
				errs <- &errors.ErrServerShutdown{Err: err}
			}
		}()
	}

	if s.cache != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.cache.Close(); err != nil {
				errs <- fmt.Errorf("cache close: %w", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	close(errs)
	var errList []error
	for err := range errs {
		if err != nil {
			errList = append(errList, err)
		}
	}
	if len(errList) > 0 {
		return fmt.Errorf("shutdown errors: %v", errList)
	}

	s.logger.Info("graceful shutdown completed")
	return nil
}

// handleHealth returns health status
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"property":  s.propertyConfig().SiteURL,
	})
}
