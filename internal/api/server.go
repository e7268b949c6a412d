// Package api exposes the curation pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CurationsLA/lemon/internal/config"
	"github.com/CurationsLA/lemon/internal/logger"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// idleTimeout for keep-alive connections.
const idleTimeout = 120 * time.Second

// Server is the HTTP server with lifecycle management.
type Server struct {
	router *gin.Engine
	server *http.Server
	log    logger.Logger
}

// HealthDeps are the optional probes reported by the health endpoint.
type HealthDeps struct {
	StorePing func(ctx context.Context) error
}

// NewServer builds the gin engine with standard middleware and routes,
// wrapped in an http.Server with the configured timeouts.
func NewServer(cfg *config.Config, handler *Handler, health HealthDeps, gatherer prometheus.Gatherer, log logger.Logger) *Server {
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(Recovery(log))
	router.Use(RequestLogger(log))

	registerRoutes(router, cfg, handler, health, gatherer)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  idleTimeout,
	}

	return &Server{router: router, server: httpServer, log: log}
}

// Router returns the underlying gin engine, used in tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the server and blocks until SIGINT/SIGTERM or context
// cancellation, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting http server", logger.String("address", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		s.log.Info("shutdown signal received", logger.String("signal", sig.String()))
	case <-ctx.Done():
		s.log.Info("context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.log.Info("http server stopped gracefully")
	return nil
}

// registerRoutes wires the API, health, and metrics endpoints.
func registerRoutes(router *gin.Engine, cfg *config.Config, handler *Handler, health HealthDeps, gatherer prometheus.Gatherer) {
	router.GET("/health", healthHandler(cfg, health))
	router.HEAD("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	v1.POST("/content/source", handler.SourceContent)
	v1.POST("/drafts", handler.CreateDraft)
	v1.GET("/batches", handler.ListBatches)
	v1.GET("/batches/:key", handler.GetBatch)
}

// healthHandler reports process status and feature flags. It is cheap and
// side-effect-free; the optional store ping degrades status but never
// blocks for long.
func healthHandler(cfg *config.Config, health HealthDeps) gin.HandlerFunc {
	const pingTimeout = 2 * time.Second

	return func(c *gin.Context) {
		status := "healthy"
		statusCode := http.StatusOK

		checks := gin.H{}
		if health.StorePing != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
			if err := health.StorePing(ctx); err != nil {
				status = "degraded"
				checks["store"] = "unreachable"
			} else {
				checks["store"] = "ok"
			}
			cancel()
		}

		c.JSON(statusCode, gin.H{
			"status":  status,
			"service": cfg.Service.Name,
			"version": cfg.Service.Version,
			"features": gin.H{
				"publishing":      cfg.PublishingEnabled(),
				"daily_schedule":  cfg.Schedule.Enabled,
				"feed_count":      len(cfg.Feeds),
				"min_vibes_score": cfg.Filter.MinScore,
			},
			"checks": checks,
		})
	}
}
