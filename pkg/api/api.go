// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/telekom/mailguard/pkg/config"
	"github.com/telekom/mailguard/pkg/metrics"
	"github.com/telekom/mailguard/pkg/system"
)

type APIController interface {
	BasePath() string
	Register(rg *gin.RouterGroup) error
	Handlers() []gin.HandlerFunc
}

type Server struct {
	gin    *gin.Engine
	config config.Server
	http   *http.Server
	log    *zap.SugaredLogger
}

// NewServer builds the gin engine with request logging, recovery, optional
// CORS, and the /healthz and /metrics endpoints.
func NewServer(log *zap.Logger, cfg config.Server, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
		system.RequestLogger(log.Sugar().Named("api")),
	)

	if len(cfg.AllowedOrigins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", system.RequestIDHeader},
			MaxAge:       12 * time.Hour,
		}))
	}

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	timeouts := cfg.GetServerTimeouts()
	s := &Server{
		gin:    engine,
		config: cfg,
		log:    log.Sugar().Named("api"),
	}
	s.http = &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           engine,
		ReadHeaderTimeout: timeouts.GetReadHeaderTimeout(),
		ReadTimeout:       timeouts.GetReadTimeout(),
		WriteTimeout:      timeouts.GetWriteTimeout(),
		IdleTimeout:       timeouts.GetIdleTimeout(),
		MaxHeaderBytes:    timeouts.GetMaxHeaderBytes(),
	}
	return s
}

// RegisterAll mounts every controller below /api/<BasePath>.
func (s *Server) RegisterAll(controllers []APIController) error {
	r := s.gin.Group("api")
	for _, c := range controllers {
		if err := c.Register(r.Group(c.BasePath(), c.Handlers()...)); err != nil {
			return err
		}
	}
	return nil
}

// Handler exposes the engine for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Listen serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Listen() error {
	s.log.Infow("Starting API server", "address", s.config.ListenAddress)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down API server")
	return s.http.Shutdown(ctx)
}
