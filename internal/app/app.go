package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/lxplabs/recflow/internal/config"
	"github.com/lxplabs/recflow/internal/handlers"
	"github.com/lxplabs/recflow/internal/middleware"
	"github.com/lxplabs/recflow/internal/services"
)

type App struct {
	config   *config.Config
	logger   *logrus.Logger
	services *services.Services
	handlers *handlers.Handlers
	router   *gin.Engine
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	svc, err := services.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = svc

	app.handlers, err = handlers.New(app.logger, svc)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")
	a.services.Close()
	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS())

	// Health check endpoints (no auth required)
	router.GET("/health", a.handlers.Health.Health)
	router.GET("/health/detailed", a.handlers.Health.DetailedHealth)

	// Prometheus metrics endpoint (no auth required)
	if a.config.Monitoring.Enabled {
		router.GET(a.config.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	// Engine routes
	engine := router.Group("/engine")
	{
		if a.config.Auth.Enabled {
			engine.Use(middleware.Auth(a.config.Auth.JWTSecret, a.logger))
		}

		engine.POST("/process", a.handlers.Engine.Process)
		engine.GET("/jobs/:jobId", a.handlers.Engine.GetJobStatus)
	}

	a.router = router
}
