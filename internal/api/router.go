// Package api serves the price table and next-day predictions over HTTP (read-only).
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/wonny/trendcast/internal/api/handlers"
	"github.com/wonny/trendcast/internal/api/middleware"
	"github.com/wonny/trendcast/internal/domain/price"
	"github.com/wonny/trendcast/internal/pkg/config"
	"github.com/wonny/trendcast/internal/pkg/logger"
)

// Deps are the read-side collaborators of the API
type Deps struct {
	Health    handlers.HealthChecker
	Reader    price.TableReader
	Predictor handlers.Predictor
}

// Router holds all dependencies for API routing
type Router struct {
	engine            *gin.Engine
	config            *config.Config
	healthHandler     *handlers.HealthHandler
	priceHandler      *handlers.PriceHandler
	predictionHandler *handlers.PredictionHandler
}

// NewRouter creates a new API router with all dependencies
func NewRouter(cfg *config.Config, deps Deps, version string) *Router {
	switch cfg.Server.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.Server.Mode)
	default:
		log.Warn().Str("mode", cfg.Server.Mode).Msg("Unknown GIN_MODE, using release")
		gin.SetMode(gin.ReleaseMode)
	}

	router := &Router{
		engine:            gin.New(),
		config:            cfg,
		healthHandler:     handlers.NewHealthHandler(deps.Health, cfg.Database.Table, version),
		priceHandler:      handlers.NewPriceHandler(deps.Reader, cfg.Market.Symbol),
		predictionHandler: handlers.NewPredictionHandler(deps.Predictor),
	}

	router.setupMiddlewares()
	router.setupRoutes()

	return router
}

// setupMiddlewares configures all global middlewares
func (r *Router) setupMiddlewares() {
	// Recovery must be first
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	accessLogger := log.Logger
	if r.config.Logging.FileEnabled {
		accessLogger = logger.NewAccessLogger(
			r.config.Logging.FilePath,
			r.config.Logging.RotationSize,
			r.config.Logging.RetentionDays,
		)
	}
	r.engine.Use(middleware.Logging(middleware.LoggingConfig{
		AccessLogger: &accessLogger,
		SkipPaths:    []string{"/health", "/health/ready"},
	}))

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowOrigins: r.config.Server.CORSOrigins,
		MaxAge:       int((12 * time.Hour).Seconds()),
	}))
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	// Health checks (no /api prefix)
	r.engine.GET("/health", r.healthHandler.Health)
	r.engine.GET("/health/ready", r.healthHandler.Ready)

	api := r.engine.Group("/api")
	{
		api.GET("/health/detailed", r.healthHandler.Detailed)

		prices := api.Group("/prices")
		{
			prices.GET("", r.priceHandler.List)
			prices.GET("/latest", r.priceHandler.Latest)
		}

		api.GET("/predictions", r.predictionHandler.Get)
	}
}

// Engine returns the underlying Gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Server returns an http.Server bound to the configured port
func (r *Router) Server() *http.Server {
	return &http.Server{
		Addr:              ":" + r.config.Server.Port,
		Handler:           r.engine,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
}
