package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/phishguard/phishguard/internal/alerts"
	"github.com/phishguard/phishguard/internal/analyzer"
	"github.com/phishguard/phishguard/internal/app"
	"github.com/phishguard/phishguard/internal/handlers"
	"github.com/phishguard/phishguard/internal/middleware"
	"github.com/phishguard/phishguard/internal/realtime"
)

// Dependencies collects the services the router exposes over HTTP.
type Dependencies struct {
	Config    *app.Config
	DB        *gorm.DB
	Store     *alerts.Store
	Presenter *alerts.Presenter
	Sweeper   *alerts.Sweeper
	Hub       *realtime.Hub
	Analyzer  *analyzer.Client
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("alert store must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	if limit := deps.Config.Server.RateLimit; limit.Enabled {
		r.Use(middleware.RateLimit(limit.Requests, limit.Window))
	}

	registerHealthRoutes(r, deps.Config, deps.DB)

	api := r.Group("/api")

	alertHandler := handlers.NewAlertHandler(deps.Store, deps.Presenter, deps.Sweeper, deps.Hub)
	registerAlertRoutes(api, alertHandler)

	if deps.Analyzer != nil {
		analyzeHandler := handlers.NewAnalyzeHandler(deps.Analyzer, deps.Store, analyzer.NewHistory(deps.DB))
		registerAnalyzeRoutes(api, analyzeHandler)
	}

	registerMonitoringRoutes(r, deps.Config)

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
