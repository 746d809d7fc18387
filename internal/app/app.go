package app

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/stockpulse/stockpulse/config"
	"github.com/stockpulse/stockpulse/internal/api"
	"github.com/stockpulse/stockpulse/internal/etl"
	"github.com/stockpulse/stockpulse/internal/marketdata"
	"github.com/stockpulse/stockpulse/internal/service"
	"github.com/stockpulse/stockpulse/internal/storage"
)

// App bundles the wired components the entry point needs to run the service:
// the HTTP router for the read API and the pipeline for scheduled loads.
type App struct {
	Router   *gin.Engine
	Pipeline *etl.Pipeline
}

// InitializeApp sets up all application dependencies and returns
// the assembled App, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Connects to the relational store selected by DB_DRIVER.
//   - Initializes the repository layer (BarsRepository) and applies the schema.
//   - Creates the market-data client and the ETL pipeline.
//   - Creates the HTTP handler layer and configures the Gin router.
//   - Registers health and readiness probes.
//   - Provides a cleanup function to close resources (e.g., DB connection).
func InitializeApp() (*App, func(), error) {
	// Load global configuration
	cfg := config.AppConfig

	// indirection for unit testing
	db, err := dbOpener(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize repository layer (responsible for DB access)
	repo := storage.NewBarsRepository(db, cfg.Database.Driver)
	if err := repo.EnsureSchema(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	// Market-data client and ETL pipeline
	fetcher := marketdata.NewClient(cfg.AlphaVantage)
	pipeline := etl.NewPipeline(fetcher, repo)

	// Initialize service layer (business logic)
	svc := service.NewBarsService(repo)

	// Initialize HTTP handler layer (business logic to HTTP mapping)
	handler := api.NewHandler(svc)

	// Setup Gin router with routes
	router := api.NewRouter(handler)

	// Register health and readiness probes
	healthHandler := api.NewHealthHandler(db.Ping)
	healthHandler.Register(router)

	// Cleanup resources on shutdown
	cleanup := func() {
		_ = db.Close()
	}

	return &App{Router: router, Pipeline: pipeline}, cleanup, nil
}
