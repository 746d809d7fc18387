package main

//
//  @title           stockpulse API
//  @version         1.0
//  @description     Daily stock price ETL and query service.
//  @termsOfService  https://github.com/stockpulse/stockpulse
//  @contact.name    API Support
//  @contact.url     https://github.com/stockpulse/stockpulse
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        bars
//  @tag.description Endpoints for querying stored daily price bars
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stockpulse/stockpulse/config"
	_ "github.com/stockpulse/stockpulse/docs" // swagger docs
	"github.com/stockpulse/stockpulse/internal/app"
	"github.com/stockpulse/stockpulse/internal/etl"
	"github.com/stockpulse/stockpulse/internal/logger"
	"github.com/stockpulse/stockpulse/internal/marketdata"
	"github.com/stockpulse/stockpulse/internal/scheduler"
	"github.com/stockpulse/stockpulse/internal/storage"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// awaitShutdown blocks until ctx is cancelled, then drains the HTTP server
// and runs the cleanup callback.
func awaitShutdown(ctx context.Context, server *http.Server, cleanup func()) error {
	<-ctx.Done()
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	cleanup()
	return err
}

// runETL performs a single fetch-transform-load pass over the given symbols
// and reports the per-symbol outcome.
//
// Returns:
//   - int: number of symbols that failed.
//   - error: a run-level failure (DB connection, schema, overlapping run).
func runETL(ctx context.Context, symbols []string) (int, error) {
	// Direct DB connection for the one-shot run
	db, err := app.InitDB(config.AppConfig)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()

	repo := storage.NewBarsRepository(db, config.AppConfig.Database.Driver)
	fetcher := marketdata.NewClient(config.AppConfig.AlphaVantage)
	pipeline := etl.NewPipeline(fetcher, repo)

	res, err := pipeline.Run(ctx, symbols)
	if err != nil {
		return 0, err
	}

	for _, sr := range res.Symbols {
		if sr.Failed() {
			logger.L().Error().
				Str("symbol", sr.Symbol).
				Str("kind", sr.ErrKind).
				Str("error", sr.ErrMsg).
				Msg("symbol failed")
			continue
		}
		logger.L().Info().
			Str("symbol", sr.Symbol).
			Int("rows", sr.Rows).
			Msg("symbol loaded")
	}

	logger.L().Info().
		Str("run_id", res.RunID).
		Int("succeeded", res.Succeeded()).
		Int("failed", res.Failed()).
		Msg("run finished")

	return res.Failed(), nil
}

// runServe starts the REST API and the daily scheduler, and keeps both
// running until an OS interrupt signal (SIGINT, SIGTERM) is received.
func runServe(symbols []string, port, at string) {
	a, cleanup, err := app.InitializeApp()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("app init error")
	}

	sched, err := scheduler.NewScheduler(a.Pipeline, symbols, at)
	if err != nil {
		cleanup()
		logger.L().Fatal().Err(err).Msg("scheduler init error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := startServer(a.Router, port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sched.Start()
		<-gctx.Done()
		sched.Stop()
		return nil
	})
	g.Go(func() error {
		return awaitShutdown(gctx, server, cleanup)
	})

	if err := g.Wait(); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}
	logger.L().Info().Msg("server exited gracefully")
}

// splitSymbols parses the --symbols flag into uppercase tickers.
func splitSymbols(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// main is the entry point of the stockpulse application.
//
// Modes (selected via --mode flag):
//   - etl:   Runs one fetch-transform-load pass for the configured symbols and exits.
//   - serve: Starts the REST API and the daily scheduler.
//
// Flags:
//   - --mode:    Execution mode ("etl" or "serve"). Default: "etl".
//   - --symbols: Comma-separated tickers. Defaults to value from config (SYMBOLS).
//   - --port:    Port for the API server. Defaults to value from config (SERVER_PORT).
//   - --at:      Daily schedule time "HH:MM" in UTC. Defaults to value from config (SCHEDULE_AT).
func main() {
	ctx := context.Background()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	// Parse CLI flags (override config defaults if provided)
	mode := flag.String("mode", "etl", "Mode: etl or serve")
	symbols := flag.String("symbols", "", "Comma-separated tickers (defaults to SYMBOLS)")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for serve mode")
	at := flag.String("at", config.AppConfig.ETL.ScheduleAt, "Daily schedule time HH:MM in UTC")
	flag.Parse()

	syms := config.AppConfig.ETL.Symbols
	if *symbols != "" {
		syms = splitSymbols(*symbols)
	}
	if len(syms) == 0 {
		logger.L().Fatal().Msg("no symbols to process")
	}

	switch *mode {
	case "etl":
		logger.L().Info().Strs("symbols", syms).Msg("running one-shot load")
		failed, err := runETL(ctx, syms)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("run failed")
		}
		if failed > 0 {
			os.Exit(1)
		}

	case "serve":
		logger.L().Info().Msg("starting API server")
		runServe(syms, *port, *at)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
