package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cimillas/event-lifecycle/internal/app"
	"github.com/cimillas/event-lifecycle/internal/clock"
	"github.com/cimillas/event-lifecycle/internal/config"
	"github.com/cimillas/event-lifecycle/internal/scheduler"
	"github.com/cimillas/event-lifecycle/internal/storage/memory"
	"github.com/cimillas/event-lifecycle/internal/storage/postgres"
	transporthttp "github.com/cimillas/event-lifecycle/internal/transport/http"
	"github.com/cimillas/event-lifecycle/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
)

const startupTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("eventhold-api", pflag.ContinueOnError)
	flags := config.BindFlags(flagSet)
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	config.LoadDotEnv(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg, err := config.Load(flags.Path(os.LookupEnv), os.LookupEnv)
	if err != nil {
		return err
	}
	flags.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		events app.EventRepository
		holds  app.HoldRepository
		health transporthttp.Pinger
	)
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := openPool(ctx, cfg.Storage, logger)
		if err != nil {
			return err
		}
		defer pool.Close()
		events = postgres.NewEventRepository(pool)
		holds = postgres.NewHoldRepository(pool)
		health = pool
	default:
		logger.Warn("using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		events, holds = store, store
	}

	clk := clock.NewSystem()
	reservations := app.NewReservationService(events, holds, clk,
		app.WithSweepBatch(cfg.Sweep.Batch),
		app.WithLogger(logger),
	)
	sweeper := scheduler.NewSweeper(reservations, clk, cfg.Sweep.Interval, logger.With("component", "sweeper"))

	server := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: transporthttp.NewRouter(transporthttp.RouterConfig{
			Events:       app.NewEventService(events, clk),
			Reservations: reservations,
			Sweeper:      sweeper,
			Health:       health,
			Clock:        clk,
			Logger:       logger.With("component", "http"),
			CORSOrigins:  cfg.Server.CORSOrigins,
		}),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	sweepDone := make(chan struct{})
	if cfg.Sweep.Interval > 0 {
		go func() {
			defer close(sweepDone)
			_ = sweeper.Run(ctx)
		}()
	} else {
		logger.Warn("background hold sweeper disabled; expire holds with POST /admin/sweep")
		close(sweepDone)
	}

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("api listening", "addr", server.Addr, "storage", cfg.Storage.Driver)
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
		stop()
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", "error", err)
	}
	<-sweepDone
	logger.Info("server stopped")
	return nil
}

func openPool(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(startupCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	if err := pool.Ping(startupCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	applied, err := migrations.Apply(startupCtx, pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	for _, name := range applied {
		logger.Info("applied migration", "name", name)
	}
	return pool, nil
}
