package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	adapthttp "bmicalc/internal/adapter/http"
	"bmicalc/internal/adapter/memory"
	"bmicalc/internal/adapter/postgres"
	"bmicalc/internal/adapter/sqlite"
	"bmicalc/internal/app"
	"bmicalc/internal/config"
	"bmicalc/internal/domain"
	"bmicalc/internal/logging"
	"bmicalc/internal/metrics"
)

func newServeCmd(v *viper.Viper, configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return config.BindFlags(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, *configFile)
			if err != nil {
				return err
			}
			logger := logging.Setup(os.Stderr, cfg.LogLevel)
			return serve(cmd.Context(), cfg, logger)
		},
	}

	f := cmd.Flags()
	f.String("addr", ":8080", "Listen address")
	f.String("web-dir", "web", "Directory holding index.html")
	f.String("store", config.StoreMemory, "History store: memory, postgres or sqlite")
	f.String("database-url", "", "PostgreSQL connection string")
	f.String("sqlite-path", "data/bmi.db", "SQLite database file")
	f.Duration("session-ttl", 30*time.Minute, "Idle time after which a session and its history are dropped")
	f.Duration("sweep-interval", time.Minute, "How often expired sessions are removed")
	f.String("log-level", "info", "Log level: debug, info, warn, error")
	return cmd
}

type store interface {
	domain.HistoryRepository
	domain.SessionRepository
}

func openStore(cfg *config.Config) (store, func() error, error) {
	switch cfg.Store {
	case config.StorePostgres:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db open: %w", err)
		}
		return db, db.Close, nil
	case config.StoreSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("db open: %w", err)
		}
		return db, db.Close, nil
	default:
		return memory.New(), func() error { return nil }, nil
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.NewBMIMetrics(reg)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()
	logger.Info("store ready", "store", cfg.Store)

	bmiSvc := app.NewBMIService(st, logger, m)
	sessionSvc := app.NewSessionService(st, cfg.SessionTTL, logger, m)

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go sessionSvc.RunJanitor(janitorCtx, cfg.SweepInterval)

	h := adapthttp.New(bmiSvc, sessionSvc, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), logger, cfg.WebDir).Handler()
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
