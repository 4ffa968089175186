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

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/statements/cmd/statements/cli"
	statementshttp "github.com/odyssey-erp/statements/internal/accounting/statements/http"
	"github.com/odyssey-erp/statements/internal/accounting/statements/store"
	"github.com/odyssey-erp/statements/internal/app"
	"github.com/odyssey-erp/statements/internal/observability"
	"github.com/odyssey-erp/statements/internal/platform/cache"
	"github.com/odyssey-erp/statements/internal/platform/db"
	"github.com/odyssey-erp/statements/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping statements startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	root := cli.NewRootCommand(cli.Options{
		Connect: func(ctx context.Context) (cli.Backend, func(), error) {
			return connect(ctx, cfg, logger)
		},
		Serve: func(ctx context.Context) error {
			return serve(ctx, cfg, logger)
		},
		Queue: func(context.Context) (cli.IntegrityQueue, func(), error) {
			client, err := jobs.NewClient(redisOpts(cfg))
			if err != nil {
				return nil, nil, err
			}
			return client, func() { _ = client.Close() }, nil
		},
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func connect(ctx context.Context, cfg *app.Config, logger *slog.Logger) (cli.Backend, func(), error) {
	pool, err := db.New(ctx, db.Options{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns, ApplicationName: "statements-cli"})
	if err != nil {
		return cli.Backend{}, nil, err
	}
	services, err := app.NewServices(cfg, app.PostgresBackends(pool), logger, observability.NewMetrics().Registerer())
	if err != nil {
		pool.Close()
		return cli.Backend{}, nil, err
	}
	return cli.Backend{
		Generator:    services.Assembler,
		TrialBalance: services.TrialBalance,
		Ledger:       services.Ledger,
	}, pool.Close, nil
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, db.Options{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns, ApplicationName: "statements-api"})
	if err != nil {
		return err
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	services, err := app.NewServices(cfg, app.PostgresBackends(pool), logger, metrics.Registerer())
	if err != nil {
		return err
	}

	opts := []statementshttp.Option{statementshttp.WithRateLimit(cfg.RateLimit)}
	var jobHandler *jobs.Handler
	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Warn("redis unavailable, asynchronous generation disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		queueOpts := redisOpts(cfg)
		jobsClient, err := jobs.NewClient(queueOpts)
		if err != nil {
			return err
		}
		defer jobsClient.Close()
		inspector := asynq.NewInspector(queueOpts)
		defer inspector.Close()
		opts = append(opts, statementshttp.WithJobs(store.New(redisClient, cfg.ResultTTL), jobsClient))
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	handler := statementshttp.NewHandler(logger, services.Assembler, services.TrialBalance, services.Ledger, opts...)
	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		StatementsHandler: handler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("standard", string(cfg.Standard())))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}

func redisOpts(cfg *app.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}
