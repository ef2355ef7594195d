// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/quickly-predict/cliparse"
	"github.com/danielhkuo/quickly-predict/db"
	"github.com/danielhkuo/quickly-predict/handlers"
	"github.com/danielhkuo/quickly-predict/middleware"
	"github.com/danielhkuo/quickly-predict/router"
	"github.com/danielhkuo/quickly-predict/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	logger, closeLog := cliparse.SetupLogger(cliparse.ParseLevel(cfg.LogLevel), cfg.LogFile)
	defer closeLog()
	slog.SetDefault(logger)

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg cliparse.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to the database
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		return err
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	if cfg.PurgeOpsLog {
		return purgeOpsLog(ctx, store.New(dbConn), cfg.OpsLogRetention)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		slog.Info("Using Redis for counters, cache and rate limits", "addr", cfg.RedisAddr)
	} else {
		slog.Info("No Redis configured, using in-process counters and cache")
	}

	deps, err := handlers.NewDeps(ctx, dbConn, rdb, cfg)
	if err != nil {
		return err
	}

	// Create server
	mux := router.NewRouter(deps, cfg)
	server := &http.Server{
		Handler:           middleware.CORS(cfg.AllowedOrigins)(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Wait for Ctrl-C or a listener failure
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("Shutting down")
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	slog.Info("Server closed", "error", err)
	return err
}

// purgeOpsLog is the one-shot mode run by an external scheduler.
func purgeOpsLog(ctx context.Context, st *store.Store, retention time.Duration) error {
	cutoff := time.Now().UTC().Add(-retention)
	n, err := st.PurgeOpsLog(ctx, cutoff)
	if err != nil {
		return err
	}
	slog.Info("Purged ops log", "deleted", n, "before", cutoff.Format(time.RFC3339))
	return nil
}
