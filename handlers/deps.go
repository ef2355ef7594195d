// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/quickly-predict/botcheck"
	"github.com/danielhkuo/quickly-predict/cache"
	"github.com/danielhkuo/quickly-predict/capacity"
	"github.com/danielhkuo/quickly-predict/cliparse"
	"github.com/danielhkuo/quickly-predict/identity"
	"github.com/danielhkuo/quickly-predict/metrics"
	"github.com/danielhkuo/quickly-predict/models"
	"github.com/danielhkuo/quickly-predict/ratelimit"
	"github.com/danielhkuo/quickly-predict/store"
	"github.com/danielhkuo/quickly-predict/validate"
)

// Deps bundles the collaborators shared by all handlers.
type Deps struct {
	Store     *store.Store
	Validator *validate.Validator
	Hasher    *identity.Hasher
	Monitor   *capacity.Monitor
	Limiter   ratelimit.Limiter
	Verifier  *botcheck.Verifier
	Cache     cache.Store
	Metrics   *metrics.Manager

	stats *statsService
}

// NewDeps builds every component from the configuration. rdb may be nil, in
// which case counters, cache and rate limits stay in process memory.
func NewDeps(ctx context.Context, db *sql.DB, rdb *redis.Client, cfg cliparse.Config) (*Deps, error) {
	hasher, err := identity.NewHasher(cfg.IPHashSalt, cfg.IPHashSaltVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid hash salt: %w", err)
	}

	validator, err := validate.New(cfg.MinDate, cfg.MaxDate, cfg.MetadataMaxLen)
	if err != nil {
		return nil, fmt.Errorf("invalid validation rules: %w", err)
	}

	var counter capacity.Counter = capacity.NewMemoryCounter()
	var limiter ratelimit.Limiter = ratelimit.NewInMemory(cfg.WriteRateLimit, cfg.WriteRateWindow)
	if rdb != nil {
		counter = capacity.NewRedisCounter(rdb)
		limiter = ratelimit.NewRedis(rdb, cfg.WriteRateLimit, cfg.WriteRateWindow)
	}

	monitor, err := capacity.NewMonitor(counter, capacity.Config{
		Budget:           cfg.DailyBudget,
		Thresholds:       cfg.Thresholds(),
		CacheTTL:         cfg.StatsCacheTTL,
		ExtendedCacheTTL: cfg.ExtendedCacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid capacity config: %w", err)
	}

	st := store.New(db)
	monitor.OnLevelChange = LogLevelChanges(st)

	d := &Deps{
		Store:     st,
		Validator: validator,
		Hasher:    hasher,
		Monitor:   monitor,
		Limiter:   limiter,
		Verifier:  botcheck.New(cfg.TurnstileSecret, cfg.TurnstileURL),
		Cache:     cache.New(ctx, rdb),
		Metrics:   metrics.NewManager(),
	}
	d.stats = newStatsService(d.Store, d.Cache, d.Metrics, cfg.MinSampleSize)
	if !d.Verifier.Enabled() {
		slog.Warn("bot verification disabled (no TURNSTILE_SECRET); challenges are not required")
	}
	return d, nil
}

// LogLevelChanges records capacity level transitions in the ops log.
func LogLevelChanges(st *store.Store) func(from, to capacity.Level, count int64) {
	return func(from, to capacity.Level, count int64) {
		level := models.LevelInfo
		if to > from {
			level = models.LevelWarn
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		st.LogOp(ctx, level, models.EventCapacityLevel,
			fmt.Sprintf("%s -> %s at %d", from, to, count))
	}
}
