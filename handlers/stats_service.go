// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/danielhkuo/quickly-predict/aggregate"
	"github.com/danielhkuo/quickly-predict/cache"
	"github.com/danielhkuo/quickly-predict/metrics"
	"github.com/danielhkuo/quickly-predict/store"
	"github.com/danielhkuo/quickly-predict/validate"
)

const statsCacheKey = "stats:v1"

// snapshot is everything the read endpoints derive from one full scan.
type snapshot struct {
	Summary aggregate.Summary `json:"summary"`
	// Median ignores the minimum sample size; /status classifies it.
	Median   *string            `json:"median"`
	Buckets  []aggregate.Bucket `json:"buckets"`
	CachedAt time.Time          `json:"cached_at"`
}

// statsService recomputes aggregates at most once per cache lifetime.
// Concurrent misses share a single recomputation. A snapshot computed
// before the latest write is never left in the cache.
type statsService struct {
	store     *store.Store
	cache     cache.Store
	metrics   *metrics.Manager
	minSample int
	group     singleflight.Group
	gen       atomic.Uint64
	now       func() time.Time
}

func newStatsService(st *store.Store, c cache.Store, m *metrics.Manager, minSample int) *statsService {
	return &statsService{store: st, cache: c, metrics: m, minSample: minSample, now: time.Now}
}

func (s *statsService) get(ctx context.Context, ttl time.Duration) (snapshot, error) {
	raw, err := s.cache.Get(ctx, statsCacheKey)
	if err == nil {
		var snap snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err == nil {
			s.metrics.RecordCacheLookup(true)
			return snap, nil
		}
		slog.Warn("discarding unreadable stats cache entry")
	} else if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("stats cache read failed", "error", err)
	}
	s.metrics.RecordCacheLookup(false)

	v, err, _ := s.group.Do(statsCacheKey, func() (interface{}, error) {
		return s.fresh(ctx, ttl)
	})
	if err != nil {
		return snapshot{}, err
	}
	return v.(snapshot), nil
}

// fresh recomputes without consulting the cache or joining a shared
// recomputation. Writers call it directly after invalidate, since an
// in-flight recomputation may predate their write. The result is cached
// only if no write happened while it was computed.
func (s *statsService) fresh(ctx context.Context, ttl time.Duration) (snapshot, error) {
	gen := s.gen.Load()
	snap, err := s.compute(ctx)
	if err != nil {
		return snapshot{}, err
	}
	if s.gen.Load() != gen {
		return snap, nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return snap, nil
	}
	if err := s.cache.Set(ctx, statsCacheKey, string(data), ttl); err != nil {
		slog.Warn("stats cache write failed", "error", err)
		return snap, nil
	}
	// A write landed between the check and the Set.
	if s.gen.Load() != gen {
		if err := s.cache.Del(ctx, statsCacheKey); err != nil {
			slog.Warn("stats cache invalidation failed", "error", err)
		}
	}
	return snap, nil
}

func (s *statsService) compute(ctx context.Context) (snapshot, error) {
	points, err := s.store.Points(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("failed to load predictions: %w", err)
	}

	snap := snapshot{
		Summary:  aggregate.Summarize(points, s.minSample),
		Buckets:  aggregate.Histogram(points),
		CachedAt: s.now().UTC(),
	}
	if m, ok := aggregate.WeightedMedian(points); ok {
		d := m.Format(validate.DateLayout)
		snap.Median = &d
	}
	return snap, nil
}

// invalidate drops the cached snapshot after a write and fences off
// recomputations that started before it.
func (s *statsService) invalidate(ctx context.Context) {
	s.gen.Add(1)
	s.group.Forget(statsCacheKey)
	if err := s.cache.Del(ctx, statsCacheKey); err != nil {
		slog.Warn("stats cache invalidation failed", "error", err)
	}
}
