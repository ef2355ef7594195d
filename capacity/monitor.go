// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package capacity

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// Level is the degradation tier. Levels are ordered.
type Level int

const (
	LevelNormal Level = iota
	LevelElevated
	LevelHigh
	LevelCritical
	LevelExceeded
)

var levelNames = [...]string{"normal", "elevated", "high", "critical", "exceeded"}

func (l Level) String() string {
	if l < LevelNormal || l > LevelExceeded {
		return "unknown"
	}
	return levelNames[l]
}

func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// Thresholds are fractions of the daily budget at which each level starts.
type Thresholds struct {
	Elevated float64
	High     float64
	Critical float64
	Exceeded float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Elevated: 0.80, High: 0.90, Critical: 0.95, Exceeded: 1.00}
}

func (t Thresholds) Validate() error {
	if !(t.Elevated > 0 && t.Elevated < t.High && t.High < t.Critical && t.Critical < t.Exceeded && t.Exceeded <= 1) {
		return errors.New("capacity thresholds must be strictly ascending within (0, 1]")
	}
	return nil
}

// Flags is the feature bundle derived from a Level.
type Flags struct {
	StatsVisible       bool
	SubmissionsEnabled bool
	ChartsEnabled      bool
	ExtendedCache      bool
	CacheTTL           time.Duration
}

// State is a snapshot for one request. It is never persisted.
type State struct {
	Level    Level
	Flags    Flags
	Count    int64
	Budget   int64
	ResetAt  time.Time
	Degraded bool
}

// RetryAfter is the wait until the next daily reset.
func (s State) RetryAfter(now time.Time) time.Duration {
	d := s.ResetAt.Sub(now)
	if d < time.Second {
		return time.Second
	}
	return d
}

type Config struct {
	Budget           int64
	Thresholds       Thresholds
	CacheTTL         time.Duration
	ExtendedCacheTTL time.Duration
}

// Monitor derives the degradation state from the shared counter.
type Monitor struct {
	counter Counter
	cfg     Config
	now     func() time.Time

	// degraded is set while the counter store is unreachable
	degraded  atomic.Bool
	lastLevel atomic.Int32

	// OnLevelChange, if set, is called when consecutive reads change level.
	OnLevelChange func(from, to Level, count int64)
}

func NewMonitor(counter Counter, cfg Config) (*Monitor, error) {
	if counter == nil {
		return nil, errors.New("capacity counter is required")
	}
	if cfg.Budget <= 0 {
		return nil, errors.New("daily budget must be positive")
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.ExtendedCacheTTL < cfg.CacheTTL {
		cfg.ExtendedCacheTTL = 3 * cfg.CacheTTL
	}
	return &Monitor{counter: counter, cfg: cfg, now: time.Now}, nil
}

// WithClock replaces the time source; for tests.
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.now = now
	return m
}

// LevelFor is a pure function of the count and the fixed thresholds.
func (m *Monitor) LevelFor(count int64) Level {
	ratio := float64(count) / float64(m.cfg.Budget)
	t := m.cfg.Thresholds
	switch {
	case ratio >= t.Exceeded:
		return LevelExceeded
	case ratio >= t.Critical:
		return LevelCritical
	case ratio >= t.High:
		return LevelHigh
	case ratio >= t.Elevated:
		return LevelElevated
	default:
		return LevelNormal
	}
}

// FlagsFor maps a level to its features. Stats stay readable at every level.
func (m *Monitor) FlagsFor(l Level) Flags {
	f := Flags{
		StatsVisible:       true,
		SubmissionsEnabled: l < LevelExceeded,
		ChartsEnabled:      l < LevelHigh,
		ExtendedCache:      l >= LevelHigh,
		CacheTTL:           m.cfg.CacheTTL,
	}
	if f.ExtendedCache {
		f.CacheTTL = m.cfg.ExtendedCacheTTL
	}
	return f
}

// Admit counts one request and returns the resulting state.
func (m *Monitor) Admit(ctx context.Context) State {
	now := m.now()
	count, err := m.counter.IncrementAndRead(ctx, now)
	return m.state(now, count, err)
}

// Current returns the state without counting.
func (m *Monitor) Current(ctx context.Context) State {
	now := m.now()
	count, err := m.counter.Read(ctx, now)
	return m.state(now, count, err)
}

// Reset clears today's counter.
func (m *Monitor) Reset(ctx context.Context) error {
	return m.counter.Reset(ctx, m.now())
}

// Degraded reports whether the last counter access failed.
func (m *Monitor) Degraded() bool { return m.degraded.Load() }

func (m *Monitor) state(now time.Time, count int64, err error) State {
	if err != nil {
		// Fail open: an unreachable counter must not block traffic.
		if !m.degraded.Swap(true) {
			slog.Warn("capacity counter unavailable, failing open to normal", "error", err)
		}
		return State{
			Level:    LevelNormal,
			Flags:    m.FlagsFor(LevelNormal),
			Budget:   m.cfg.Budget,
			ResetAt:  NextReset(now),
			Degraded: true,
		}
	}
	if m.degraded.Swap(false) {
		slog.Info("capacity counter recovered", "count", count)
	}

	level := m.LevelFor(count)
	if prev := Level(m.lastLevel.Swap(int32(level))); prev != level {
		slog.Info("capacity level changed", "from", prev.String(), "to", level.String(), "count", count, "budget", m.cfg.Budget)
		if m.OnLevelChange != nil {
			m.OnLevelChange(prev, level, count)
		}
	}

	return State{
		Level:   level,
		Flags:   m.FlagsFor(level),
		Count:   count,
		Budget:  m.cfg.Budget,
		ResetAt: NextReset(now),
	}
}
