// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/danielhkuo/quickly-predict/aggregate"
	"github.com/danielhkuo/quickly-predict/apperr"
	"github.com/danielhkuo/quickly-predict/capacity"
	"github.com/danielhkuo/quickly-predict/cliparse"
	"github.com/danielhkuo/quickly-predict/middleware"
	"github.com/danielhkuo/quickly-predict/models"
	"github.com/danielhkuo/quickly-predict/validate"
)

// StatsHandler serves the read-only aggregate endpoints.
type StatsHandler struct {
	deps      *Deps
	cfg       cliparse.Config
	reference time.Time
}

func NewStatsHandler(deps *Deps, cfg cliparse.Config) *StatsHandler {
	return &StatsHandler{deps: deps, cfg: cfg, reference: cfg.Reference()}
}

// Stats handles GET /stats
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	state := h.state(r)

	snap, err := h.deps.stats.get(r.Context(), state.Flags.CacheTTL)
	if err != nil {
		middleware.WriteError(w, apperr.Server("Failed to compute statistics", err))
		return
	}

	cacheControl(w, state.Flags.CacheTTL)
	middleware.JSONResponse(w, http.StatusOK, statsResponse(snap, h.cfg.MinSampleSize))
}

// Predictions handles GET /predictions (histogram data)
func (h *StatsHandler) Predictions(w http.ResponseWriter, r *http.Request) {
	state := h.state(r)
	if !state.Flags.ChartsEnabled {
		middleware.WriteError(w, apperr.FeatureDisabled("charts", state.RetryAfter(time.Now())))
		return
	}

	snap, err := h.deps.stats.get(r.Context(), state.Flags.CacheTTL)
	if err != nil {
		middleware.WriteError(w, apperr.Server("Failed to compute histogram", err))
		return
	}

	buckets := snap.Buckets
	if buckets == nil {
		buckets = []aggregate.Bucket{}
	}
	cacheControl(w, state.Flags.CacheTTL)
	middleware.JSONResponse(w, http.StatusOK, models.HistogramResponse{
		Buckets: buckets,
		Total:   snap.Summary.Count,
	})
}

// Degradation handles GET /degradation
func (h *StatsHandler) Degradation(w http.ResponseWriter, r *http.Request) {
	state := h.state(r)
	w.Header().Set("Cache-Control", "no-store")
	middleware.JSONResponse(w, http.StatusOK, models.DegradationResponse{
		Level:              state.Level.String(),
		StatsVisible:       state.Flags.StatsVisible,
		SubmissionsEnabled: state.Flags.SubmissionsEnabled,
		ChartsEnabled:      state.Flags.ChartsEnabled,
		ExtendedCache:      state.Flags.ExtendedCache,
		CacheTTLSeconds:    int(state.Flags.CacheTTL.Seconds()),
		Count:              state.Count,
		Budget:             state.Budget,
		ResetAt:            state.ResetAt,
		Degraded:           state.Degraded,
	})
}

// Status handles GET /status
func (h *StatsHandler) Status(w http.ResponseWriter, r *http.Request) {
	state := h.state(r)

	snap, err := h.deps.stats.get(r.Context(), state.Flags.CacheTTL)
	if err != nil {
		middleware.WriteError(w, apperr.Server("Failed to compute status", err))
		return
	}

	resp := models.StatusResponse{
		ReferenceDate: h.cfg.ReferenceDate,
		Count:         snap.Summary.Count,
	}

	median, ok := parseDate(snap.Median)
	if !ok {
		s := aggregate.NoData()
		resp.Status, resp.Color = s.Status, s.Color
	} else {
		offset := aggregate.DayOffset(median, h.reference)
		s := aggregate.Classify(offset)
		resp.Status, resp.Color = s.Status, s.Color
		resp.DayOffset = &offset
		resp.Median = snap.Median
	}

	cacheControl(w, state.Flags.CacheTTL)
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// Rules handles GET /validation-rules
func (h *StatsHandler) Rules(w http.ResponseWriter, r *http.Request) {
	rules := h.deps.Validator.Rules()
	rules.ChallengeRequired = h.deps.Verifier.Required()
	middleware.JSONResponse(w, http.StatusOK, rules)
}

// state prefers the snapshot admitted by the capacity middleware.
func (h *StatsHandler) state(r *http.Request) capacity.State {
	if s, ok := middleware.CapacityFrom(r.Context()); ok {
		return s
	}
	return h.deps.Monitor.Current(r.Context())
}

func statsResponse(snap snapshot, minSample int) models.StatsResponse {
	return models.StatsResponse{
		Summary:       snap.Summary,
		CachedAt:      snap.CachedAt,
		MinSampleSize: minSample,
	}
}

func parseDate(s *string) (time.Time, bool) {
	if s == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(validate.DateLayout, *s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func cacheControl(w http.ResponseWriter, ttl time.Duration) {
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(ttl.Seconds())))
}
