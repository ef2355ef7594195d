// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/quickly-predict/aggregate"
	"github.com/danielhkuo/quickly-predict/apperr"
	"github.com/danielhkuo/quickly-predict/cliparse"
	"github.com/danielhkuo/quickly-predict/identity"
	"github.com/danielhkuo/quickly-predict/middleware"
	"github.com/danielhkuo/quickly-predict/models"
	"github.com/danielhkuo/quickly-predict/store"
	"github.com/danielhkuo/quickly-predict/validate"
)

// Validation rules raised here rather than by the validator.
const (
	RuleInvalidJSON         = "invalid_json"
	RuleAddressUnresolvable = "address_unresolvable"
	FieldBody               = "body"
	FieldNetwork            = "network"
)

type PredictionHandler struct {
	deps      *Deps
	cfg       cliparse.Config
	reference time.Time
}

func NewPredictionHandler(deps *Deps, cfg cliparse.Config) *PredictionHandler {
	return &PredictionHandler{deps: deps, cfg: cfg, reference: cfg.Reference()}
}

// submission is a request that passed validation, identity and pacing.
type submission struct {
	token  string
	issued bool
	record store.NewPrediction
}

// Create handles POST /predict
func (h *PredictionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sub, err := h.prepare(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	pred, err := h.deps.Store.Insert(r.Context(), sub.record)
	if err != nil {
		middleware.WriteError(w, h.conflict(r, err, sub.record.IPHash))
		return
	}

	slog.Info("prediction created", "id", pred.ID, "weight", pred.Weight)
	h.deps.Metrics.RecordSubmission("created")
	h.respond(w, r, sub, pred, true)
}

// Update handles PUT /predict. It creates the prediction when the caller
// has none yet, so repeating the same request is harmless.
func (h *PredictionHandler) Update(w http.ResponseWriter, r *http.Request) {
	sub, err := h.prepare(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	pred, isNew, err := h.deps.Store.Upsert(r.Context(), sub.record)
	if err != nil {
		middleware.WriteError(w, h.conflict(r, err, sub.record.IPHash))
		return
	}

	if isNew {
		slog.Info("prediction created", "id", pred.ID, "weight", pred.Weight)
		h.deps.Metrics.RecordSubmission("created")
	} else {
		slog.Info("prediction updated", "id", pred.ID, "weight", pred.Weight)
		h.deps.Metrics.RecordSubmission("updated")
	}
	h.respond(w, r, sub, pred, isNew)
}

// Get handles GET /predict
func (h *PredictionHandler) Get(w http.ResponseWriter, r *http.Request) {
	token, ok := identity.ClientToken(r)
	if !ok {
		middleware.WriteError(w, apperr.NotFound("No prediction found"))
		return
	}

	pred, err := h.deps.Store.GetByToken(r.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteError(w, apperr.NotFound("No prediction found"))
		return
	}
	if err != nil {
		middleware.WriteError(w, apperr.Server("Failed to load prediction", err))
		return
	}

	middleware.JSONResponse(w, http.StatusOK, pred)
}

// Delete handles DELETE /predict (data erasure)
func (h *PredictionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	token, ok := identity.ClientToken(r)
	if !ok {
		middleware.WriteError(w, apperr.NotFound("No prediction found"))
		return
	}

	err := h.deps.Store.DeleteByToken(r.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteError(w, apperr.NotFound("No prediction found"))
		return
	}
	if err != nil {
		middleware.WriteError(w, apperr.Server("Failed to delete prediction", err))
		return
	}

	h.deps.stats.invalidate(r.Context())
	h.deps.Store.LogOp(r.Context(), models.LevelInfo, models.EventErasure, "")
	slog.Info("prediction erased")

	w.WriteHeader(http.StatusNoContent)
}

// prepare runs every check that precedes the write, in order: capacity,
// body, validation, network identity, rate limit, bot verification.
func (h *PredictionHandler) prepare(r *http.Request) (submission, error) {
	ctx := r.Context()

	if state, ok := middleware.CapacityFrom(ctx); ok && !state.Flags.SubmissionsEnabled {
		h.deps.Metrics.RecordSubmission("capacity_exceeded")
		return submission{}, apperr.CapacityExceeded(state.RetryAfter(time.Now()))
	}

	var req models.PredictionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		return submission{}, apperr.Validation(FieldBody, RuleInvalidJSON, "Invalid JSON")
	}

	metadata := h.metadata(r, req)
	result := h.deps.Validator.Validate(validate.Input{
		PredictedDate:  req.PredictedDate,
		Metadata:       metadata,
		ChallengeToken: req.ChallengeToken,
	}, h.deps.Verifier.Required())
	if !result.OK {
		h.recordRejection(r, result.Failure)
		f := result.Failure
		return submission{}, apperr.Validation(f.Field, f.Rule, f.Message)
	}

	addr, err := identity.ClientAddress(r, h.cfg.TrustProxyHeaders)
	if err != nil {
		h.deps.Metrics.RecordSubmission("rejected")
		return submission{}, apperr.Validation(FieldNetwork, RuleAddressUnresolvable,
			"Could not determine your network address")
	}
	ipHash := h.deps.Hasher.Hash(addr)

	if d := h.deps.Limiter.Allow(ctx, ipHash); !d.Allowed {
		h.deps.Metrics.RecordSubmission("rate_limited")
		return submission{}, apperr.RateLimited(d.RetryAfter(time.Now()))
	}

	if res := h.deps.Verifier.Verify(ctx, req.ChallengeToken, addr); !res.Success {
		h.deps.Metrics.RecordValidationFailure(validate.RuleChallengeFailed)
		return submission{}, apperr.Validation(validate.FieldChallenge, validate.RuleChallengeFailed,
			"Verification failed. Please try again.")
	}

	token, issued, err := identity.ResolveToken(r)
	if err != nil {
		return submission{}, apperr.Server("Failed to issue client token", err)
	}

	var meta *string
	if result.Metadata != "" {
		meta = &result.Metadata
	}

	return submission{
		token:  token,
		issued: issued,
		record: store.NewPrediction{
			ClientToken:   token,
			IPHash:        ipHash,
			PredictedDate: result.Date.Format(validate.DateLayout),
			Weight:        aggregate.Weight(result.Date, h.reference),
			Metadata:      meta,
		},
	}, nil
}

// metadata is the body field when present, otherwise the User-Agent cut to
// the length bound.
func (h *PredictionHandler) metadata(r *http.Request, req models.PredictionRequest) string {
	if req.Metadata != nil {
		return *req.Metadata
	}
	ua := strings.ToValidUTF8(r.UserAgent(), "")
	return validate.Truncate(ua, h.deps.Validator.Rules().MetadataMaxLen)
}

func (h *PredictionHandler) recordRejection(r *http.Request, f *validate.Failure) {
	h.deps.Metrics.RecordSubmission("rejected")
	h.deps.Metrics.RecordValidationFailure(f.Rule)

	var detector string
	switch f.Rule {
	case validate.RuleMetadataSQL:
		detector = "sql"
	case validate.RuleMetadataHTML:
		detector = "html"
	default:
		return
	}
	h.deps.Metrics.RecordThreat(detector)
	slog.Warn("threat detector fired", "detector", detector)
	h.deps.Store.LogOp(r.Context(), models.LevelWarn, models.EventThreatDetected, "detector="+detector)
}

// conflict maps a store error to the API error and records the conflict.
func (h *PredictionHandler) conflict(r *http.Request, err error, ipHash string) error {
	switch {
	case errors.Is(err, store.ErrDuplicateToken):
		h.deps.Metrics.RecordSubmission("conflict")
		h.deps.Store.LogOp(r.Context(), models.LevelInfo, models.EventConflictIdentity, "")
		return apperr.ConflictIdentity()
	case errors.Is(err, store.ErrDuplicateNetwork):
		h.deps.Metrics.RecordSubmission("conflict")
		h.deps.Store.LogOp(r.Context(), models.LevelWarn, models.EventConflictNetwork, "hash="+shortHash(ipHash))
		return apperr.ConflictNetwork()
	}
	return apperr.Server("Failed to save prediction", err)
}

func (h *PredictionHandler) respond(w http.ResponseWriter, r *http.Request, sub submission, pred models.Prediction, isNew bool) {
	h.deps.stats.invalidate(r.Context())

	if sub.issued {
		identity.WriteToken(w, sub.token, h.cfg.CookieSecure)
	}

	resp := models.PredictionResponse{Prediction: pred, IsNew: isNew}
	if snap, err := h.deps.stats.fresh(r.Context(), h.cacheTTL(r)); err != nil {
		// The write already succeeded; stats are best-effort here.
		slog.Error("failed to compute stats after write", "error", err)
	} else {
		resp.Stats = statsResponse(snap, h.cfg.MinSampleSize)
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	middleware.JSONResponse(w, status, resp)
}

func (h *PredictionHandler) cacheTTL(r *http.Request) time.Duration {
	if state, ok := middleware.CapacityFrom(r.Context()); ok {
		return state.Flags.CacheTTL
	}
	return h.cfg.StatsCacheTTL
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
