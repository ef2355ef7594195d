package models

import (
	"time"

	"github.com/danielhkuo/quickly-predict/aggregate"
)

// Ops log levels
const (
	LevelInfo = "info"
	LevelWarn = "warn"
)

// Ops log events
const (
	EventConflictIdentity = "conflict_identity"
	EventConflictNetwork  = "conflict_network"
	EventThreatDetected   = "threat_detected"
	EventCapacityLevel    = "capacity_level"
	EventErasure          = "erasure"
)

// Request types

type PredictionRequest struct {
	PredictedDate  string  `json:"predicted_date"`
	Metadata       *string `json:"metadata,omitempty"`
	ChallengeToken string  `json:"metadata_token"`
}

// Response types

type PredictionResponse struct {
	Prediction Prediction    `json:"prediction"`
	Stats      StatsResponse `json:"stats"`
	IsNew      bool          `json:"is_new"`
}

type StatsResponse struct {
	aggregate.Summary
	CachedAt      time.Time `json:"cached_at"`
	MinSampleSize int       `json:"min_sample_size"`
}

type HistogramResponse struct {
	Buckets []aggregate.Bucket `json:"buckets"`
	Total   int                `json:"total"`
}

type DegradationResponse struct {
	Level              string    `json:"level"`
	StatsVisible       bool      `json:"stats_visible"`
	SubmissionsEnabled bool      `json:"submissions_enabled"`
	ChartsEnabled      bool      `json:"charts_enabled"`
	ExtendedCache      bool      `json:"extended_cache"`
	CacheTTLSeconds    int       `json:"cache_ttl_seconds"`
	Count              int64     `json:"count"`
	Budget             int64     `json:"budget"`
	ResetAt            time.Time `json:"reset_at"`
	Degraded           bool      `json:"degraded"`
}

type StatusResponse struct {
	Status        string  `json:"status"`
	Color         string  `json:"color"`
	DayOffset     *int    `json:"day_offset"`
	Median        *string `json:"median"`
	ReferenceDate string  `json:"reference_date"`
	Count         int     `json:"count"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Domain types

type Prediction struct {
	ID            string    `json:"-"`
	ClientToken   string    `json:"-"` // Never expose in JSON
	IPHash        string    `json:"-"` // Never expose in JSON
	PredictedDate string    `json:"predicted_date"`
	Weight        float64   `json:"weight"`
	Metadata      *string   `json:"-"` // Never expose in JSON
	SubmittedAt   time.Time `json:"submitted_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type OpsLogEntry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Level     string    `json:"level"`
	Event     string    `json:"event"`
	Detail    string    `json:"detail"`
}

// Error response

type ErrorResponse struct {
	Error             string `json:"error"`
	Code              string `json:"code"`
	Field             string `json:"field,omitempty"`
	Rule              string `json:"rule,omitempty"`
	Message           string `json:"message,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}
