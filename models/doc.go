// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - PredictionRequest: predicted_date, metadata (optional), metadata_token

# Response Types

Types for JSON responses:

  - PredictionResponse: prediction, stats, is_new
  - StatsResponse: median, min, max, count, cached_at, min_sample_size
  - HistogramResponse: buckets, total
  - DegradationResponse: level and feature flags
  - StatusResponse: status, color, day_offset, median, reference_date, count
  - ErrorResponse: error, code, field, rule, message, retry_after_seconds

# Domain Types

Core entities:

  - Prediction: one per client token and one per network hash
  - OpsLogEntry: operational event

# Privacy

Sensitive fields use json:"-" to prevent exposure:

  - Prediction.ClientToken
  - Prediction.IPHash
  - Prediction.Metadata
*/
package models
