// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the prediction API.

# Handler Types

Each handler is a struct built from the shared Deps bundle and Config:

  - PredictionHandler: submit, update, read and erase the caller's prediction
  - StatsHandler: aggregate stats, histogram, degradation state, status, rules
  - HealthHandler: database reachability

Deps is built once at startup:

	deps, err := handlers.NewDeps(ctx, db, redisClient, cfg)
	predictions := handlers.NewPredictionHandler(deps, cfg)

# Submission Flow

POST and PUT /predict run the same checks in order before writing:

	capacity → JSON body → validation → network address → rate limit
	         → bot verification → client token → weight → store

Duplicate identities and duplicate networks are rejected by the store's
unique constraints and reported with distinct codes (already_submitted,
network_already_submitted). PUT creates when the caller has no prediction.

Identity travels in the X-Client-Token header or client_token cookie. A
first-time caller is issued a token on their first accepted write.

# Stats

Aggregates are computed from a full scan and cached under one key. Writes
invalidate the key; concurrent misses share one recomputation. The cache
lifetime follows the capacity level.
*/
package handlers
