// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the prediction API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(deps, cfg)

# Endpoints

Operational (not counted against the daily budget):

	GET /health  - Database reachability
	GET /metrics - Prometheus exposition

Caller's prediction (identity via X-Client-Token or client_token cookie):

	POST   /predict - Submit once
	PUT    /predict - Create or update
	GET    /predict - Read own prediction
	DELETE /predict - Erase own prediction

Aggregates (public):

	GET /stats            - Median, range, count
	GET /predictions      - Per-date histogram (disabled under load)
	GET /degradation      - Capacity level and feature flags
	GET /status           - Sentiment bucket and day offset
	GET /validation-rules - Submission rules for client pre-checks

# Middleware

Every API route is wrapped, outermost first, in request logging, Prometheus
metrics and capacity admission. The admitted capacity state rides in the
request context for the handler.
*/
package router
