// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path) and completion (status, duration_ms).
Client addresses are never logged.

# Capacity Gate

Admit API requests through the capacity monitor:

	admit := middleware.WithCapacity(monitor, metricsManager)
	mux.HandleFunc("POST /predict", middleware.WithLogging(admit(h.Create)))

Handlers read the admitted state with CapacityFrom(r.Context()).

# Metrics

	mux.HandleFunc("GET /stats", middleware.WithMetrics(m, "GET /stats")(h.Stats))

# CORS Middleware

Enable cross-origin requests for the configured origins:

	server := http.Server{
		Handler: middleware.CORS(cfg.AllowedOrigins)(mux),
	}

Allows methods GET, POST, PUT, DELETE, OPTIONS with headers Content-Type and
X-Client-Token; exposes X-Client-Token and Retry-After.

# Errors

WriteError is the only place an error becomes a response. The apperr kind
selects the status:

	validation               400
	already_submitted        409
	network_already_submitted 409
	rate_limited             429 + Retry-After
	capacity_exceeded        503 + Retry-After
	feature_disabled         503
	not_found                404
	anything else            500 (details logged, not returned)

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)

	var req models.PredictionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, apperr.Validation("body", "invalid_json", "Invalid JSON"))
		return
	}

Bodies larger than MaxBodyBytes are rejected with ErrBodyTooLarge.
*/
package middleware
