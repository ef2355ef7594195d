// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/quickly-predict/cliparse"
	"github.com/danielhkuo/quickly-predict/handlers"
	"github.com/danielhkuo/quickly-predict/middleware"
)

func NewRouter(deps *handlers.Deps, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	predictionHandler := handlers.NewPredictionHandler(deps, cfg)
	statsHandler := handlers.NewStatsHandler(deps, cfg)
	healthHandler := handlers.NewHealthHandler(deps)

	// api wraps a route with logging, metrics and capacity admission
	api := func(route string, h http.HandlerFunc) http.HandlerFunc {
		h = middleware.WithCapacity(deps.Monitor, deps.Metrics)(h)
		h = middleware.WithMetrics(deps.Metrics, route)(h)
		return middleware.WithLogging(h)
	}

	// Operational endpoints are not counted against the daily budget
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", deps.Metrics.Handler())

	// Caller's own prediction
	mux.HandleFunc("POST /predict", api("/predict", predictionHandler.Create))
	mux.HandleFunc("PUT /predict", api("/predict", predictionHandler.Update))
	mux.HandleFunc("GET /predict", api("/predict", predictionHandler.Get))
	mux.HandleFunc("DELETE /predict", api("/predict", predictionHandler.Delete))

	// Aggregates (public, cacheable)
	mux.HandleFunc("GET /stats", api("/stats", statsHandler.Stats))
	mux.HandleFunc("GET /predictions", api("/predictions", statsHandler.Predictions))
	mux.HandleFunc("GET /degradation", api("/degradation", statsHandler.Degradation))
	mux.HandleFunc("GET /status", api("/status", statsHandler.Status))
	mux.HandleFunc("GET /validation-rules", api("/validation-rules", statsHandler.Rules))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			middleware.ErrorResponse(w, http.StatusNotFound, "no such endpoint")
			return
		}
		w.Write([]byte("quickly-predict API v1"))
	})

	return mux
}
