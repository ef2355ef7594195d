// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/quickly-predict/middleware"
	"github.com/danielhkuo/quickly-predict/models"
	"github.com/danielhkuo/quickly-predict/store"
)

type HealthHandler struct {
	store *store.Store
}

func NewHealthHandler(deps *Deps) *HealthHandler {
	return &HealthHandler{store: deps.Store}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		slog.Error("health check failed", "error", err)
		middleware.JSONResponse(w, http.StatusServiceUnavailable, models.HealthResponse{
			Status:   "unhealthy",
			Database: "unreachable",
		})
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.HealthResponse{Status: "ok", Database: "ok"})
}
