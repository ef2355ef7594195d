// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/danielhkuo/quickly-predict/apperr"
	"github.com/danielhkuo/quickly-predict/models"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflictIdentity, apperr.KindConflictNetwork:
		return http.StatusConflict
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindCapacityExceeded, apperr.KindFeatureDisabled:
		return http.StatusServiceUnavailable
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteError is the single place errors become HTTP responses.
func WriteError(w http.ResponseWriter, err error) {
	ae := apperr.From(err)
	status := StatusFor(ae.Kind)

	if ae.Kind == apperr.KindServer {
		slog.Error("request failed", "error", err)
	}

	resp := models.ErrorResponse{
		Error:   http.StatusText(status),
		Code:    ae.Kind.Code(),
		Field:   ae.Field,
		Rule:    ae.Rule,
		Message: ae.Message,
	}
	if ae.RetryAfter > 0 {
		secs := int(math.Ceil(ae.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		resp.RetryAfterSeconds = secs
	}

	JSONResponse(w, status, resp)
}
