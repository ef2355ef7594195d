// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"net/http"

	"github.com/danielhkuo/quickly-predict/capacity"
	"github.com/danielhkuo/quickly-predict/metrics"
)

type capacityKey struct{}

// WithCapacity admits every request through the monitor and stores the
// resulting state in the request context.
func WithCapacity(mon *capacity.Monitor, m *metrics.Manager) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			state := mon.Admit(r.Context())
			m.RecordCapacity(int(state.Level), state.Count)
			next(w, r.WithContext(ContextWithCapacity(r.Context(), state)))
		}
	}
}

func ContextWithCapacity(ctx context.Context, s capacity.State) context.Context {
	return context.WithValue(ctx, capacityKey{}, s)
}

// CapacityFrom returns the state admitted for this request.
func CapacityFrom(ctx context.Context) (capacity.State, bool) {
	s, ok := ctx.Value(capacityKey{}).(capacity.State)
	return s, ok
}
