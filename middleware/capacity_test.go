// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-predict/capacity"
	"github.com/danielhkuo/quickly-predict/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

func TestWithCapacity(t *testing.T) {
	mon, err := capacity.NewMonitor(capacity.NewMemoryCounter(), capacity.Config{
		Budget:           10,
		Thresholds:       capacity.DefaultThresholds(),
		CacheTTL:         5 * time.Minute,
		ExtendedCacheTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}
	m := metrics.NewManager(metrics.WithRegistry(prometheus.NewRegistry()))

	var seen []capacity.State
	handler := WithCapacity(mon, m)(func(w http.ResponseWriter, r *http.Request) {
		s, ok := CapacityFrom(r.Context())
		if !ok {
			t.Fatal("expected capacity state in context")
		}
		seen = append(seen, s)
	})

	for i := 0; i < 10; i++ {
		handler(httptest.NewRecorder(), httptest.NewRequest("GET", "/stats", nil))
	}

	if len(seen) != 10 {
		t.Fatalf("expected 10 admissions, got %d", len(seen))
	}
	if seen[0].Count != 1 || seen[0].Level != capacity.LevelNormal {
		t.Errorf("unexpected first state: %+v", seen[0])
	}
	if last := seen[9]; last.Level != capacity.LevelExceeded || last.Flags.SubmissionsEnabled {
		t.Errorf("unexpected last state: %+v", last)
	}
}

func TestCapacityFromEmptyContext(t *testing.T) {
	if _, ok := CapacityFrom(context.Background()); ok {
		t.Error("expected no state on a bare context")
	}
}

func TestWithMetrics(t *testing.T) {
	m := metrics.NewManager(metrics.WithRegistry(prometheus.NewRegistry()))
	handler := WithMetrics(m, "GET /stats")(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/stats", nil))
	if w.Code != http.StatusTeapot {
		t.Errorf("status not preserved: %d", w.Code)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	want := `predict_http_requests_total{method="GET",route="GET /stats",status_code="418"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("metrics output missing %q", want)
	}
}
