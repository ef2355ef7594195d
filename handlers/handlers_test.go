// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/quickly-predict/cliparse"
	"github.com/danielhkuo/quickly-predict/identity"
	"github.com/danielhkuo/quickly-predict/middleware"
	"github.com/danielhkuo/quickly-predict/models"
	"github.com/danielhkuo/quickly-predict/testutil"
)

type testServer struct {
	deps        *Deps
	cfg         cliparse.Config
	predictions *PredictionHandler
	stats       *StatsHandler
}

// newTestServer wires handlers over a fresh SQLite database. mutate may
// adjust the configuration before anything is built.
func newTestServer(t *testing.T, mutate func(*cliparse.Config)) *testServer {
	t.Helper()

	cfg := testutil.GetTestConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	db := testutil.SetupTestDB(t)

	deps, err := NewDeps(context.Background(), db, nil, cfg)
	if err != nil {
		t.Fatalf("NewDeps: %v", err)
	}
	return &testServer{
		deps:        deps,
		cfg:         cfg,
		predictions: NewPredictionHandler(deps, cfg),
		stats:       NewStatsHandler(deps, cfg),
	}
}

// admitted runs h behind the capacity middleware, as the router does.
func (s *testServer) admitted(h http.HandlerFunc) http.HandlerFunc {
	return middleware.WithCapacity(s.deps.Monitor, s.deps.Metrics)(h)
}

// submit sends a prediction from addr. token may be empty for a first visit.
func (s *testServer) submit(t *testing.T, method, date, token, addr string) *httptest.ResponseRecorder {
	t.Helper()
	return s.submitBody(t, method, models.PredictionRequest{PredictedDate: date}, token, addr)
}

func (s *testServer) submitBody(t *testing.T, method string, body interface{}, token, addr string) *httptest.ResponseRecorder {
	t.Helper()
	headers := map[string]string{}
	if token != "" {
		headers[identity.TokenHeader] = token
	}
	req := testutil.FromAddr(testutil.MakeRequest(method, "/predict", body, headers), addr)
	w := httptest.NewRecorder()

	h := s.predictions.Create
	if method == http.MethodPut {
		h = s.predictions.Update
	}
	s.admitted(h)(w, req)
	return w
}

func (s *testServer) get(t *testing.T, h http.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.admitted(h)(w, testutil.MakeRequest(http.MethodGet, path, nil, nil))
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	testutil.AssertJSON(t, w, &resp)
	return resp
}
