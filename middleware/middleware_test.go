// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielhkuo/quickly-predict/models"
)

// captureLogs routes the default logger into a buffer for one test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestWithLogging(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
		body       string
		wantStatus int
	}{
		{"created", http.StatusCreated, `{"is_new":true}`, http.StatusCreated},
		{"conflict", http.StatusConflict, `{"code":"already_submitted"}`, http.StatusConflict},
		{"implicit ok", 0, "ok", http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logs := captureLogs(t)
			handler := WithLogging(func(w http.ResponseWriter, r *http.Request) {
				if tc.statusCode != 0 {
					w.WriteHeader(tc.statusCode)
				}
				w.Write([]byte(tc.body))
			})

			req := httptest.NewRequest("POST", "/predict", nil)
			req.RemoteAddr = "198.51.100.23:4711"
			req.Header.Set("X-Forwarded-For", "203.0.113.77")
			w := httptest.NewRecorder()

			handler(w, req)

			if w.Code != tc.wantStatus || w.Body.String() != tc.body {
				t.Errorf("response changed: %d %q", w.Code, w.Body.String())
			}

			var completed map[string]interface{}
			for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
				var entry map[string]interface{}
				if err := json.Unmarshal([]byte(line), &entry); err != nil {
					t.Fatalf("bad log line %q: %v", line, err)
				}
				if entry["msg"] == "request completed" {
					completed = entry
				}
			}
			if completed == nil {
				t.Fatalf("no completion entry in %s", logs.String())
			}
			if got := completed["status"]; got != float64(tc.wantStatus) {
				t.Errorf("logged status = %v, want %d", got, tc.wantStatus)
			}
			if strings.Contains(logs.String(), "198.51.100.23") || strings.Contains(logs.String(), "203.0.113.77") {
				t.Error("client address leaked into request logs")
			}
		})
	}
}

func TestJSONResponse(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
		data       interface{}
		expected   string
	}{
		{
			name:       "simple struct",
			statusCode: http.StatusOK,
			data:       map[string]string{"message": "hello"},
			expected:   `{"message":"hello"}`,
		},
		{
			name:       "prediction hides identity fields",
			statusCode: http.StatusOK,
			data: models.Prediction{
				ID:            "row-1",
				ClientToken:   "secret-token",
				IPHash:        "secret-hash",
				PredictedDate: "2026-11-19",
				Weight:        1,
			},
			expected: `{"predicted_date":"2026-11-19","weight":1,"submitted_at":"0001-01-01T00:00:00Z","updated_at":"0001-01-01T00:00:00Z"}`,
		},
		{
			name:       "error response",
			statusCode: http.StatusBadRequest,
			data:       models.ErrorResponse{Error: "Bad Request", Code: "validation_error", Message: "missing field"},
			expected:   `{"error":"Bad Request","code":"validation_error","message":"missing field"}`,
		},
		{
			name:       "array data",
			statusCode: http.StatusOK,
			data:       []string{"a", "b", "c"},
			expected:   `["a","b","c"]`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			JSONResponse(w, tc.statusCode, tc.data)

			// Check status code
			if w.Code != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, w.Code)
			}

			// Check Content-Type header
			contentType := w.Header().Get("Content-Type")
			if contentType != "application/json" {
				t.Errorf("Expected Content-Type 'application/json', got '%s'", contentType)
			}

			// Check body (trim newline added by Encode)
			body := strings.TrimSpace(w.Body.String())
			if body != tc.expected {
				t.Errorf("Expected body '%s', got '%s'", tc.expected, body)
			}
		})
	}
}

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()

	ErrorResponse(w, http.StatusNotFound, "route not found")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	var resp models.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if resp.Error != "Not Found" || resp.Message != "route not found" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestParseJSONBody(t *testing.T) {
	t.Run("valid JSON", func(t *testing.T) {
		body := `{"predicted_date":"2026-11-19","metadata_token":"tok"}`
		req := httptest.NewRequest("POST", "/", strings.NewReader(body))

		var parsed models.PredictionRequest
		err := ParseJSONBody(req, &parsed)

		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if parsed.PredictedDate != "2026-11-19" {
			t.Errorf("Expected date '2026-11-19', got '%s'", parsed.PredictedDate)
		}
		if parsed.ChallengeToken != "tok" {
			t.Errorf("Expected challenge token 'tok', got '%s'", parsed.ChallengeToken)
		}
		if parsed.Metadata != nil {
			t.Error("Expected absent metadata to stay nil")
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{invalid json}`))

		var parsed models.PredictionRequest
		if err := ParseJSONBody(req, &parsed); err == nil {
			t.Error("Expected error for invalid JSON")
		}
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(""))

		var parsed models.PredictionRequest
		if err := ParseJSONBody(req, &parsed); err == nil {
			t.Error("Expected error for empty body")
		}
	})

	t.Run("oversized body", func(t *testing.T) {
		body := `{"predicted_date":"2026-11-19","metadata":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
		req := httptest.NewRequest("POST", "/", strings.NewReader(body))

		var parsed models.PredictionRequest
		if err := ParseJSONBody(req, &parsed); err != ErrBodyTooLarge {
			t.Errorf("Expected ErrBodyTooLarge, got %v", err)
		}
	})

	t.Run("extra fields ignored", func(t *testing.T) {
		body := `{"predicted_date":"2026-11-19","unknown_field":"ignored"}`
		req := httptest.NewRequest("POST", "/", strings.NewReader(body))

		var parsed models.PredictionRequest
		if err := ParseJSONBody(req, &parsed); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	})

	t.Run("body is consumed after parsing", func(t *testing.T) {
		body := `{"predicted_date":"2026-11-19"}`
		bodyReader := io.NopCloser(bytes.NewReader([]byte(body)))
		req := httptest.NewRequest("POST", "/", bodyReader)

		var parsed models.PredictionRequest
		_ = ParseJSONBody(req, &parsed)

		remaining, _ := io.ReadAll(req.Body)
		if len(remaining) > 0 {
			t.Error("Expected body to be consumed/closed")
		}
	})
}

func TestCORS(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("handled"))
	})

	t.Run("preflight OPTIONS request", func(t *testing.T) {
		corsHandler := CORS([]string{"*"})(nextHandler)
		req := httptest.NewRequest("OPTIONS", "/predict", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()

		corsHandler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
		if w.Body.String() != "" {
			t.Errorf("Expected empty body for preflight, got '%s'", w.Body.String())
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
			t.Error("Expected Access-Control-Allow-Origin to match request origin")
		}
		if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
			t.Error("Expected Access-Control-Allow-Credentials to be 'true'")
		}
		if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), "X-Client-Token") {
			t.Error("Expected X-Client-Token in allowed headers")
		}
		if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), "Retry-After") {
			t.Error("Expected Retry-After to be exposed")
		}
	})

	t.Run("allow list", func(t *testing.T) {
		corsHandler := CORS([]string{"https://predict.example"})(nextHandler)

		req := httptest.NewRequest("GET", "/stats", nil)
		req.Header.Set("Origin", "https://predict.example")
		w := httptest.NewRecorder()
		corsHandler.ServeHTTP(w, req)
		if w.Header().Get("Access-Control-Allow-Origin") != "https://predict.example" {
			t.Error("Expected listed origin to be reflected")
		}

		req = httptest.NewRequest("GET", "/stats", nil)
		req.Header.Set("Origin", "https://evil.example")
		w = httptest.NewRecorder()
		corsHandler.ServeHTTP(w, req)
		if w.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Error("Expected unlisted origin to get no CORS grant")
		}
		if w.Body.String() != "handled" {
			t.Error("Expected next handler to be called")
		}
	})

	t.Run("request without origin defaults to wildcard", func(t *testing.T) {
		corsHandler := CORS(nil)(nextHandler)
		req := httptest.NewRequest("GET", "/stats", nil)
		w := httptest.NewRecorder()

		corsHandler.ServeHTTP(w, req)

		if w.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Error("Expected Access-Control-Allow-Origin to default to '*'")
		}
	})

	t.Run("allows required methods", func(t *testing.T) {
		corsHandler := CORS([]string{"*"})(nextHandler)
		req := httptest.NewRequest("OPTIONS", "/predict", nil)
		w := httptest.NewRecorder()

		corsHandler.ServeHTTP(w, req)

		allowedMethods := w.Header().Get("Access-Control-Allow-Methods")
		for _, method := range []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"} {
			if !strings.Contains(allowedMethods, method) {
				t.Errorf("Expected %s in allowed methods", method)
			}
		}
	})
}
