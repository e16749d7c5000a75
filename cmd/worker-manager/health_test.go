package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestHealthMux_Health(t *testing.T) {
	mux := healthMux(nil, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHealthMux_Ready(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]healthCheck
		wantStatus int
		wantBody   readiness
	}{
		{
			name: "all dependencies up",
			checks: map[string]healthCheck{
				"postgres": func(context.Context) error { return nil },
				"redis":    func(context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
			wantBody: readiness{Status: "ready", Checks: map[string]string{
				"postgres": "ok",
				"redis":    "ok",
			}},
		},
		{
			name: "one dependency down",
			checks: map[string]healthCheck{
				"postgres": func(context.Context) error { return nil },
				"zeebe":    func(context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody: readiness{Status: "not_ready", Checks: map[string]string{
				"postgres": "ok",
				"zeebe":    "connection refused",
			}},
		},
		{
			name:       "no dependencies",
			checks:     map[string]healthCheck{},
			wantStatus: http.StatusOK,
			wantBody:   readiness{Status: "ready", Checks: map[string]string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := healthMux(tt.checks, zaptest.NewLogger(t))

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var got readiness
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.wantBody, got)
		})
	}
}

func TestHealthMux_Metrics(t *testing.T) {
	mux := healthMux(nil, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRetryWithBackoff(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	}, 5, 0, zaptest.NewLogger(t), "flaky op")

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = retryWithBackoff(func() error {
		attempts++
		return errors.New("down")
	}, 2, 0, zaptest.NewLogger(t), "dead op")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "dead op failed after 2 attempts")
	assert.Equal(t, 2, attempts)
}
