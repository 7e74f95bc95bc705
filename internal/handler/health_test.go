package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHealthHandler(t *testing.T) {
	h := NewHealthHandler("1.2.3")

	require.NotNil(t, h)
	assert.Equal(t, "1.2.3", h.version)
	assert.False(t, h.startTime.IsZero())
	assert.False(t, h.IsReady(), "ready should be false initially")
}

func TestHealthHandler_SetReady(t *testing.T) {
	h := NewHealthHandler("dev")

	h.SetReady(true)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestHealthHandler_HandleHealth(t *testing.T) {
	h := NewHealthHandler("1.2.3")

	rr := httptest.NewRecorder()
	h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestHealthHandler_HandleReady(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		storeErr   error
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "ready",
			ready:      true,
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"startup": "ok", "store": "ok"},
		},
		{
			name:       "starting",
			ready:      false,
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"startup": "not ready", "store": "ok"},
		},
		{
			name:       "store down",
			ready:      true,
			storeErr:   errors.New("connection refused"),
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"startup": "ok", "store": "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("dev")
			h.SetReady(tt.ready)
			h.AddCheck("store", func(context.Context) error { return tt.storeErr })

			rr := httptest.NewRecorder()
			h.HandleReady(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantStatus, rr.Code)
			var resp HealthResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.wantChecks, resp.Checks)
		})
	}
}
