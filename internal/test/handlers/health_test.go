package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardprint-backend/internal/handlers"
	"cardprint-backend/internal/models"
)

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", handlers.HealthHandler)

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestReadinessHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		checks     map[string]handlers.Pinger
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no dependencies",
			checks:     map[string]handlers.Pinger{},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name: "all healthy",
			checks: map[string]handlers.Pinger{
				"database": handlers.PingFunc(func(context.Context) error { return nil }),
			},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name: "one failing",
			checks: map[string]handlers.Pinger{
				"database": handlers.PingFunc(func(context.Context) error { return nil }),
				"redis":    handlers.PingFunc(func(context.Context) error { return errors.New("connection refused") }),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/ready", handlers.NewReadinessHandler(tt.checks).Ready)

			req, _ := http.NewRequest("GET", "/ready", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp models.HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantBody, resp.Status)
			for name := range tt.checks {
				assert.Contains(t, resp.Checks, name)
			}
		})
	}
}
