package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/maternal-risk/pkg/assessment"
	"github.com/synaptica-ai/maternal-risk/pkg/common/config"
	"github.com/synaptica-ai/maternal-risk/pkg/common/logger"
	"github.com/synaptica-ai/maternal-risk/pkg/storage"
	"github.com/synaptica-ai/maternal-risk/pkg/terminology"
	"github.com/synaptica-ai/maternal-risk/pkg/training"
)

func testRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	logger.Silence()
	store, err := storage.NewFileStore(t.TempDir(), 0)
	require.NoError(t, err)
	assessments := assessment.NewService(assessment.NewValidator(false), nil, nil, nil)
	runs := training.NewService(training.NewMemoryRepository(), nil, nil, 0)
	return newRouter(cfg, assessments, runs, store, terminology.DefaultCatalog())
}

func TestRouterAnswersPreflight(t *testing.T) {
	h := testRouter(t, &config.Config{RateLimitRPS: 50, RateLimitBurst: 100, MaxRequestBody: 1 << 20})

	for _, path := range []string{"/api/v1/assessments", "/api/v1/model/retrain"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code, path)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"), path)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost, path)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterWithLimitsDisabled(t *testing.T) {
	h := testRouter(t, &config.Config{})

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/terminology/hemoglobin", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/model/versions", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
