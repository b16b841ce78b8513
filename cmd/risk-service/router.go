package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/maternal-risk/pkg/assessment"
	"github.com/synaptica-ai/maternal-risk/pkg/common/config"
	"github.com/synaptica-ai/maternal-risk/pkg/gateway/middleware"
	"github.com/synaptica-ai/maternal-risk/pkg/observability/metrics"
	"github.com/synaptica-ai/maternal-risk/pkg/risk"
	"github.com/synaptica-ai/maternal-risk/pkg/storage"
	"github.com/synaptica-ai/maternal-risk/pkg/terminology"
	"github.com/synaptica-ai/maternal-risk/pkg/training"
)

// newRouter mounts every API under /api/v1. CORS wraps the router itself so
// preflights reach it on POST-only routes.
func newRouter(cfg *config.Config, assessments *assessment.Service, runs *training.Service, store risk.ModelStore, catalog terminology.Catalog) http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging)
	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst), middleware.BodyLimit(cfg.MaxRequestBody))
	assessment.NewHTTPHandler(assessments, cfg.MaxRequestBody).Register(api)
	training.NewHTTPHandler(runs).Register(api)
	storage.NewHTTPHandler(store).Register(api)
	terminology.NewHTTPHandler(catalog).Register(api)

	return middleware.CORS(router)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
