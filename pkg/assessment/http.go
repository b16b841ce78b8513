package assessment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/maternal-risk/pkg/common/logger"
	"github.com/synaptica-ai/maternal-risk/pkg/risk"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/assessments", h.handleAssess).Methods(http.MethodPost)
	router.HandleFunc("/patients/{id}/assessments", h.handleHistory).Methods(http.MethodGet)
	router.HandleFunc("/model", h.handleModel).Methods(http.MethodGet)
	router.HandleFunc("/model/feature-importance", h.handleFeatureImportance).Methods(http.MethodGet)
	router.HandleFunc("/guidelines/emergency", h.handleEmergency).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleAssess(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req RequestWrapper
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid assessment payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Assess(r.Context(), req)
	if err != nil {
		writeError(w, err, "failed to assess risk")
		return
	}
	status := http.StatusOK
	if result.Persisted() {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func (h *HTTPHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.service.History(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		writeError(w, err, "failed to load assessment history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"assessments": records})
}

func (h *HTTPHandler) handleModel(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.ModelInfo()
	if err != nil {
		writeError(w, err, "failed to describe model")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *HTTPHandler) handleFeatureImportance(w http.ResponseWriter, r *http.Request) {
	weights, err := h.service.FeatureImportance()
	if err != nil {
		writeError(w, err, "failed to compute feature importance")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"feature_importance": weights})
}

func (h *HTTPHandler) handleEmergency(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, risk.Emergency())
}

func writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case IsValidationError(err), errors.Is(err, risk.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, risk.ErrModelNotReady):
		http.Error(w, "model not ready", http.StatusServiceUnavailable)
	case errors.Is(err, ErrHistoryDisabled):
		http.Error(w, err.Error(), http.StatusNotImplemented)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "assessment not found", http.StatusNotFound)
	default:
		logger.Log.WithError(err).Error(msg)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
