package training

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/synaptica-ai/maternal-risk/pkg/common/logger"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/model/retrain", h.handleRetrain).Methods(http.MethodPost)
	router.HandleFunc("/model/runs", h.handleList).Methods(http.MethodGet)
	router.HandleFunc("/model/runs/{id}", h.handleGet).Methods(http.MethodGet)
}

type retrainRequest struct {
	Seed *uint64 `json:"seed,omitempty"`
}

func (h *HTTPHandler) handleRetrain(w http.ResponseWriter, r *http.Request) {
	var req retrainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	run, err := h.service.Trigger(r.Context(), TriggerInput{Seed: req.Seed, Trigger: TriggerAPI})
	if errors.Is(err, ErrInvalidSeed) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to queue training run")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.service.List(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list training runs")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (h *HTTPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return
	}
	run, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrRunNotFound) {
			http.Error(w, "training run not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch training run")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
