package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/maternal-risk/pkg/common/logger"
	"github.com/synaptica-ai/maternal-risk/pkg/risk"
)

// VersionLister is implemented by stores that keep more than the active set.
type VersionLister interface {
	Versions(ctx context.Context, limit int) ([]string, error)
}

type HTTPHandler struct {
	store risk.ModelStore
}

func NewHTTPHandler(store risk.ModelStore) *HTTPHandler {
	return &HTTPHandler{store: store}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/model/versions", h.handleVersions).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleVersions(w http.ResponseWriter, r *http.Request) {
	lister, ok := h.store.(VersionLister)
	if !ok {
		http.Error(w, "model store does not keep version history", http.StatusNotImplemented)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	versions, err := lister.Versions(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list model versions")
		http.Error(w, "failed to list model versions", http.StatusInternalServerError)
		return
	}

	active := ""
	if set, err := h.store.LoadArtifacts(r.Context()); err == nil {
		active = set.Version
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"active":   active,
		"versions": versions,
	})
}
