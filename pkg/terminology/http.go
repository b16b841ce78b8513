package terminology

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

type HTTPHandler struct {
	catalog Catalog
}

func NewHTTPHandler(catalog Catalog) *HTTPHandler {
	return &HTTPHandler{catalog: catalog}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/terminology", h.handleList).Methods(http.MethodGet)
	router.HandleFunc("/terminology/{key}", h.handleGet).Methods(http.MethodGet)
}

// handleList accepts ?kind=condition|reading.
func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	concepts := make(map[string]Concept)
	for _, key := range h.catalog.Keys(kind) {
		concepts[key] = h.catalog.Concepts[key]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"concepts": concepts})
}

func (h *HTTPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	concept, ok := h.catalog.Lookup(mux.Vars(r)["key"])
	if !ok {
		http.Error(w, "concept not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, concept)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
