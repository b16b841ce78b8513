package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/maternal-risk/pkg/risk"
)

func TestFileStoreVersions(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), 3)
	require.NoError(t, err)

	versions, err := store.Versions(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, versions)

	var saved []string
	for i := 0; i < 3; i++ {
		set := sampleSet(risk.VariantBasic)
		require.NoError(t, store.SaveArtifacts(ctx, set))
		saved = append(saved, set.Version)
	}

	versions, err = store.Versions(ctx, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, saved, versions)

	versions, err = store.Versions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestVersionsHandler(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), 0)
	require.NoError(t, err)
	set := sampleSet(risk.VariantEnhanced)
	require.NoError(t, store.SaveArtifacts(ctx, set))

	router := mux.NewRouter()
	NewHTTPHandler(store).Register(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/model/versions", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Active   string   `json:"active"`
		Versions []string `json:"versions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, set.Version, resp.Active)
	assert.Equal(t, []string{set.Version}, resp.Versions)

	router = mux.NewRouter()
	NewHTTPHandler(risk.NewMemoryStore()).Register(router)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/model/versions", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
