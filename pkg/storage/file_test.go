package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/maternal-risk/pkg/risk"
)

func sampleSet(variant risk.Variant) risk.ArtifactSet {
	version := uuid.New().String()
	blob := func(name string) []byte {
		return []byte(`{"version":"` + version + `","name":"` + name + `"}`)
	}
	return risk.ArtifactSet{
		Version:   version,
		Variant:   variant,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		Blobs: map[string][]byte{
			risk.ArtifactScaler:         blob(risk.ArtifactScaler),
			risk.ArtifactRiskModel:      blob(risk.ArtifactRiskModel),
			risk.ArtifactConditionModel: blob(risk.ArtifactConditionModel),
		},
	}
}

func TestFileStoreEmpty(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), 0)
	require.NoError(t, err)

	_, err = store.LoadArtifacts(context.Background())
	assert.ErrorIs(t, err, risk.ErrArtifactsNotFound)
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir, 0)
	require.NoError(t, err)

	set := sampleSet(risk.VariantEnhanced)
	require.NoError(t, store.SaveArtifacts(ctx, set))

	loaded, err := store.LoadArtifacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, set.Version, loaded.Version)
	assert.Equal(t, set.Variant, loaded.Variant)
	assert.True(t, set.CreatedAt.Equal(loaded.CreatedAt))
	assert.Equal(t, set.Blobs, loaded.Blobs)

	// a fresh store over the same dir sees the same set
	reopened, err := NewFileStore(dir, 0)
	require.NoError(t, err)
	again, err := reopened.LoadArtifacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, set.Blobs, again.Blobs)

	for _, name := range risk.ArtifactNames {
		assert.FileExists(t, filepath.Join(dir, set.Version, name+".json"))
	}
}

func TestFileStoreSwitchesVersion(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), 0)
	require.NoError(t, err)

	first := sampleSet(risk.VariantEnhanced)
	second := sampleSet(risk.VariantEnhanced)
	require.NoError(t, store.SaveArtifacts(ctx, first))
	_, err = store.LoadArtifacts(ctx)
	require.NoError(t, err)

	require.NoError(t, store.SaveArtifacts(ctx, second))
	loaded, err := store.LoadArtifacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.Version, loaded.Version)
	assert.Equal(t, second.Blobs, loaded.Blobs)
}

func TestFileStorePrunesOldVersions(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir, 2)
	require.NoError(t, err)

	var last risk.ArtifactSet
	for i := 0; i < 4; i++ {
		last = sampleSet(risk.VariantBasic)
		require.NoError(t, store.SaveArtifacts(ctx, last))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	assert.Len(t, dirs, 2)
	assert.Contains(t, dirs, last.Version)
	assert.FileExists(t, filepath.Join(dir, latestFile))
}

func TestFileStoreRejectsIncompleteSet(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir, 0)
	require.NoError(t, err)

	good := sampleSet(risk.VariantEnhanced)
	require.NoError(t, store.SaveArtifacts(ctx, good))

	bad := sampleSet(risk.VariantEnhanced)
	delete(bad.Blobs, risk.ArtifactRiskModel)
	assert.ErrorIs(t, store.SaveArtifacts(ctx, bad), risk.ErrArtifactMismatch)
	assert.NoDirExists(t, filepath.Join(dir, bad.Version))

	loaded, err := store.LoadArtifacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, good.Version, loaded.Version)

	assert.ErrorIs(t, store.SaveArtifacts(ctx, risk.ArtifactSet{Version: "../escape"}), risk.ErrInvalidInput)
}

func TestFileStoreMissingBlobIsMismatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir, 0)
	require.NoError(t, err)

	set := sampleSet(risk.VariantEnhanced)
	require.NoError(t, store.SaveArtifacts(ctx, set))
	require.NoError(t, os.Remove(filepath.Join(dir, set.Version, risk.ArtifactConditionModel+".json")))

	fresh, err := NewFileStore(dir, 0)
	require.NoError(t, err)
	_, err = fresh.LoadArtifacts(ctx)
	assert.ErrorIs(t, err, risk.ErrArtifactMismatch)
}

func TestEngineOverFileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir, 0)
	require.NoError(t, err)

	hp := risk.DefaultHyperparameters(risk.AlgorithmTree)
	opts := risk.Options{Variant: risk.VariantBasic, Samples: 400, Seed: risk.DefaultSeed, Hyperparameters: hp}
	trained, err := risk.NewEngine(ctx, store, opts)
	require.NoError(t, err)

	reopened, err := NewFileStore(dir, 0)
	require.NoError(t, err)
	loaded, err := risk.NewEngine(ctx, reopened, opts)
	require.NoError(t, err)
	require.Equal(t, trained.Bundle().Version, loaded.Bundle().Version)

	p := risk.HealthParameters{SystolicBP: 138, DiastolicBP: 88, BloodSugar: 120, BodyWeight: 72, Hemoglobin: 10.8}
	want, err := trained.Assess(p)
	require.NoError(t, err)
	got, err := loaded.Assess(p)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
