package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Artifact names. The three are always stored and loaded as one set.
const (
	ArtifactScaler         = "scaler"
	ArtifactRiskModel      = "risk_model"
	ArtifactConditionModel = "condition_model"
)

var ArtifactNames = []string{ArtifactScaler, ArtifactRiskModel, ArtifactConditionModel}

// ArtifactSet is a bundle serialised to named blobs for a key-value store.
type ArtifactSet struct {
	Version   string
	Variant   Variant
	CreatedAt time.Time
	Blobs     map[string][]byte
}

// ModelStore persists artifact sets. LoadArtifacts returns
// ErrArtifactsNotFound when nothing has been saved yet. SaveArtifacts must
// replace the active set atomically.
type ModelStore interface {
	LoadArtifacts(ctx context.Context) (ArtifactSet, error)
	SaveArtifacts(ctx context.Context, set ArtifactSet) error
}

type scalerArtifact struct {
	Version         string          `json:"version"`
	Variant         Variant         `json:"variant"`
	CreatedAt       time.Time       `json:"created_at"`
	Features        []string        `json:"features"`
	Hyperparameters Hyperparameters `json:"hyperparameters"`
	Metrics         TrainingMetrics `json:"metrics"`
	Scaler          *Scaler         `json:"scaler"`
}

type riskArtifact struct {
	Version string `json:"version"`
	Model   *Model `json:"model"`
}

type conditionArtifact struct {
	Version  string             `json:"version"`
	Detector *ConditionDetector `json:"detector"`
}

// EncodeArtifacts serialises a bundle. Every blob carries the bundle version.
func EncodeArtifacts(b *Bundle) (ArtifactSet, error) {
	if err := b.Validate(); err != nil {
		return ArtifactSet{}, err
	}
	scaler, err := json.Marshal(scalerArtifact{
		Version:         b.Version,
		Variant:         b.Variant,
		CreatedAt:       b.CreatedAt,
		Features:        b.Features,
		Hyperparameters: b.Hyperparameters,
		Metrics:         b.Metrics,
		Scaler:          b.Scaler,
	})
	if err != nil {
		return ArtifactSet{}, fmt.Errorf("encode scaler: %w", err)
	}
	riskModel, err := json.Marshal(riskArtifact{Version: b.Version, Model: b.Risk})
	if err != nil {
		return ArtifactSet{}, fmt.Errorf("encode risk model: %w", err)
	}
	conditionModel, err := json.Marshal(conditionArtifact{Version: b.Version, Detector: b.Conditions})
	if err != nil {
		return ArtifactSet{}, fmt.Errorf("encode condition model: %w", err)
	}
	return ArtifactSet{
		Version:   b.Version,
		Variant:   b.Variant,
		CreatedAt: b.CreatedAt,
		Blobs: map[string][]byte{
			ArtifactScaler:         scaler,
			ArtifactRiskModel:      riskModel,
			ArtifactConditionModel: conditionModel,
		},
	}, nil
}

// DecodeArtifacts rebuilds a bundle, rejecting sets whose blobs come from
// different versions.
func DecodeArtifacts(set ArtifactSet) (*Bundle, error) {
	for _, name := range ArtifactNames {
		if len(set.Blobs[name]) == 0 {
			return nil, fmt.Errorf("artifact %s missing from set %s: %w", name, set.Version, ErrArtifactMismatch)
		}
	}

	var s scalerArtifact
	if err := json.Unmarshal(set.Blobs[ArtifactScaler], &s); err != nil {
		return nil, fmt.Errorf("decode scaler: %w", err)
	}
	var r riskArtifact
	if err := json.Unmarshal(set.Blobs[ArtifactRiskModel], &r); err != nil {
		return nil, fmt.Errorf("decode risk model: %w", err)
	}
	var c conditionArtifact
	if err := json.Unmarshal(set.Blobs[ArtifactConditionModel], &c); err != nil {
		return nil, fmt.Errorf("decode condition model: %w", err)
	}

	if s.Version != r.Version || s.Version != c.Version || (set.Version != "" && set.Version != s.Version) {
		return nil, fmt.Errorf("scaler %s, risk model %s, condition model %s: %w",
			s.Version, r.Version, c.Version, ErrArtifactMismatch)
	}

	b := &Bundle{
		Version:         s.Version,
		Variant:         s.Variant,
		CreatedAt:       s.CreatedAt,
		Features:        s.Features,
		Hyperparameters: s.Hyperparameters,
		Metrics:         s.Metrics,
		Scaler:          s.Scaler,
		Risk:            r.Model,
		Conditions:      c.Detector,
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// MemoryStore keeps the active artifact set in process memory.
type MemoryStore struct {
	mu  sync.RWMutex
	set *ArtifactSet
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) LoadArtifacts(ctx context.Context) (ArtifactSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.set == nil {
		return ArtifactSet{}, ErrArtifactsNotFound
	}
	return cloneSet(*m.set), nil
}

func (m *MemoryStore) SaveArtifacts(ctx context.Context, set ArtifactSet) error {
	clone := cloneSet(set)
	m.mu.Lock()
	m.set = &clone
	m.mu.Unlock()
	return nil
}

func cloneSet(set ArtifactSet) ArtifactSet {
	out := set
	out.Blobs = make(map[string][]byte, len(set.Blobs))
	for name, blob := range set.Blobs {
		out.Blobs[name] = append([]byte(nil), blob...)
	}
	return out
}
