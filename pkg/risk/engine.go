package risk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Assessment is the result of one Assess call.
type Assessment struct {
	RiskLevel          RiskLevel                     `json:"risk_level"`
	ModelRiskLevel     RiskLevel                     `json:"model_risk_level"`
	OverrideScore      int                           `json:"override_score"`
	RiskProbabilities  map[RiskLevel]float64         `json:"risk_probabilities"`
	DetectedConditions []DetectedCondition           `json:"detected_conditions"`
	ConditionDetails   map[Condition]ConditionDetail `json:"condition_details"`
	Recommendations    Recommendations               `json:"recommendations"`
	ModelVersion       string                        `json:"model_version"`
}

type Options struct {
	Variant         Variant
	Samples         int
	Seed            uint64
	Hyperparameters Hyperparameters
	// Log defaults to a discarding logger.
	Log *logrus.Entry
}

func (o Options) trainOptions(seed uint64) TrainOptions {
	return TrainOptions{
		Variant:         o.Variant,
		Samples:         o.Samples,
		Seed:            seed,
		Hyperparameters: o.Hyperparameters,
	}
}

// Engine serves assessments from the active model bundle. Assess and
// FeatureImportance are safe for concurrent use; Retrain swaps the bundle
// atomically once the new one has been persisted.
type Engine struct {
	opts   Options
	store  ModelStore
	log    *logrus.Entry
	bundle atomic.Pointer[Bundle]
	// trainMu serialises training runs.
	trainMu sync.Mutex
}

// NewEngine loads the persisted bundle for opts.Variant or, when none exists,
// trains and persists one before returning.
func NewEngine(ctx context.Context, store ModelStore, opts Options) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("model store required: %w", ErrInvalidInput)
	}
	if opts.Variant == "" {
		opts.Variant = VariantEnhanced
	}
	if opts.Hyperparameters.Algorithm == "" {
		algo, _ := ParseAlgorithm("", opts.Variant)
		opts.Hyperparameters = DefaultHyperparameters(algo)
	}
	if opts.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Log = logrus.NewEntry(l)
	}

	e := &Engine{opts: opts, store: store, log: opts.Log.WithField("component", "risk_engine")}

	bundle, err := e.load(ctx)
	switch {
	case err == nil:
		e.bundle.Store(bundle)
		e.log.WithFields(logrus.Fields{
			"version": bundle.Version,
			"variant": bundle.Variant,
		}).Info("loaded persisted risk model")
		return e, nil
	case errors.Is(err, ErrArtifactsNotFound):
		e.log.Info("no persisted risk model, training from synthetic data")
	default:
		return nil, fmt.Errorf("load risk model: %w", err)
	}

	if _, err := e.Retrain(ctx, opts.Seed); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) load(ctx context.Context) (*Bundle, error) {
	set, err := e.store.LoadArtifacts(ctx)
	if err != nil {
		return nil, err
	}
	if set.Variant != "" && set.Variant != e.opts.Variant {
		e.log.WithFields(logrus.Fields{
			"stored_variant":     set.Variant,
			"configured_variant": e.opts.Variant,
		}).Warn("persisted risk model is for another variant")
		return nil, ErrArtifactsNotFound
	}
	bundle, err := DecodeArtifacts(set)
	if err != nil {
		return nil, err
	}
	if bundle.Variant != e.opts.Variant {
		return nil, ErrArtifactsNotFound
	}
	if bundle.Hyperparameters.Algorithm != e.opts.Hyperparameters.Algorithm {
		e.log.WithFields(logrus.Fields{
			"stored_algorithm":     bundle.Hyperparameters.Algorithm,
			"configured_algorithm": e.opts.Hyperparameters.Algorithm,
		}).Warn("persisted risk model uses another algorithm")
		return nil, ErrArtifactsNotFound
	}
	return bundle, nil
}

// Retrain fits a new bundle, persists it, and only then makes it active.
// Concurrent assessments keep using the previous bundle until the swap.
func (e *Engine) Retrain(ctx context.Context, seed uint64) (*Bundle, error) {
	e.trainMu.Lock()
	defer e.trainMu.Unlock()

	bundle, err := Train(e.opts.trainOptions(seed))
	if err != nil {
		return nil, fmt.Errorf("train risk model: %w", err)
	}
	set, err := EncodeArtifacts(bundle)
	if err != nil {
		return nil, fmt.Errorf("encode risk model: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.store.SaveArtifacts(ctx, set); err != nil {
		return nil, fmt.Errorf("persist risk model: %w", err)
	}
	e.bundle.Store(bundle)

	e.log.WithFields(logrus.Fields{
		"version":       bundle.Version,
		"variant":       bundle.Variant,
		"algorithm":     bundle.Hyperparameters.Algorithm,
		"samples":       bundle.Metrics.Samples,
		"risk_accuracy": fmt.Sprintf("%.3f", bundle.Metrics.RiskAccuracy),
		"duration_s":    fmt.Sprintf("%.2f", bundle.Metrics.DurationSeconds),
	}).Info("risk model trained")
	return bundle, nil
}

// Bundle returns the active bundle, or nil before one is ready.
func (e *Engine) Bundle() *Bundle {
	if e == nil {
		return nil
	}
	return e.bundle.Load()
}

func (e *Engine) Variant() Variant { return e.opts.Variant }

// Assess runs the full pipeline: scale, classify, detect conditions, apply the
// safety override and compose recommendations.
func (e *Engine) Assess(p HealthParameters) (*Assessment, error) {
	b := e.Bundle()
	if b == nil {
		return nil, ErrModelNotReady
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	x, err := b.Scaler.Transform(p.Vector(b.Variant))
	if err != nil {
		return nil, err
	}

	probs := b.Risk.PredictProba(x)
	predicted := RiskLevel(argmax(probs))
	final, score := ApplyOverride(p, predicted)

	details := b.Conditions.Detect(x)
	detected := Surfaced(details)

	probabilities := make(map[RiskLevel]float64, len(RiskLevels))
	for _, level := range RiskLevels {
		probabilities[level] = probs[level]
	}

	return &Assessment{
		RiskLevel:          final,
		ModelRiskLevel:     predicted,
		OverrideScore:      score,
		RiskProbabilities:  probabilities,
		DetectedConditions: detected,
		ConditionDetails:   details,
		Recommendations:    Compose(final, detected, p),
		ModelVersion:       b.Version,
	}, nil
}

// FeatureImportance reports the risk model's learned weight per feature.
func (e *Engine) FeatureImportance() (map[string]float64, error) {
	b := e.Bundle()
	if b == nil {
		return nil, ErrModelNotReady
	}
	weights := b.Risk.Importances()
	out := make(map[string]float64, len(b.Features))
	for i, name := range b.Features {
		if i < len(weights) {
			out[name] = weights[i]
		}
	}
	return out, nil
}
