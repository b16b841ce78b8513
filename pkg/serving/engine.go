package serving

import (
	"context"
	"fmt"

	"github.com/synaptica-ai/maternal-risk/pkg/common/config"
	"github.com/synaptica-ai/maternal-risk/pkg/common/logger"
	"github.com/synaptica-ai/maternal-risk/pkg/observability/metrics"
	"github.com/synaptica-ai/maternal-risk/pkg/risk"
)

// EngineOptions maps configuration onto engine options.
func EngineOptions(cfg *config.Config) (risk.Options, error) {
	variant, err := risk.ParseVariant(cfg.ModelVariant)
	if err != nil {
		return risk.Options{}, err
	}
	algorithm, err := risk.ParseAlgorithm(cfg.ModelAlgorithm, variant)
	if err != nil {
		return risk.Options{}, err
	}
	hp := risk.DefaultHyperparameters(algorithm)
	if cfg.ForestTrees > 0 {
		hp.Trees = cfg.ForestTrees
	}
	return risk.Options{
		Variant:         variant,
		Samples:         cfg.TrainingSamples,
		Seed:            cfg.TrainingSeed,
		Hyperparameters: hp,
		Log:             logger.Component("risk_engine"),
	}, nil
}

// NewEngine loads or trains the engine over store and publishes the active
// model to the metrics endpoint.
func NewEngine(ctx context.Context, cfg *config.Config, store risk.ModelStore) (*risk.Engine, error) {
	opts, err := EngineOptions(cfg)
	if err != nil {
		return nil, err
	}
	logger.Log.WithFields(map[string]interface{}{
		"variant":   opts.Variant,
		"algorithm": opts.Hyperparameters.Algorithm,
		"seed":      opts.Seed,
	}).Info("Starting risk engine")

	engine, err := risk.NewEngine(ctx, store, opts)
	if err != nil {
		return nil, fmt.Errorf("start risk engine: %w", err)
	}
	metrics.SetActiveModel(engine.Bundle())
	return engine, nil
}
