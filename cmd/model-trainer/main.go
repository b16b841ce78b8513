package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/synaptica-ai/maternal-risk/pkg/common/config"
	"github.com/synaptica-ai/maternal-risk/pkg/common/logger"
	"github.com/synaptica-ai/maternal-risk/pkg/risk"
	"github.com/synaptica-ai/maternal-risk/pkg/serving"
	"github.com/synaptica-ai/maternal-risk/pkg/storage"
	"github.com/synaptica-ai/maternal-risk/pkg/training"
)

func main() {
	logger.Init()
	cfg, err := config.Load()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}

	seed := flag.Uint64("seed", cfg.TrainingSeed, "synthetic data seed")
	samples := flag.Int("samples", cfg.TrainingSamples, "training samples (0 uses the variant default)")
	force := flag.Bool("force", false, "retrain even when a model is already stored")
	flag.Parse()
	if *seed > training.MaxSeed {
		logger.Log.WithField("seed", *seed).Fatal("Seed exceeds the recordable range")
	}
	cfg.TrainingSeed = *seed
	cfg.TrainingSamples = *samples

	store, err := storage.Open(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to open model store")
	}

	ctx := context.Background()
	_, err = store.LoadArtifacts(ctx)
	stored := err == nil
	if err != nil && !errors.Is(err, risk.ErrArtifactsNotFound) {
		logger.Log.WithError(err).Fatal("Failed to read model store")
	}

	// with an empty store NewEngine trains and saves the first model itself
	engine, err := serving.NewEngine(ctx, cfg, store)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize risk engine")
	}

	switch {
	case stored && *force:
		svc := training.NewService(training.NewMemoryRepository(), engine, nil, 0)
		run, err := svc.RunNow(ctx, training.TriggerInput{Seed: seed, Trigger: training.TriggerCLI})
		if err != nil {
			logger.Log.WithError(err).Fatal("Training failed")
		}
		logger.Log.WithField("run_id", run.ID.String()).Info("Model retrained")
	case stored:
		logger.Log.Info("Model already stored; use -force to retrain")
	default:
		logger.Log.WithField("model_version", engine.Bundle().Version).Info("Model trained")
	}
	printMetrics(engine.Bundle())
}

func printMetrics(b *risk.Bundle) {
	out, err := json.MarshalIndent(map[string]interface{}{
		"version":    b.Version,
		"variant":    b.Variant,
		"algorithm":  b.Hyperparameters.Algorithm,
		"created_at": b.CreatedAt,
		"metrics":    b.Metrics,
	}, "", "  ")
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to encode metrics")
	}
	fmt.Fprintln(os.Stdout, string(out))
}
