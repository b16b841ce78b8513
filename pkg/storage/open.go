package storage

import (
	"fmt"

	"github.com/synaptica-ai/maternal-risk/pkg/common/config"
	"github.com/synaptica-ai/maternal-risk/pkg/common/database"
	"github.com/synaptica-ai/maternal-risk/pkg/common/logger"
	"github.com/synaptica-ai/maternal-risk/pkg/risk"
)

// Open returns the model store selected by MODEL_STORE.
func Open(cfg *config.Config) (risk.ModelStore, error) {
	switch cfg.ModelStore {
	case "postgres":
		db, err := database.GetPostgres(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect model store: %w", err)
		}
		store := NewPostgresStore(db)
		if err := store.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("migrate model store: %w", err)
		}
		logger.Log.Info("Using PostgreSQL model store")
		return store, nil
	case "redis":
		logger.Log.WithField("prefix", cfg.ModelRedisPrefix).Info("Using Redis model store")
		return NewRedisStore(database.GetRedis(cfg), cfg.ModelRedisPrefix), nil
	case "file", "":
		store, err := NewFileStore(cfg.ModelArtifactDir, 0)
		if err != nil {
			return nil, err
		}
		logger.Log.WithField("dir", cfg.ModelArtifactDir).Info("Using file model store")
		return store, nil
	}
	return nil, fmt.Errorf("unknown model store %q", cfg.ModelStore)
}
