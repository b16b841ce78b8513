package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/synaptica-ai/maternal-risk/pkg/assessment"
	"github.com/synaptica-ai/maternal-risk/pkg/common/config"
	"github.com/synaptica-ai/maternal-risk/pkg/common/database"
	"github.com/synaptica-ai/maternal-risk/pkg/common/kafka"
	"github.com/synaptica-ai/maternal-risk/pkg/common/logger"
	"github.com/synaptica-ai/maternal-risk/pkg/dlp"
	"github.com/synaptica-ai/maternal-risk/pkg/serving"
	"github.com/synaptica-ai/maternal-risk/pkg/storage"
	"github.com/synaptica-ai/maternal-risk/pkg/terminology"
)

func main() {
	logger.Init()
	cfg, err := config.Load()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}

	store, err := storage.Open(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to open model store")
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Minute)
	engine, err := serving.NewEngine(startCtx, cfg, store)
	cancelStart()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize risk engine")
	}

	var records assessment.RecordStore
	if cfg.PersistAssessments {
		db, err := database.GetPostgres(cfg)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to connect to PostgreSQL")
		}
		repo := assessment.NewRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("Failed to migrate assessment tables")
		}
		records = repo
	}

	producer := kafka.NewProducer(cfg, cfg.AssessmentsTopic)

	service := assessment.NewService(assessment.NewValidator(false), engine, records, producer)
	if catalog, err := terminology.Load(cfg.TerminologyFile); err != nil {
		logger.Log.WithError(err).Warn("Failed to load terminology catalog, using defaults")
	} else {
		service.SetCatalog(catalog)
	}
	if rules, err := dlp.LoadRules(cfg.DLPRulesFile); err != nil {
		logger.Log.WithError(err).Fatal("Failed to load DLP rules")
	} else if scrubber, err := dlp.NewScrubber(rules); err != nil {
		logger.Log.WithError(err).Fatal("Failed to compile DLP rules")
	} else {
		service.SetScrubber(scrubber)
	}
	consumer := kafka.NewConsumer(cfg, cfg.HealthRecordsTopic, "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	logger.Log.WithFields(map[string]interface{}{
		"topic":         cfg.HealthRecordsTopic,
		"publish_topic": cfg.AssessmentsTopic,
		"model_version": engine.Bundle().Version,
	}).Info("Assessment Worker started")

	runErr := consumer.Consume(ctx, service.HandleEvent)
	stop()
	_ = consumer.Close()
	_ = producer.Close()
	_ = database.ClosePostgres()

	// a non-zero exit lets the supervisor restart from the last committed offset
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Log.WithError(runErr).Fatal("Consumer stopped")
	}
	logger.Log.Info("Assessment Worker stopped")
}
