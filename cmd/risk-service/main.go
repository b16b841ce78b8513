package main

import (
	"context"
	"fmt"
	"net/http"
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
	"github.com/synaptica-ai/maternal-risk/pkg/training"
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

	var (
		records assessment.RecordStore
		runs    training.RunStore = training.NewMemoryRepository()
	)
	if cfg.PersistAssessments {
		db, err := database.GetPostgres(cfg)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to connect to PostgreSQL")
		}
		assessmentRepo := assessment.NewRepository(db)
		trainingRepo := training.NewRepository(db)
		if err := assessmentRepo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("Failed to migrate assessment tables")
		}
		if err := trainingRepo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("Failed to migrate training tables")
		}
		records, runs = assessmentRepo, trainingRepo
	}

	var (
		assessmentEvents assessment.EventPublisher
		trainingEvents   training.EventPublisher
		producer         *kafka.Producer
	)
	if cfg.PublishAssessments {
		producer = kafka.NewProducer(cfg, cfg.AssessmentsTopic)
		assessmentEvents, trainingEvents = producer, producer
	}

	catalog, err := terminology.Load(cfg.TerminologyFile)
	if err != nil {
		logger.Log.WithError(err).Warn("Failed to load terminology catalog, using defaults")
	}

	assessmentService := assessment.NewService(assessment.NewValidator(false), engine, records, assessmentEvents)
	assessmentService.SetCatalog(catalog)
	if rules, err := dlp.LoadRules(cfg.DLPRulesFile); err != nil {
		logger.Log.WithError(err).Fatal("Failed to load DLP rules")
	} else if scrubber, err := dlp.NewScrubber(rules); err != nil {
		logger.Log.WithError(err).Fatal("Failed to compile DLP rules")
	} else {
		assessmentService.SetScrubber(scrubber)
	}
	trainingService := training.NewService(runs, engine, trainingEvents, 30*time.Minute)

	var scheduler *training.Scheduler
	if cfg.RetrainSchedule != "" {
		scheduler, err = training.NewScheduler(trainingService, cfg.RetrainSchedule)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to configure retrain schedule")
		}
		scheduler.Start()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      newRouter(cfg, assessmentService, trainingService, store, catalog),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":          cfg.ServerHost,
			"port":          cfg.ServerPort,
			"model_version": engine.Bundle().Version,
		}).Info("Risk Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Risk Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}
	if scheduler != nil {
		select {
		case <-scheduler.Stop().Done():
		case <-ctx.Done():
		}
	}
	trainingService.Wait()
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Log.WithError(err).Error("Failed to close Kafka producer")
		}
	}
	_ = database.ClosePostgres()
	_ = database.CloseRedis()

	logger.Log.Info("Risk Service stopped")
}
