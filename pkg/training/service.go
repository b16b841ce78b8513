package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/maternal-risk/pkg/common/logger"
	"github.com/synaptica-ai/maternal-risk/pkg/common/models"
	"github.com/synaptica-ai/maternal-risk/pkg/observability/metrics"
	"github.com/synaptica-ai/maternal-risk/pkg/risk"
	"gorm.io/datatypes"
)

const eventSource = "model-trainer"

// MaxSeed is the largest seed a run can record; training_runs stores it as a
// signed bigint.
const MaxSeed = math.MaxInt64

var ErrInvalidSeed = errors.New("seed out of range")

// Retrainer is the part of the risk engine the service drives.
type Retrainer interface {
	Retrain(ctx context.Context, seed uint64) (*risk.Bundle, error)
	Variant() risk.Variant
	Bundle() *risk.Bundle
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType, source, key string, data interface{}) error
}

type Service struct {
	repo      RunStore
	engine    Retrainer
	publisher EventPublisher
	workerSem chan struct{}
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewService runs at most one training at a time. publisher may be nil;
// timeout <= 0 leaves background runs unbounded.
func NewService(repo RunStore, engine Retrainer, publisher EventPublisher, timeout time.Duration) *Service {
	return &Service{
		repo:      repo,
		engine:    engine,
		publisher: publisher,
		workerSem: make(chan struct{}, 1),
		timeout:   timeout,
	}
}

// Trigger records a queued run and trains in the background.
func (s *Service) Trigger(ctx context.Context, input TriggerInput) (*RunModel, error) {
	run, seed, err := s.enqueue(ctx, input)
	if err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		runCtx := context.Background()
		if s.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, s.timeout)
			defer cancel()
		}
		_ = s.execute(runCtx, run.ID, seed)
	}()
	return run, nil
}

// RunNow trains synchronously and returns the finished run.
func (s *Service) RunNow(ctx context.Context, input TriggerInput) (*RunModel, error) {
	run, seed, err := s.enqueue(ctx, input)
	if err != nil {
		return nil, err
	}
	trainErr := s.execute(ctx, run.ID, seed)
	finished, err := s.repo.Get(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	return finished, trainErr
}

// Wait blocks until background runs have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*RunModel, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int) ([]RunModel, error) {
	return s.repo.List(ctx, limit)
}

func (s *Service) enqueue(ctx context.Context, input TriggerInput) (*RunModel, uint64, error) {
	seed := rand.Uint64() >> 1
	if input.Seed != nil {
		if *input.Seed > MaxSeed {
			return nil, 0, fmt.Errorf("seed %d exceeds %d: %w", *input.Seed, uint64(MaxSeed), ErrInvalidSeed)
		}
		seed = *input.Seed
	}
	trigger := input.Trigger
	if trigger == "" {
		trigger = TriggerAPI
	}

	now := time.Now().UTC()
	run := &RunModel{
		ID:        uuid.New(),
		Trigger:   trigger,
		Variant:   string(s.engine.Variant()),
		Seed:      int64(seed),
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if b := s.engine.Bundle(); b != nil {
		run.Algorithm = string(b.Hyperparameters.Algorithm)
	}
	if err := s.repo.Create(ctx, run); err != nil {
		return nil, 0, fmt.Errorf("record training run: %w", err)
	}
	return run, seed, nil
}

func (s *Service) execute(ctx context.Context, id uuid.UUID, seed uint64) error {
	select {
	case s.workerSem <- struct{}{}:
	case <-ctx.Done():
		s.failRun(context.Background(), id, ctx.Err())
		return ctx.Err()
	}
	defer func() { <-s.workerSem }()

	log := logger.Log.WithFields(map[string]interface{}{
		"run_id": id.String(),
		"seed":   seed,
	})

	start := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, StatusRunning, "", nil, ""); err != nil {
		log.WithError(err).Error("failed to mark training run running")
	}
	if err := s.repo.SetTimestamps(ctx, id, &start, nil); err != nil {
		log.WithError(err).Error("failed to set start timestamp")
	}

	bundle, err := s.engine.Retrain(ctx, seed)
	if err != nil {
		metrics.ObserveTraining(nil)
		s.failRun(context.Background(), id, err)
		return err
	}
	metrics.ObserveTraining(bundle)

	payload, err := json.Marshal(bundle.Metrics)
	if err != nil {
		log.WithError(err).Warn("failed to encode training metrics")
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusCompleted, bundle.Version, datatypes.JSON(payload), ""); err != nil {
		log.WithError(err).Error("failed to mark training run complete")
	}
	completed := time.Now().UTC()
	if err := s.repo.SetTimestamps(ctx, id, nil, &completed); err != nil {
		log.WithError(err).Error("failed to set completion timestamp")
	}

	log.WithFields(map[string]interface{}{
		"model_version": bundle.Version,
		"risk_accuracy": bundle.Metrics.RiskAccuracy,
	}).Info("training run completed")

	if s.publisher != nil {
		err := s.publisher.PublishEvent(ctx, models.EventModelTrained, eventSource, bundle.Version, TrainedEvent{
			RunID:        id.String(),
			ModelVersion: bundle.Version,
			Variant:      string(bundle.Variant),
			RiskAccuracy: bundle.Metrics.RiskAccuracy,
			TrainedAt:    completed,
		})
		if err != nil {
			log.WithError(err).Warn("failed to publish model.trained event")
		}
	}
	return nil
}

func (s *Service) failRun(ctx context.Context, id uuid.UUID, err error) {
	logger.Log.WithError(err).WithField("run_id", id.String()).Error("training run failed")
	_ = s.repo.UpdateStatus(ctx, id, StatusFailed, "", nil, err.Error())
	completed := time.Now().UTC()
	_ = s.repo.SetTimestamps(ctx, id, nil, &completed)
}
