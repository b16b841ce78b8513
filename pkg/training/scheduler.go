package training

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/synaptica-ai/maternal-risk/pkg/common/logger"
)

// Scheduler retrains on a cron schedule with a fresh seed each time.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
}

// NewScheduler registers spec, a standard five-field cron expression.
func NewScheduler(service *Service, spec string) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		service: service,
	}
	if _, err := s.cron.AddFunc(spec, s.retrain); err != nil {
		return nil, fmt.Errorf("register retrain schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) retrain() {
	run, err := s.service.RunNow(context.Background(), TriggerInput{Trigger: TriggerSchedule})
	if err != nil {
		logger.Log.WithError(err).Error("scheduled retrain failed")
		return
	}
	logger.Log.WithField("model_version", run.ModelVersion).Info("scheduled retrain completed")
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Log.Info("retrain scheduler started")
}

// Stop prevents new runs and returns a context that is done once a running
// retrain has finished.
func (s *Scheduler) Stop() context.Context {
	ctx := s.cron.Stop()
	logger.Log.Info("retrain scheduler stopped")
	return ctx
}
