package training

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler(t *testing.T) {
	svc := NewService(NewMemoryRepository(), &fakeRetrainer{}, nil, 0)

	s, err := NewScheduler(svc, "0 3 * * *")
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 1)

	_, err = NewScheduler(svc, "not a schedule")
	assert.Error(t, err)
}

func TestSchedulerRetrain(t *testing.T) {
	engine := &fakeRetrainer{}
	repo := NewMemoryRepository()
	s, err := NewScheduler(NewService(repo, engine, nil, 0), "@daily")
	require.NoError(t, err)

	s.retrain()

	runs, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, TriggerSchedule, runs[0].Trigger)
	assert.Equal(t, StatusCompleted, runs[0].Status)
}
