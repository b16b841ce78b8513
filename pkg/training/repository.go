package training

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrRunNotFound = errors.New("training run not found")

// RunStore records training runs.
type RunStore interface {
	Create(ctx context.Context, run *RunModel) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status, modelVersion string, metrics datatypes.JSON, errorMessage string) error
	SetTimestamps(ctx context.Context, id uuid.UUID, startedAt, completedAt *time.Time) error
	Get(ctx context.Context, id uuid.UUID) (*RunModel, error)
	List(ctx context.Context, limit int) ([]RunModel, error)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&RunModel{})
}

func (r *Repository) Create(ctx context.Context, run *RunModel) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status, modelVersion string, metrics datatypes.JSON, errorMessage string) error {
	updates := map[string]interface{}{
		"status":        status,
		"error_message": errorMessage,
		"updated_at":    time.Now().UTC(),
	}
	if modelVersion != "" {
		updates["model_version"] = modelVersion
	}
	if metrics != nil {
		updates["metrics"] = metrics
	}
	return r.db.WithContext(ctx).Model(&RunModel{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) SetTimestamps(ctx context.Context, id uuid.UUID, startedAt, completedAt *time.Time) error {
	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if startedAt != nil {
		updates["started_at"] = *startedAt
	}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}
	return r.db.WithContext(ctx).Model(&RunModel{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*RunModel, error) {
	var run RunModel
	result := r.db.WithContext(ctx).First(&run, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	return &run, result.Error
}

func (r *Repository) List(ctx context.Context, limit int) ([]RunModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []RunModel
	result := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&runs)
	return runs, result.Error
}

// MemoryRepository keeps runs in process memory, for deployments without
// Postgres.
type MemoryRepository struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]RunModel
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{runs: make(map[uuid.UUID]RunModel)}
}

func (m *MemoryRepository) Create(ctx context.Context, run *RunModel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = *run
	return nil
}

func (m *MemoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status, modelVersion string, metrics datatypes.JSON, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return ErrRunNotFound
	}
	run.Status = status
	run.ErrorMessage = errorMessage
	run.UpdatedAt = time.Now().UTC()
	if modelVersion != "" {
		run.ModelVersion = modelVersion
	}
	if metrics != nil {
		run.Metrics = metrics
	}
	m.runs[id] = run
	return nil
}

func (m *MemoryRepository) SetTimestamps(ctx context.Context, id uuid.UUID, startedAt, completedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return ErrRunNotFound
	}
	run.UpdatedAt = time.Now().UTC()
	if startedAt != nil {
		run.StartedAt = startedAt
	}
	if completedAt != nil {
		run.CompletedAt = completedAt
	}
	m.runs[id] = run
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, id uuid.UUID) (*RunModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return &run, nil
}

func (m *MemoryRepository) List(ctx context.Context, limit int) ([]RunModel, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.RLock()
	runs := make([]RunModel, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, run)
	}
	m.mu.RUnlock()
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
