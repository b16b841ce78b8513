package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run triggers.
const (
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"
	TriggerCLI      = "cli"
)

// RunModel is one retraining attempt.
type RunModel struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Trigger      string         `gorm:"column:trigger;size:16" json:"trigger"`
	Variant      string         `gorm:"column:variant;size:16" json:"variant"`
	Algorithm    string         `gorm:"column:algorithm;size:16" json:"algorithm"`
	Seed         int64          `gorm:"column:seed" json:"seed"`
	Status       string         `gorm:"column:status;size:16" json:"status"`
	ModelVersion string         `gorm:"column:model_version;size:64" json:"model_version,omitempty"`
	Metrics      datatypes.JSON `gorm:"column:metrics" json:"metrics,omitempty"`
	ErrorMessage string         `gorm:"column:error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at" json:"updated_at"`
	StartedAt    *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt  *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (RunModel) TableName() string {
	return "training_runs"
}

type TriggerInput struct {
	// Seed picks the synthetic data draw; nil takes a fresh one.
	Seed    *uint64
	Trigger string
}

// TrainedEvent is the payload of a model.trained event.
type TrainedEvent struct {
	RunID        string    `json:"run_id"`
	ModelVersion string    `json:"model_version"`
	Variant      string    `json:"variant"`
	RiskAccuracy float64   `json:"risk_accuracy"`
	TrainedAt    time.Time `json:"trained_at"`
}
