package assessment

import (
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/maternal-risk/pkg/risk"
	"gorm.io/datatypes"
)

// Record is one persisted assessment.
type Record struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	PatientID      string         `gorm:"column:patient_id;index:idx_risk_assessments_patient_created,priority:1;size:64" json:"patient_id"`
	RiskLevel      string         `gorm:"column:risk_level;size:16" json:"risk_level"`
	ModelRiskLevel string         `gorm:"column:model_risk_level;size:16" json:"model_risk_level"`
	OverrideScore  int            `gorm:"column:override_score" json:"override_score"`
	ModelVersion   string         `gorm:"column:model_version;size:64" json:"model_version"`
	Parameters     datatypes.JSON `gorm:"column:parameters" json:"parameters"`
	Result         datatypes.JSON `gorm:"column:result" json:"result"`
	Metadata       datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time      `gorm:"column:created_at;index:idx_risk_assessments_patient_created,priority:2" json:"created_at"`
}

func (Record) TableName() string {
	return "risk_assessments"
}

// Result is what the API returns for one assessment.
type Result struct {
	ID         string    `json:"id"`
	PatientID  string    `json:"patient_id,omitempty"`
	AssessedAt time.Time `json:"assessed_at"`
	*risk.Assessment

	persisted bool
}

// Persisted reports whether the assessment was stored as a new record.
func (r *Result) Persisted() bool { return r.persisted }

// ModelInfo describes the serving bundle.
type ModelInfo struct {
	Version   string               `json:"version"`
	Variant   risk.Variant         `json:"variant"`
	Algorithm risk.Algorithm       `json:"algorithm"`
	CreatedAt time.Time            `json:"created_at"`
	Features  []string             `json:"features"`
	Metrics   risk.TrainingMetrics `json:"metrics"`
}

// AssessedEvent is the payload of a risk.assessed event.
type AssessedEvent struct {
	AssessmentID  string                   `json:"assessment_id"`
	PatientID     string                   `json:"patient_id,omitempty"`
	RiskLevel     risk.RiskLevel           `json:"risk_level"`
	OverrideScore int                      `json:"override_score"`
	Conditions    []risk.DetectedCondition `json:"detected_conditions"`
	ICD10Codes    []string                 `json:"icd10_codes"`
	ModelVersion  string                   `json:"model_version"`
	AssessedAt    time.Time                `json:"assessed_at"`
}
