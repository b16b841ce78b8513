package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/maternal-risk/pkg/common/logger"
	"github.com/synaptica-ai/maternal-risk/pkg/common/models"
	"github.com/synaptica-ai/maternal-risk/pkg/dlp"
	"github.com/synaptica-ai/maternal-risk/pkg/observability/metrics"
	"github.com/synaptica-ai/maternal-risk/pkg/risk"
	"github.com/synaptica-ai/maternal-risk/pkg/terminology"
	"gorm.io/datatypes"
)

// ErrHistoryDisabled is returned by History when assessments are not persisted.
var ErrHistoryDisabled = errors.New("assessment history is not enabled")

const eventSource = "risk-service"

type Engine interface {
	Assess(p risk.HealthParameters) (*risk.Assessment, error)
	FeatureImportance() (map[string]float64, error)
	Bundle() *risk.Bundle
}

type RecordStore interface {
	Create(ctx context.Context, rec *Record) error
	ListByPatient(ctx context.Context, patientID string, limit int) ([]Record, error)
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType, source, key string, data interface{}) error
}

type Service struct {
	validator *Validator
	engine    Engine
	records   RecordStore
	publisher EventPublisher
	catalog   terminology.Catalog
	scrubber  *dlp.Scrubber
}

// NewService wires the assessment pipeline. records and publisher are
// optional; nil disables persistence or event publishing.
func NewService(validator *Validator, engine Engine, records RecordStore, publisher EventPublisher) *Service {
	return &Service{
		validator: validator,
		engine:    engine,
		records:   records,
		publisher: publisher,
		catalog:   terminology.DefaultCatalog(),
	}
}

// SetScrubber masks identifiers in request metadata before it is persisted.
// Without one, metadata is not stored.
func (s *Service) SetScrubber(scrubber *dlp.Scrubber) {
	s.scrubber = scrubber
}

// SetCatalog replaces the terminology used to code published conditions.
func (s *Service) SetCatalog(catalog terminology.Catalog) {
	s.catalog = catalog
}

// Assess validates the request, runs the engine, then records and announces
// the result. Recording and publishing failures are logged only: the
// assessment itself has already been made.
func (s *Service) Assess(ctx context.Context, req RequestWrapper) (*Result, error) {
	if err := s.validator.Validate(req); err != nil {
		metrics.ObserveAssessmentFailure()
		return nil, err
	}

	params := req.Parameters()
	a, err := s.engine.Assess(params)
	if err != nil {
		metrics.ObserveAssessmentFailure()
		if errors.Is(err, risk.ErrInvalidInput) {
			return nil, ValidationError{reason: err}
		}
		return nil, err
	}
	metrics.ObserveAssessment(a)

	result := &Result{
		ID:         uuid.New().String(),
		PatientID:  strings.TrimSpace(req.PatientID),
		AssessedAt: time.Now().UTC(),
		Assessment: a,
	}

	log := logger.Log.WithFields(map[string]interface{}{
		"assessment_id":  result.ID,
		"risk_level":     a.RiskLevel.String(),
		"model_level":    a.ModelRiskLevel.String(),
		"override_score": a.OverrideScore,
		"conditions":     len(a.DetectedConditions),
		"model_version":  a.ModelVersion,
	})
	log.Info("risk assessed")

	if s.records != nil && result.PatientID != "" {
		if err := s.persist(ctx, result, params, req.Metadata); err != nil {
			log.WithError(err).Error("failed to persist assessment")
		} else {
			result.persisted = true
		}
	}
	if s.publisher != nil {
		err := s.publisher.PublishEvent(ctx, models.EventRiskAssessed, eventSource, result.PatientID, AssessedEvent{
			AssessmentID:  result.ID,
			PatientID:     result.PatientID,
			RiskLevel:     a.RiskLevel,
			OverrideScore: a.OverrideScore,
			Conditions:    a.DetectedConditions,
			ICD10Codes:    s.catalog.Codes(a),
			ModelVersion:  a.ModelVersion,
			AssessedAt:    result.AssessedAt,
		})
		metrics.ObservePublish(err)
		if err != nil {
			log.WithError(err).Warn("failed to publish assessment event")
		}
	}
	return result, nil
}

func (s *Service) persist(ctx context.Context, result *Result, params risk.HealthParameters, metadata map[string]string) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	resultJSON, err := json.Marshal(result.Assessment)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	id, err := uuid.Parse(result.ID)
	if err != nil {
		return err
	}
	var metadataJSON datatypes.JSON
	if s.scrubber != nil && len(metadata) > 0 {
		masked, finding := s.scrubber.Scrub(metadata)
		if finding.Matches > 0 {
			logger.Log.WithFields(map[string]interface{}{
				"assessment_id": result.ID,
				"types":         finding.Types,
				"matches":       finding.Matches,
			}).Warn("masked identifiers in assessment metadata")
		}
		if metadataJSON, err = json.Marshal(masked); err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
	}
	return s.records.Create(ctx, &Record{
		ID:             id,
		PatientID:      result.PatientID,
		RiskLevel:      result.RiskLevel.String(),
		ModelRiskLevel: result.ModelRiskLevel.String(),
		OverrideScore:  result.OverrideScore,
		ModelVersion:   result.ModelVersion,
		Parameters:     datatypes.JSON(paramsJSON),
		Result:         datatypes.JSON(resultJSON),
		Metadata:       metadataJSON,
		CreatedAt:      result.AssessedAt,
	})
}

// History returns the patient's recent assessments, newest first.
func (s *Service) History(ctx context.Context, patientID string, limit int) ([]Record, error) {
	if s.records == nil {
		return nil, ErrHistoryDisabled
	}
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ValidationError{reason: fmt.Errorf("patient_id required: %w", errInvalidPatient)}
	}
	return s.records.ListByPatient(ctx, patientID, limit)
}

func (s *Service) FeatureImportance() (map[string]float64, error) {
	return s.engine.FeatureImportance()
}

func (s *Service) ModelInfo() (*ModelInfo, error) {
	b := s.engine.Bundle()
	if b == nil {
		return nil, risk.ErrModelNotReady
	}
	return &ModelInfo{
		Version:   b.Version,
		Variant:   b.Variant,
		Algorithm: b.Hyperparameters.Algorithm,
		CreatedAt: b.CreatedAt,
		Features:  b.Features,
		Metrics:   b.Metrics,
	}, nil
}

// HandleEvent assesses a health-record event from the bus. Malformed and
// invalid records are logged and dropped so they are not redelivered.
func (s *Service) HandleEvent(ctx context.Context, event models.Event) error {
	if event.Type != "" && event.Type != models.EventHealthRecordSubmitted {
		return nil
	}
	var req RequestWrapper
	if err := event.Decode(&req); err != nil {
		logger.Log.WithError(err).WithField("event_id", event.ID).Warn("dropping undecodable health record")
		return nil
	}
	if _, err := s.Assess(ctx, req); err != nil {
		if IsValidationError(err) {
			logger.Log.WithError(err).WithField("event_id", event.ID).Warn("dropping invalid health record")
			return nil
		}
		return err
	}
	return nil
}
