package assessment

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	errMissingReading = errors.New("missing required reading")
	errInvalidReading = errors.New("invalid reading")
	errInvalidPatient = errors.New("invalid patient id")
)

const maxPatientIDLength = 64

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

type Validator struct {
	requirePatient bool
}

// NewValidator builds a validator. requirePatient makes patient_id mandatory,
// which history persistence needs.
func NewValidator(requirePatient bool) *Validator {
	return &Validator{requirePatient: requirePatient}
}

func (v *Validator) Validate(req RequestWrapper) error {
	if v == nil {
		return ValidationError{reason: errors.New("validator not initialised")}
	}

	patient := strings.TrimSpace(req.PatientID)
	if v.requirePatient && patient == "" {
		return ValidationError{reason: fmt.Errorf("patient_id required: %w", errInvalidPatient)}
	}
	if len(patient) > maxPatientIDLength {
		return ValidationError{reason: fmt.Errorf("patient_id longer than %d characters: %w", maxPatientIDLength, errInvalidPatient)}
	}

	var missing []string
	for _, f := range []struct {
		name  string
		value *float64
	}{
		{"systolic_bp", req.SystolicBP},
		{"diastolic_bp", req.DiastolicBP},
		{"blood_sugar", req.BloodSugar},
		{"body_weight", req.BodyWeight},
		{"hemoglobin", req.Hemoglobin},
	} {
		if f.value == nil {
			missing = append(missing, f.name)
			continue
		}
		if !finite(*f.value) || *f.value <= 0 {
			return ValidationError{reason: fmt.Errorf("%s must be a positive number: %w", f.name, errInvalidReading)}
		}
	}
	if len(missing) > 0 {
		return ValidationError{reason: fmt.Errorf("%s: %w", strings.Join(missing, ", "), errMissingReading)}
	}

	for _, f := range []struct {
		name  string
		value *float64
	}{
		{"heart_rate", req.HeartRate},
		{"protein_urine", req.ProteinUrine},
		{"age", req.Age},
		{"gestational_week", req.GestationalWeek},
	} {
		if f.value != nil && (!finite(*f.value) || *f.value < 0) {
			return ValidationError{reason: fmt.Errorf("%s must be a non-negative number: %w", f.name, errInvalidReading)}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
