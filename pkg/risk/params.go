package risk

import (
	"fmt"
	"math"
	"strings"
)

const (
	DefaultHeartRate       = 75.0
	DefaultProteinUrine    = 0.1
	DefaultAge             = 28.0
	DefaultGestationalWeek = 20.0
)

// HealthParameters is one set of vital-sign readings. The first five fields
// are required; nil optional fields take the Default* values.
type HealthParameters struct {
	SystolicBP  float64 `json:"systolic_bp"`
	DiastolicBP float64 `json:"diastolic_bp"`
	BloodSugar  float64 `json:"blood_sugar"`
	BodyWeight  float64 `json:"body_weight"`
	Hemoglobin  float64 `json:"hemoglobin"`

	HeartRate       *float64 `json:"heart_rate,omitempty"`
	ProteinUrine    *float64 `json:"protein_urine,omitempty"`
	Age             *float64 `json:"age,omitempty"`
	GestationalWeek *float64 `json:"gestational_week,omitempty"`
}

var basicFeatures = []string{"systolic_bp", "diastolic_bp", "blood_sugar", "body_weight", "hemoglobin"}

var enhancedFeatures = []string{
	"systolic_bp", "diastolic_bp", "blood_sugar", "body_weight", "hemoglobin",
	"heart_rate", "protein_urine", "age", "gestational_week",
}

// FeatureNames is the feature order the variant's models are trained on.
func FeatureNames(v Variant) []string {
	if v == VariantBasic {
		return append([]string(nil), basicFeatures...)
	}
	return append([]string(nil), enhancedFeatures...)
}

// Validate reports missing required readings. A required reading that is not
// a positive finite number counts as missing.
func (p HealthParameters) Validate() error {
	var missing []string
	required := []struct {
		name  string
		value float64
	}{
		{"systolic_bp", p.SystolicBP},
		{"diastolic_bp", p.DiastolicBP},
		{"blood_sugar", p.BloodSugar},
		{"body_weight", p.BodyWeight},
		{"hemoglobin", p.Hemoglobin},
	}
	for _, r := range required {
		if math.IsNaN(r.value) || math.IsInf(r.value, 0) || r.value <= 0 {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required health parameters %s: %w", strings.Join(missing, ", "), ErrInvalidInput)
	}
	for name, v := range map[string]*float64{
		"heart_rate":       p.HeartRate,
		"protein_urine":    p.ProteinUrine,
		"age":              p.Age,
		"gestational_week": p.GestationalWeek,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("%s is not a finite number: %w", name, ErrInvalidInput)
		}
	}
	return nil
}

// Vector lays the readings out in the variant's feature order. Values are
// passed through unclamped.
func (p HealthParameters) Vector(v Variant) []float64 {
	out := []float64{p.SystolicBP, p.DiastolicBP, p.BloodSugar, p.BodyWeight, p.Hemoglobin}
	if v == VariantBasic {
		return out
	}
	return append(out,
		valueOr(p.HeartRate, DefaultHeartRate),
		valueOr(p.ProteinUrine, DefaultProteinUrine),
		valueOr(p.Age, DefaultAge),
		valueOr(p.GestationalWeek, DefaultGestationalWeek),
	)
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// Float returns a pointer to v, for filling optional fields.
func Float(v float64) *float64 {
	return &v
}
