package assessment

import "github.com/synaptica-ai/maternal-risk/pkg/risk"

// RequestWrapper is the wire form of an assessment request. Pointers let the
// validator tell an absent reading from a zero one.
type RequestWrapper struct {
	PatientID       string            `json:"patient_id,omitempty"`
	SystolicBP      *float64          `json:"systolic_bp"`
	DiastolicBP     *float64          `json:"diastolic_bp"`
	BloodSugar      *float64          `json:"blood_sugar"`
	BodyWeight      *float64          `json:"body_weight"`
	Hemoglobin      *float64          `json:"hemoglobin"`
	HeartRate       *float64          `json:"heart_rate,omitempty"`
	ProteinUrine    *float64          `json:"protein_urine,omitempty"`
	Age             *float64          `json:"age,omitempty"`
	GestationalWeek *float64          `json:"gestational_week,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Parameters converts a validated request. Absent required readings become
// zero, which the engine rejects.
func (r RequestWrapper) Parameters() risk.HealthParameters {
	return risk.HealthParameters{
		SystolicBP:      deref(r.SystolicBP),
		DiastolicBP:     deref(r.DiastolicBP),
		BloodSugar:      deref(r.BloodSugar),
		BodyWeight:      deref(r.BodyWeight),
		Hemoglobin:      deref(r.Hemoglobin),
		HeartRate:       r.HeartRate,
		ProteinUrine:    r.ProteinUrine,
		Age:             r.Age,
		GestationalWeek: r.GestationalWeek,
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
