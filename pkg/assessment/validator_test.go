package assessment

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator(t *testing.T) {
	tests := []struct {
		name           string
		mutate         func(*RequestWrapper)
		requirePatient bool
		wantErr        bool
	}{
		{"valid", func(r *RequestWrapper) {}, false, false},
		{"valid with optionals", func(r *RequestWrapper) { r.HeartRate = f64(80); r.GestationalWeek = f64(0) }, false, false},
		{"missing systolic", func(r *RequestWrapper) { r.SystolicBP = nil }, false, true},
		{"missing several", func(r *RequestWrapper) { r.BloodSugar = nil; r.BodyWeight = nil }, false, true},
		{"zero hemoglobin", func(r *RequestWrapper) { r.Hemoglobin = f64(0) }, false, true},
		{"nan sugar", func(r *RequestWrapper) { r.BloodSugar = f64(math.NaN()) }, false, true},
		{"negative age", func(r *RequestWrapper) { r.Age = f64(-1) }, false, true},
		{"infinite protein", func(r *RequestWrapper) { r.ProteinUrine = f64(math.Inf(1)) }, false, true},
		{"patient required", func(r *RequestWrapper) { r.PatientID = "" }, true, true},
		{"patient optional", func(r *RequestWrapper) { r.PatientID = "" }, false, false},
		{"patient too long", func(r *RequestWrapper) { r.PatientID = strings.Repeat("p", 65) }, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := NewValidator(tt.requirePatient).Validate(req)
			if tt.wantErr {
				assert.True(t, IsValidationError(err), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNilValidator(t *testing.T) {
	var v *Validator
	assert.True(t, IsValidationError(v.Validate(validRequest())))
}

func TestMissingFieldsAreListed(t *testing.T) {
	req := validRequest()
	req.SystolicBP, req.Hemoglobin = nil, nil
	err := NewValidator(false).Validate(req)
	assert.ErrorIs(t, err, errMissingReading)
	assert.Contains(t, err.Error(), "systolic_bp")
	assert.Contains(t, err.Error(), "hemoglobin")
}
