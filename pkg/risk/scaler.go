package risk

import (
	"fmt"
	"math"
)

// Scaler standardises features to zero mean and unit variance.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-feature mean and population standard deviation.
// A zero-variance feature gets std 1, so it is only centred.
func FitScaler(samples [][]float64) (*Scaler, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("fit scaler on empty set: %w", ErrInvalidInput)
	}
	dim := len(samples[0])
	s := &Scaler{Mean: make([]float64, dim), Std: make([]float64, dim)}
	for _, row := range samples {
		if len(row) != dim {
			return nil, fmt.Errorf("ragged training row of %d features, want %d: %w", len(row), dim, ErrInvalidInput)
		}
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	n := float64(len(samples))
	for j := range s.Mean {
		s.Mean[j] /= n
	}
	for _, row := range samples {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Std[j] += d * d
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / n)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	return s, nil
}

func (s *Scaler) Dim() int { return len(s.Mean) }

// Transform returns a standardised copy of x.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("feature vector has %d values, scaler expects %d: %w", len(x), len(s.Mean), ErrInvalidInput)
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out, nil
}

// TransformAll standardises every row.
func (s *Scaler) TransformAll(samples [][]float64) ([][]float64, error) {
	out := make([][]float64, len(samples))
	for i, row := range samples {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}
