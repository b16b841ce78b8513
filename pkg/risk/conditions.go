package risk

import "fmt"

// DetectionThreshold is the probability a positive condition label must exceed
// to be surfaced in an assessment's detected list.
const DetectionThreshold = 0.3

type ConditionDetail struct {
	Detected    bool     `json:"detected"`
	Probability float64  `json:"probability"`
	Severity    Severity `json:"severity"`
}

type DetectedCondition struct {
	Name        Condition `json:"name"`
	Probability float64   `json:"probability"`
	Severity    Severity  `json:"severity"`
}

// ConditionDetector holds one independent binary model per condition, indexed
// like Conditions.
type ConditionDetector struct {
	Models [NumConditions]*Model `json:"models"`
}

func fitConditionDetector(samples [][]float64, labels [][NumConditions]bool, hp Hyperparameters) (*ConditionDetector, error) {
	if len(labels) != len(samples) {
		return nil, fmt.Errorf("%d condition label rows for %d samples: %w", len(labels), len(samples), ErrInvalidInput)
	}
	d := &ConditionDetector{}
	column := make([]int, len(samples))
	for c := range Conditions {
		for i, row := range labels {
			column[i] = 0
			if row[c] {
				column[i] = 1
			}
		}
		m, err := fitModel(samples, column, 2, hp.Condition, hp, uint64(1000*(c+1)))
		if err != nil {
			return nil, fmt.Errorf("fit %s detector: %w", Conditions[c], err)
		}
		d.Models[c] = m
	}
	return d, nil
}

// Detect scores every condition for a standardised feature vector. A nil
// detector reports every condition as absent.
func (d *ConditionDetector) Detect(x []float64) map[Condition]ConditionDetail {
	out := make(map[Condition]ConditionDetail, NumConditions)
	for c, name := range Conditions {
		var p float64
		var detected bool
		if d != nil && d.Models[c] != nil {
			probs := d.Models[c].PredictProba(x)
			p = probs[1]
			detected = argmax(probs) == 1
		}
		out[name] = ConditionDetail{Detected: detected, Probability: p, Severity: SeverityFor(p)}
	}
	return out
}

// Surfaced lists the conditions whose raw label is positive and whose
// probability exceeds DetectionThreshold, in Conditions order.
func Surfaced(details map[Condition]ConditionDetail) []DetectedCondition {
	out := []DetectedCondition{}
	for _, name := range Conditions {
		d, ok := details[name]
		if !ok || !d.Detected || d.Probability <= DetectionThreshold {
			continue
		}
		out = append(out, DetectedCondition{Name: name, Probability: d.Probability, Severity: d.Severity})
	}
	return out
}

func (d *ConditionDetector) valid() bool {
	for _, m := range d.Models {
		if m == nil || !m.valid() {
			return false
		}
	}
	return true
}
