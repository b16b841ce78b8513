package risk

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TrainingMetrics struct {
	Samples           int                   `json:"samples"`
	ClassCounts       map[RiskLevel]int     `json:"class_counts"`
	ScenarioCounts    map[string]int        `json:"scenario_counts,omitempty"`
	RiskAccuracy      float64               `json:"risk_accuracy"`
	ConditionAccuracy map[Condition]float64 `json:"condition_accuracy,omitempty"`
	DurationSeconds   float64               `json:"duration_seconds"`
}

// Bundle is one trained model version: the scaler and both models it was
// fitted with. A Bundle is never modified after Train returns it.
type Bundle struct {
	Version         string             `json:"version"`
	Variant         Variant            `json:"variant"`
	CreatedAt       time.Time          `json:"created_at"`
	Features        []string           `json:"features"`
	Hyperparameters Hyperparameters    `json:"hyperparameters"`
	Scaler          *Scaler            `json:"-"`
	Risk            *Model             `json:"-"`
	Conditions      *ConditionDetector `json:"-"`
	Metrics         TrainingMetrics    `json:"metrics"`
}

type TrainOptions struct {
	Variant         Variant
	Samples         int
	Seed            uint64
	Hyperparameters Hyperparameters
}

// Train generates a synthetic training set and fits a new bundle on it.
func Train(opts TrainOptions) (*Bundle, error) {
	if opts.Samples <= 0 {
		opts.Samples = DefaultEnhancedSamples
		if opts.Variant == VariantBasic {
			opts.Samples = DefaultBasicSamples
		}
	}
	set, err := GenerateTrainingSet(GeneratorOptions{Variant: opts.Variant, Samples: opts.Samples, Seed: opts.Seed})
	if err != nil {
		return nil, fmt.Errorf("generate training data: %w", err)
	}
	hp := opts.Hyperparameters
	hp.Seed = opts.Seed
	return TrainOn(set, hp)
}

// TrainOn fits the scaler, the risk model and, for the enhanced variant, the
// condition detector on set.
func TrainOn(set *TrainingSet, hp Hyperparameters) (*Bundle, error) {
	start := time.Now()
	if set == nil || set.Len() == 0 {
		return nil, fmt.Errorf("empty training set: %w", ErrInvalidInput)
	}
	if len(set.Risk) != set.Len() {
		return nil, fmt.Errorf("%d risk labels for %d samples: %w", len(set.Risk), set.Len(), ErrInvalidInput)
	}

	scaler, err := FitScaler(set.Samples)
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	scaled, err := scaler.TransformAll(set.Samples)
	if err != nil {
		return nil, fmt.Errorf("scale training set: %w", err)
	}

	labels := make([]int, len(set.Risk))
	counts := make(map[RiskLevel]int, len(RiskLevels))
	for i, l := range set.Risk {
		labels[i] = int(l)
		counts[l]++
	}

	riskModel, err := fitModel(scaled, labels, len(RiskLevels), hp.Risk, hp, 0)
	if err != nil {
		return nil, fmt.Errorf("fit risk model: %w", err)
	}

	b := &Bundle{
		Version:         uuid.New().String(),
		Variant:         set.Variant,
		CreatedAt:       time.Now().UTC(),
		Features:        append([]string(nil), set.Features...),
		Hyperparameters: hp,
		Scaler:          scaler,
		Risk:            riskModel,
		Metrics: TrainingMetrics{
			Samples:        set.Len(),
			ClassCounts:    counts,
			ScenarioCounts: set.ScenarioCounts(),
		},
	}

	var correct int
	for i, x := range scaled {
		if argmax(riskModel.PredictProba(x)) == labels[i] {
			correct++
		}
	}
	b.Metrics.RiskAccuracy = float64(correct) / float64(len(scaled))

	if set.Variant == VariantEnhanced {
		detector, err := fitConditionDetector(scaled, set.Conditions, hp)
		if err != nil {
			return nil, fmt.Errorf("fit condition detector: %w", err)
		}
		b.Conditions = detector
		b.Metrics.ConditionAccuracy = conditionAccuracy(detector, scaled, set.Conditions)
	}

	b.Metrics.DurationSeconds = time.Since(start).Seconds()
	return b, nil
}

func conditionAccuracy(d *ConditionDetector, scaled [][]float64, labels [][NumConditions]bool) map[Condition]float64 {
	out := make(map[Condition]float64, NumConditions)
	correct := make([]int, NumConditions)
	for i, x := range scaled {
		details := d.Detect(x)
		for c, name := range Conditions {
			if details[name].Detected == labels[i][c] {
				correct[c]++
			}
		}
	}
	for c, name := range Conditions {
		out[name] = float64(correct[c]) / float64(len(scaled))
	}
	return out
}

// Validate checks that the scaler and models agree on the variant's
// dimensionality.
func (b *Bundle) Validate() error {
	if b == nil || b.Scaler == nil || b.Risk == nil {
		return ErrModelNotReady
	}
	want := len(FeatureNames(b.Variant))
	if b.Scaler.Dim() != want || b.Risk.Features != want {
		return fmt.Errorf("bundle %s has scaler dim %d and model dim %d, variant %s needs %d: %w",
			b.Version, b.Scaler.Dim(), b.Risk.Features, b.Variant, want, ErrArtifactMismatch)
	}
	if !b.Risk.valid() || b.Risk.Classes != len(RiskLevels) {
		return fmt.Errorf("bundle %s risk model is malformed: %w", b.Version, ErrArtifactMismatch)
	}
	if b.Variant == VariantEnhanced && (b.Conditions == nil || !b.Conditions.valid()) {
		return fmt.Errorf("bundle %s lacks a condition detector: %w", b.Version, ErrArtifactMismatch)
	}
	return nil
}
