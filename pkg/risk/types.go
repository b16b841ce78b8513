package risk

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrModelNotReady     = errors.New("risk model not trained or loaded")
	ErrArtifactsNotFound = errors.New("model artifacts not found")
	ErrArtifactMismatch  = errors.New("model artifacts belong to different versions")
)

// RiskLevel is ordinal: Normal < Medium < High.
type RiskLevel int

const (
	Normal RiskLevel = iota
	Medium
	High
)

var riskLevelNames = [...]string{"Normal", "Medium", "High"}

// RiskLevels lists every level in ascending order.
var RiskLevels = []RiskLevel{Normal, Medium, High}

func (l RiskLevel) String() string {
	if l < Normal || l > High {
		return fmt.Sprintf("RiskLevel(%d)", int(l))
	}
	return riskLevelNames[l]
}

func (l RiskLevel) MarshalText() ([]byte, error) {
	if l < Normal || l > High {
		return nil, fmt.Errorf("unknown risk level %d: %w", int(l), ErrInvalidInput)
	}
	return []byte(l.String()), nil
}

func (l *RiskLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseRiskLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func ParseRiskLevel(s string) (RiskLevel, error) {
	for i, name := range riskLevelNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return RiskLevel(i), nil
		}
	}
	return Normal, fmt.Errorf("unknown risk level %q: %w", s, ErrInvalidInput)
}

func maxLevel(a, b RiskLevel) RiskLevel {
	if a > b {
		return a
	}
	return b
}

type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityModerate Severity = "Moderate"
	SeverityHigh     Severity = "High"
)

// SeverityFor buckets a detection probability: Low < 0.3 <= Moderate < 0.7 <= High.
func SeverityFor(probability float64) Severity {
	switch {
	case probability < 0.3:
		return SeverityLow
	case probability < 0.7:
		return SeverityModerate
	default:
		return SeverityHigh
	}
}

// Condition names one of the independently detected maternal or fetal
// conditions. The order of Conditions is the column order of the condition
// label vector.
type Condition string

const (
	GestationalDiabetes    Condition = "gestational_diabetes"
	Preeclampsia           Condition = "preeclampsia"
	Anemia                 Condition = "anemia"
	Hypertension           Condition = "hypertension"
	PretermLaborRisk       Condition = "preterm_labor_risk"
	FetalGrowthRestriction Condition = "fetal_growth_restriction"
	PlacentalIssues        Condition = "placental_issues"
)

const NumConditions = 7

var Conditions = [NumConditions]Condition{
	GestationalDiabetes,
	Preeclampsia,
	Anemia,
	Hypertension,
	PretermLaborRisk,
	FetalGrowthRestriction,
	PlacentalIssues,
}

// Variant selects the feature set and training data recipe.
type Variant string

const (
	// VariantBasic uses the five required vitals and a single risk model.
	VariantBasic Variant = "basic"
	// VariantEnhanced adds heart rate, urine protein, age and gestational week
	// and a condition detector.
	VariantEnhanced Variant = "enhanced"
)

func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case VariantBasic:
		return VariantBasic, nil
	case VariantEnhanced, "":
		return VariantEnhanced, nil
	}
	return "", fmt.Errorf("unknown model variant %q: %w", s, ErrInvalidInput)
}

// Algorithm selects the learner behind the risk and condition models.
type Algorithm string

const (
	AlgorithmForest   Algorithm = "forest"
	AlgorithmTree     Algorithm = "tree"
	AlgorithmLogistic Algorithm = "logistic"
)

// ParseAlgorithm resolves a configured algorithm; empty picks the variant's
// default (tree for basic, forest for enhanced).
func ParseAlgorithm(s string, variant Variant) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		if variant == VariantBasic {
			return AlgorithmTree, nil
		}
		return AlgorithmForest, nil
	case AlgorithmForest:
		return AlgorithmForest, nil
	case AlgorithmTree:
		return AlgorithmTree, nil
	case AlgorithmLogistic:
		return AlgorithmLogistic, nil
	}
	return "", fmt.Errorf("unknown model algorithm %q: %w", s, ErrInvalidInput)
}
