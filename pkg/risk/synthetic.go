package risk

import (
	"fmt"
	"math/rand/v2"
)

const (
	DefaultSeed            = 42
	DefaultEnhancedSamples = 2000
	DefaultBasicSamples    = 1000
)

// TrainingSet holds labelled feature vectors in the variant's feature order.
// Conditions is nil for the basic variant.
type TrainingSet struct {
	Variant    Variant
	Features   []string
	Samples    [][]float64
	Risk       []RiskLevel
	Conditions [][NumConditions]bool
	Scenarios  []string
}

func (s *TrainingSet) Len() int { return len(s.Samples) }

// ScenarioCounts tallies rows per scenario name.
func (s *TrainingSet) ScenarioCounts() map[string]int {
	out := make(map[string]int)
	for _, name := range s.Scenarios {
		out[name]++
	}
	return out
}

type GeneratorOptions struct {
	Variant Variant
	Samples int
	Seed    uint64
}

type gaussian struct{ mean, std float64 }

func (g gaussian) draw(rng *rand.Rand) float64 {
	return g.mean + g.std*rng.NormFloat64()
}

type bounds struct{ lo, hi float64 }

func (b bounds) clamp(v float64) float64 {
	if v < b.lo {
		return b.lo
	}
	if v > b.hi {
		return b.hi
	}
	return v
}

var (
	ageBounds       = bounds{16, 45}
	systolicBounds  = bounds{80, 200}
	diastolicBounds = bounds{50, 120}
	sugarBounds     = bounds{60, 300}
	weightBounds    = bounds{40, 150}
	hemoglobinBound = bounds{6, 18}
	heartRateBounds = bounds{50, 150}
	proteinBounds   = bounds{0, 5}
)

// jitter std-devs in enhanced feature order.
var enhancedJitter = [9]float64{2, 1.5, 3, 1, 0.2, 3, 0.1, 0.5, 0.5}

type vitals struct {
	systolic, diastolic, sugar, weight, hemoglobin, heartRate, protein float64
}

type scenario struct {
	name       string
	weight     float64
	systolic   gaussian
	diastolic  gaussian
	sugar      gaussian
	bodyWeight gaussian
	hemoglobin gaussian
	heartRate  gaussian
	protein    gaussian
	conditions []Condition
	// risk sees the raw draw, before clamping.
	risk func(v vitals) RiskLevel
}

func fixed(level RiskLevel) func(vitals) RiskLevel {
	return func(vitals) RiskLevel { return level }
}

var scenarios = []scenario{
	{
		name: "normal", weight: 0.40,
		systolic: gaussian{115, 8}, diastolic: gaussian{75, 6}, sugar: gaussian{88, 10},
		bodyWeight: gaussian{65, 8}, hemoglobin: gaussian{12.2, 0.8}, heartRate: gaussian{75, 10},
		protein: gaussian{0.1, 0.05},
		risk:    fixed(Normal),
	},
	{
		name: "gestational_diabetes", weight: 0.15,
		systolic: gaussian{125, 12}, diastolic: gaussian{82, 8}, sugar: gaussian{140, 20},
		bodyWeight: gaussian{75, 12}, hemoglobin: gaussian{11.5, 1.0}, heartRate: gaussian{80, 12},
		protein:    gaussian{0.2, 0.1},
		conditions: []Condition{GestationalDiabetes},
		risk: func(v vitals) RiskLevel {
			if v.sugar < 160 {
				return Medium
			}
			return High
		},
	},
	{
		name: "preeclampsia", weight: 0.12,
		systolic: gaussian{150, 15}, diastolic: gaussian{95, 10}, sugar: gaussian{100, 15},
		bodyWeight: gaussian{78, 15}, hemoglobin: gaussian{11.0, 1.2}, heartRate: gaussian{85, 15},
		protein:    gaussian{1.5, 0.8},
		conditions: []Condition{Preeclampsia, Hypertension},
		risk:       fixed(High),
	},
	{
		name: "anemia", weight: 0.10,
		systolic: gaussian{110, 12}, diastolic: gaussian{70, 8}, sugar: gaussian{92, 12},
		bodyWeight: gaussian{62, 10}, hemoglobin: gaussian{8.5, 1.0}, heartRate: gaussian{90, 15},
		protein:    gaussian{0.15, 0.08},
		conditions: []Condition{Anemia},
		risk: func(v vitals) RiskLevel {
			if v.hemoglobin > 9 {
				return Medium
			}
			return High
		},
	},
	{
		name: "hypertension", weight: 0.08,
		systolic: gaussian{145, 12}, diastolic: gaussian{92, 8}, sugar: gaussian{105, 18},
		bodyWeight: gaussian{72, 12}, hemoglobin: gaussian{11.8, 1.0}, heartRate: gaussian{82, 12},
		protein:    gaussian{0.4, 0.2},
		conditions: []Condition{Hypertension},
		risk: func(v vitals) RiskLevel {
			if v.systolic < 160 {
				return Medium
			}
			return High
		},
	},
	{
		name: "preterm_risk", weight: 0.06,
		systolic: gaussian{130, 15}, diastolic: gaussian{85, 10}, sugar: gaussian{110, 20},
		bodyWeight: gaussian{68, 12}, hemoglobin: gaussian{10.8, 1.2}, heartRate: gaussian{88, 15},
		protein:    gaussian{0.6, 0.3},
		conditions: []Condition{PretermLaborRisk},
		risk:       fixed(High),
	},
	{
		name: "fetal_growth_issues", weight: 0.05,
		systolic: gaussian{135, 12}, diastolic: gaussian{88, 10}, sugar: gaussian{95, 15},
		bodyWeight: gaussian{58, 8}, hemoglobin: gaussian{10.2, 1.0}, heartRate: gaussian{85, 12},
		protein:    gaussian{0.8, 0.4},
		conditions: []Condition{FetalGrowthRestriction},
		risk:       fixed(High),
	},
	{
		name: "multiple_conditions", weight: 0.04,
		systolic: gaussian{155, 18}, diastolic: gaussian{98, 12}, sugar: gaussian{145, 25},
		bodyWeight: gaussian{82, 15}, hemoglobin: gaussian{9.2, 1.2}, heartRate: gaussian{95, 18},
		protein:    gaussian{2.0, 1.0},
		conditions: []Condition{GestationalDiabetes, Preeclampsia, Anemia, Hypertension, PlacentalIssues},
		risk:       fixed(High),
	},
}

// GenerateTrainingSet samples a labelled training set from the variant's
// scenario mixture. The same options always yield the same set.
func GenerateTrainingSet(opts GeneratorOptions) (*TrainingSet, error) {
	if opts.Samples <= 0 {
		return nil, fmt.Errorf("sample count %d: %w", opts.Samples, ErrInvalidInput)
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	if opts.Variant == VariantBasic {
		return generateBasic(rng, opts.Samples), nil
	}
	return generateEnhanced(rng, opts.Samples), nil
}

func pickScenario(rng *rand.Rand) *scenario {
	u := rng.Float64()
	var acc float64
	for i := range scenarios {
		acc += scenarios[i].weight
		if u < acc {
			return &scenarios[i]
		}
	}
	return &scenarios[len(scenarios)-1]
}

func generateEnhanced(rng *rand.Rand, n int) *TrainingSet {
	set := &TrainingSet{
		Variant:    VariantEnhanced,
		Features:   FeatureNames(VariantEnhanced),
		Samples:    make([][]float64, 0, n),
		Risk:       make([]RiskLevel, 0, n),
		Conditions: make([][NumConditions]bool, 0, n),
		Scenarios:  make([]string, 0, n),
	}
	for i := 0; i < n; i++ {
		age := gaussian{28, 6}.draw(rng)
		week := 8 + 32*rng.Float64()

		sc := pickScenario(rng)
		v := vitals{
			systolic:   sc.systolic.draw(rng),
			diastolic:  sc.diastolic.draw(rng),
			sugar:      sc.sugar.draw(rng),
			weight:     sc.bodyWeight.draw(rng),
			hemoglobin: sc.hemoglobin.draw(rng),
			heartRate:  sc.heartRate.draw(rng),
			protein:    sc.protein.draw(rng),
		}
		level := sc.risk(v)

		var labels [NumConditions]bool
		for _, c := range sc.conditions {
			labels[conditionIndex(c)] = true
		}

		features := []float64{
			systolicBounds.clamp(v.systolic),
			diastolicBounds.clamp(v.diastolic),
			sugarBounds.clamp(v.sugar),
			weightBounds.clamp(v.weight),
			hemoglobinBound.clamp(v.hemoglobin),
			heartRateBounds.clamp(v.heartRate),
			proteinBounds.clamp(v.protein),
			ageBounds.clamp(age),
			week,
		}
		for j := range features {
			features[j] += enhancedJitter[j] * rng.NormFloat64()
		}

		set.Samples = append(set.Samples, features)
		set.Risk = append(set.Risk, level)
		set.Conditions = append(set.Conditions, labels)
		set.Scenarios = append(set.Scenarios, sc.name)
	}
	return set
}

type basicProfile struct {
	name                                           string
	level                                          RiskLevel
	systolic, diastolic, sugar, weight, hemoglobin gaussian
}

var basicProfiles = [3]basicProfile{
	{"normal", Normal, gaussian{115, 10}, gaussian{75, 8}, gaussian{90, 15}, gaussian{65, 12}, gaussian{12, 1}},
	{"medium", Medium, gaussian{135, 15}, gaussian{85, 10}, gaussian{110, 20}, gaussian{75, 15}, gaussian{10.5, 1.5}},
	{"high", High, gaussian{155, 20}, gaussian{95, 12}, gaussian{140, 25}, gaussian{85, 20}, gaussian{9, 1.5}},
}

// generateBasic draws 60% normal rows; the rest use a second independent draw
// (< 0.85 medium, else high).
func generateBasic(rng *rand.Rand, n int) *TrainingSet {
	set := &TrainingSet{
		Variant:   VariantBasic,
		Features:  FeatureNames(VariantBasic),
		Samples:   make([][]float64, 0, n),
		Risk:      make([]RiskLevel, 0, n),
		Scenarios: make([]string, 0, n),
	}
	for i := 0; i < n; i++ {
		var p *basicProfile
		switch {
		case rng.Float64() < 0.6:
			p = &basicProfiles[0]
		case rng.Float64() < 0.85:
			p = &basicProfiles[1]
		default:
			p = &basicProfiles[2]
		}
		set.Samples = append(set.Samples, []float64{
			systolicBounds.clamp(p.systolic.draw(rng)),
			diastolicBounds.clamp(p.diastolic.draw(rng)),
			sugarBounds.clamp(p.sugar.draw(rng)),
			weightBounds.clamp(p.weight.draw(rng)),
			hemoglobinBound.clamp(p.hemoglobin.draw(rng)),
		})
		set.Risk = append(set.Risk, p.level)
		set.Scenarios = append(set.Scenarios, p.name)
	}
	return set
}

func conditionIndex(c Condition) int {
	for i, known := range Conditions {
		if known == c {
			return i
		}
	}
	panic(fmt.Sprintf("unknown condition %q", c))
}
