package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTrainingSetDeterministic(t *testing.T) {
	opts := GeneratorOptions{Variant: VariantEnhanced, Samples: 300, Seed: 7}
	a, err := GenerateTrainingSet(opts)
	require.NoError(t, err)
	b, err := GenerateTrainingSet(opts)
	require.NoError(t, err)

	assert.Equal(t, a.Samples, b.Samples)
	assert.Equal(t, a.Risk, b.Risk)
	assert.Equal(t, a.Conditions, b.Conditions)

	opts.Seed = 8
	c, err := GenerateTrainingSet(opts)
	require.NoError(t, err)
	assert.NotEqual(t, a.Samples, c.Samples)
}

func TestGenerateTrainingSetEnhanced(t *testing.T) {
	set, err := GenerateTrainingSet(GeneratorOptions{Variant: VariantEnhanced, Samples: 2000, Seed: DefaultSeed})
	require.NoError(t, err)

	require.Equal(t, 2000, set.Len())
	assert.Len(t, set.Risk, 2000)
	assert.Len(t, set.Conditions, 2000)
	assert.Equal(t, FeatureNames(VariantEnhanced), set.Features)

	counts := set.ScenarioCounts()
	for _, sc := range scenarios {
		assert.Positive(t, counts[sc.name], "scenario %s never drawn", sc.name)
	}
	// normal carries 40% of the mixture weight
	assert.InDelta(t, 0.40, float64(counts["normal"])/2000, 0.05)

	for i, row := range set.Samples {
		require.Len(t, row, 9)
		week := row[8]
		assert.GreaterOrEqual(t, week, 8-3*enhancedJitter[8]-1, "row %d", i)
		assert.LessOrEqual(t, week, 40+3*enhancedJitter[8]+1, "row %d", i)
	}

	for i, name := range set.Scenarios {
		if name == "normal" {
			assert.Equal(t, Normal, set.Risk[i])
			assert.Equal(t, [NumConditions]bool{}, set.Conditions[i])
		}
	}
}

func TestGenerateTrainingSetBasicClamped(t *testing.T) {
	set, err := GenerateTrainingSet(GeneratorOptions{Variant: VariantBasic, Samples: 1000, Seed: DefaultSeed})
	require.NoError(t, err)

	assert.Nil(t, set.Conditions)
	assert.Equal(t, FeatureNames(VariantBasic), set.Features)

	limits := []bounds{systolicBounds, diastolicBounds, sugarBounds, weightBounds, hemoglobinBound}
	for _, row := range set.Samples {
		require.Len(t, row, len(limits))
		for j, v := range row {
			assert.GreaterOrEqual(t, v, limits[j].lo)
			assert.LessOrEqual(t, v, limits[j].hi)
		}
	}

	counts := set.ScenarioCounts()
	assert.InDelta(t, 0.60, float64(counts["normal"])/1000, 0.06)
	assert.Positive(t, counts["medium"])
	assert.Positive(t, counts["high"])
}

func TestGenerateTrainingSetRejectsEmpty(t *testing.T) {
	_, err := GenerateTrainingSet(GeneratorOptions{Variant: VariantEnhanced})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func labelSet(conds ...Condition) [NumConditions]bool {
	var out [NumConditions]bool
	for _, c := range conds {
		out[conditionIndex(c)] = true
	}
	return out
}

func TestGenerateTrainingSetScenarioLabels(t *testing.T) {
	set, err := GenerateTrainingSet(GeneratorOptions{Variant: VariantEnhanced, Samples: 4000, Seed: DefaultSeed})
	require.NoError(t, err)

	tests := map[string]struct {
		conditions [NumConditions]bool
		fixed      RiskLevel
		// levels, when set, lists the labels a thresholded scenario may carry
		levels []RiskLevel
	}{
		"normal":               {conditions: labelSet(), fixed: Normal},
		"gestational_diabetes": {conditions: labelSet(GestationalDiabetes), levels: []RiskLevel{Medium, High}},
		"preeclampsia":         {conditions: labelSet(Preeclampsia, Hypertension), fixed: High},
		"anemia":               {conditions: labelSet(Anemia), levels: []RiskLevel{Medium, High}},
		"hypertension":         {conditions: labelSet(Hypertension), levels: []RiskLevel{Medium, High}},
		"preterm_risk":         {conditions: labelSet(PretermLaborRisk), fixed: High},
		"fetal_growth_issues":  {conditions: labelSet(FetalGrowthRestriction), fixed: High},
		"multiple_conditions": {
			conditions: labelSet(GestationalDiabetes, Preeclampsia, Anemia, Hypertension, PlacentalIssues),
			fixed:      High,
		},
	}
	require.Len(t, tests, len(scenarios))

	seen := make(map[string]map[RiskLevel]int)
	for i, name := range set.Scenarios {
		tt, ok := tests[name]
		require.True(t, ok, "unexpected scenario %s", name)
		assert.Equal(t, tt.conditions, set.Conditions[i], "row %d (%s)", i, name)
		if tt.levels == nil {
			assert.Equal(t, tt.fixed, set.Risk[i], "row %d (%s)", i, name)
		} else {
			assert.Contains(t, tt.levels, set.Risk[i], "row %d (%s)", i, name)
		}
		if seen[name] == nil {
			seen[name] = make(map[RiskLevel]int)
		}
		seen[name][set.Risk[i]]++
	}
	for _, name := range []string{"gestational_diabetes", "anemia", "hypertension"} {
		assert.Positive(t, seen[name][Medium], "%s never Medium", name)
		assert.Positive(t, seen[name][High], "%s never High", name)
	}
}

// Jitter is small next to each threshold, so rows far enough from it carry a
// known label.
func TestGenerateTrainingSetThresholdLabels(t *testing.T) {
	set, err := GenerateTrainingSet(GeneratorOptions{Variant: VariantEnhanced, Samples: 8000, Seed: DefaultSeed})
	require.NoError(t, err)

	tests := []struct {
		scenario  string
		feature   int
		threshold float64
		below     RiskLevel
		above     RiskLevel
	}{
		{"gestational_diabetes", 2, 160, Medium, High},
		{"anemia", 4, 9, High, Medium},
		{"hypertension", 0, 160, Medium, High},
	}
	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			margin := 4 * enhancedJitter[tt.feature]
			var below, above int
			for i, name := range set.Scenarios {
				if name != tt.scenario {
					continue
				}
				v := set.Samples[i][tt.feature]
				switch {
				case v < tt.threshold-margin:
					below++
					assert.Equal(t, tt.below, set.Risk[i], "row %d value %.2f", i, v)
				case v > tt.threshold+margin:
					above++
					assert.Equal(t, tt.above, set.Risk[i], "row %d value %.2f", i, v)
				}
			}
			assert.Positive(t, below)
			assert.Positive(t, above)
		})
	}
}

func TestScenarioRiskThresholds(t *testing.T) {
	byName := make(map[string]scenario)
	for _, sc := range scenarios {
		byName[sc.name] = sc
	}

	tests := []struct {
		scenario string
		v        vitals
		want     RiskLevel
	}{
		{"gestational_diabetes", vitals{sugar: 159.9}, Medium},
		{"gestational_diabetes", vitals{sugar: 160}, High},
		{"anemia", vitals{hemoglobin: 9.01}, Medium},
		{"anemia", vitals{hemoglobin: 9}, High},
		{"hypertension", vitals{systolic: 159.9}, Medium},
		{"hypertension", vitals{systolic: 160}, High},
		{"normal", vitals{systolic: 200, sugar: 300}, Normal},
		{"preeclampsia", vitals{}, High},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, byName[tt.scenario].risk(tt.v), "%s %+v", tt.scenario, tt.v)
	}
}

func TestEnhancedClampRanges(t *testing.T) {
	tests := []struct {
		name   string
		b      bounds
		lo, hi float64
	}{
		{"age", ageBounds, 16, 45},
		{"systolic_bp", systolicBounds, 80, 200},
		{"diastolic_bp", diastolicBounds, 50, 120},
		{"blood_sugar", sugarBounds, 60, 300},
		{"body_weight", weightBounds, 40, 150},
		{"hemoglobin", hemoglobinBound, 6, 18},
		{"heart_rate", heartRateBounds, 50, 150},
		{"protein_urine", proteinBounds, 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.lo, tt.b.clamp(tt.lo-10))
			assert.Equal(t, tt.hi, tt.b.clamp(tt.hi+10))
			mid := (tt.lo + tt.hi) / 2
			assert.Equal(t, mid, tt.b.clamp(mid))
			assert.Equal(t, tt.lo, tt.b.clamp(tt.lo))
			assert.Equal(t, tt.hi, tt.b.clamp(tt.hi))
		})
	}
}

func TestGenerateTrainingSetEnhancedWithinClampedRanges(t *testing.T) {
	set, err := GenerateTrainingSet(GeneratorOptions{Variant: VariantEnhanced, Samples: 2000, Seed: DefaultSeed})
	require.NoError(t, err)

	// feature order; gestational_week is drawn in range and not clamped
	limits := []bounds{
		systolicBounds, diastolicBounds, sugarBounds, weightBounds, hemoglobinBound,
		heartRateBounds, proteinBounds, ageBounds, {8, 40},
	}
	for i, row := range set.Samples {
		for j, v := range row {
			margin := 5 * enhancedJitter[j]
			assert.GreaterOrEqual(t, v, limits[j].lo-margin, "row %d feature %s", i, set.Features[j])
			assert.LessOrEqual(t, v, limits[j].hi+margin, "row %d feature %s", i, set.Features[j])
		}
	}
}
