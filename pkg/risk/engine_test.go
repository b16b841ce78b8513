package risk

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(variant Variant, algo Algorithm) Options {
	hp := DefaultHyperparameters(algo)
	hp.Trees = 20
	return Options{Variant: variant, Samples: 1200, Seed: DefaultSeed, Hyperparameters: hp}
}

var (
	sharedOnce   sync.Once
	sharedEngine *Engine
	sharedStore  *MemoryStore
	sharedErr    error
)

// enhancedEngine trains one small forest shared by the read-only tests.
func enhancedEngine(t *testing.T) *Engine {
	t.Helper()
	sharedOnce.Do(func() {
		sharedStore = NewMemoryStore()
		sharedEngine, sharedErr = NewEngine(context.Background(), sharedStore, testOptions(VariantEnhanced, AlgorithmForest))
	})
	require.NoError(t, sharedErr)
	return sharedEngine
}

func textbookNormal() HealthParameters {
	return HealthParameters{
		SystolicBP: 120, DiastolicBP: 80, BloodSugar: 90, BodyWeight: 65, Hemoglobin: 12.2,
		HeartRate: Float(75), ProteinUrine: Float(0.1), Age: Float(28), GestationalWeek: Float(20),
	}
}

func assertWellFormed(t *testing.T, a *Assessment) {
	t.Helper()
	var sum float64
	require.Len(t, a.RiskProbabilities, len(RiskLevels))
	for _, level := range RiskLevels {
		p := a.RiskProbabilities[level]
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.GreaterOrEqual(t, a.RiskLevel, a.ModelRiskLevel)

	require.Len(t, a.ConditionDetails, NumConditions)
	for _, name := range Conditions {
		d, ok := a.ConditionDetails[name]
		require.True(t, ok, "missing detail for %s", name)
		assert.Equal(t, SeverityFor(d.Probability), d.Severity)
	}

	surfaced := make(map[Condition]bool)
	for _, c := range a.DetectedConditions {
		surfaced[c.Name] = true
		assert.Contains(t, Conditions, c.Name)
	}
	for _, name := range Conditions {
		d := a.ConditionDetails[name]
		assert.Equal(t, d.Detected && d.Probability > DetectionThreshold, surfaced[name], "condition %s", name)
	}
	assertNoDuplicateLists(t, a.Recommendations)
}

func TestAssessTextbookNormal(t *testing.T) {
	e := enhancedEngine(t)

	a, err := e.Assess(textbookNormal())
	require.NoError(t, err)
	assertWellFormed(t, a)

	assert.Equal(t, Normal, a.RiskLevel)
	assert.Equal(t, 0, a.OverrideScore)
	assert.Empty(t, a.DetectedConditions)
	assert.Equal(t, "low", a.Recommendations.Priority)
	assert.Equal(t, e.Bundle().Version, a.ModelVersion)
}

func TestAssessSevere(t *testing.T) {
	e := enhancedEngine(t)

	a, err := e.Assess(HealthParameters{
		SystolicBP: 165, DiastolicBP: 105, BloodSugar: 150, BodyWeight: 80, Hemoglobin: 8,
		ProteinUrine: Float(2.0),
	})
	require.NoError(t, err)
	assertWellFormed(t, a)

	assert.Equal(t, High, a.RiskLevel)
	assert.GreaterOrEqual(t, a.OverrideScore, 3)
	assert.NotEmpty(t, a.DetectedConditions)
	assert.Equal(t, "high", a.Recommendations.Priority)
}

func TestAssessOverrideProperties(t *testing.T) {
	e := enhancedEngine(t)

	for _, systolic := range []float64{95, 125, 140, 150, 160, 185} {
		for _, sugar := range []float64{75, 110, 125, 160} {
			for _, hb := range []float64{8.5, 10, 12.5} {
				p := HealthParameters{SystolicBP: systolic, DiastolicBP: 80, BloodSugar: sugar, BodyWeight: 70, Hemoglobin: hb}
				a, err := e.Assess(p)
				require.NoError(t, err)
				assertWellFormed(t, a)

				if systolic >= 160 {
					assert.Equal(t, High, a.RiskLevel, "systolic %v", systolic)
				}
				if systolic >= 140 && sugar >= 125 {
					assert.GreaterOrEqual(t, a.RiskLevel, Medium, "systolic %v sugar %v", systolic, sugar)
				}
				assert.Equal(t, OverrideScore(p), a.OverrideScore)
			}
		}
	}
}

func TestAssessOptionalDefaults(t *testing.T) {
	e := enhancedEngine(t)

	p := textbookNormal()
	p.HeartRate, p.ProteinUrine, p.Age, p.GestationalWeek = nil, nil, nil, nil

	a, err := e.Assess(p)
	require.NoError(t, err)
	b, err := e.Assess(textbookNormal())
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestAssessInvalidInput(t *testing.T) {
	e := enhancedEngine(t)

	tests := []struct {
		name   string
		mutate func(*HealthParameters)
	}{
		{"missing systolic", func(p *HealthParameters) { p.SystolicBP = 0 }},
		{"negative weight", func(p *HealthParameters) { p.BodyWeight = -3 }},
		{"nan hemoglobin", func(p *HealthParameters) { p.Hemoglobin = math.NaN() }},
		{"infinite heart rate", func(p *HealthParameters) { p.HeartRate = Float(math.Inf(1)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := textbookNormal()
			tt.mutate(&p)
			_, err := e.Assess(p)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestAssessModelNotReady(t *testing.T) {
	var nilEngine *Engine
	_, err := nilEngine.Assess(textbookNormal())
	assert.ErrorIs(t, err, ErrModelNotReady)

	_, err = (&Engine{}).Assess(textbookNormal())
	assert.ErrorIs(t, err, ErrModelNotReady)

	_, err = (&Engine{}).FeatureImportance()
	assert.ErrorIs(t, err, ErrModelNotReady)
}

func TestFeatureImportance(t *testing.T) {
	e := enhancedEngine(t)

	weights, err := e.FeatureImportance()
	require.NoError(t, err)
	require.Len(t, weights, 9)

	var sum float64
	for _, name := range FeatureNames(VariantEnhanced) {
		w, ok := weights[name]
		require.True(t, ok, "missing %s", name)
		assert.GreaterOrEqual(t, w, 0.0)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestEngineReloadsPersistedBundle(t *testing.T) {
	e := enhancedEngine(t)

	reloaded, err := NewEngine(context.Background(), sharedStore, testOptions(VariantEnhanced, AlgorithmForest))
	require.NoError(t, err)
	require.Equal(t, e.Bundle().Version, reloaded.Bundle().Version)

	inputs := []HealthParameters{
		textbookNormal(),
		vitalsOf(165, 105, 150, 80, 8),
		vitalsOf(142, 92, 128, 78, 10.2),
	}
	for _, p := range inputs {
		want, err := e.Assess(p)
		require.NoError(t, err)
		got, err := reloaded.Assess(p)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestTrainingIsDeterministic(t *testing.T) {
	opts := testOptions(VariantEnhanced, AlgorithmForest).trainOptions(DefaultSeed)
	opts.Hyperparameters.Trees = 5
	opts.Samples = 400

	a, err := Train(opts)
	require.NoError(t, err)
	b, err := Train(opts)
	require.NoError(t, err)

	assert.Equal(t, a.Scaler, b.Scaler)
	assert.Equal(t, a.Risk, b.Risk)
	assert.Equal(t, a.Conditions, b.Conditions)
	assert.NotEqual(t, a.Version, b.Version)
}

func TestBasicVariant(t *testing.T) {
	e, err := NewEngine(context.Background(), NewMemoryStore(), testOptions(VariantBasic, AlgorithmTree))
	require.NoError(t, err)
	assert.Nil(t, e.Bundle().Conditions)

	a, err := e.Assess(vitalsOf(118, 76, 88, 62, 12.5))
	require.NoError(t, err)
	assertWellFormed(t, a)
	assert.Empty(t, a.DetectedConditions)
	for _, d := range a.ConditionDetails {
		assert.False(t, d.Detected)
		assert.Zero(t, d.Probability)
		assert.Equal(t, SeverityLow, d.Severity)
	}

	weights, err := e.FeatureImportance()
	require.NoError(t, err)
	assert.Len(t, weights, 5)
}

func TestLogisticAlgorithm(t *testing.T) {
	e, err := NewEngine(context.Background(), NewMemoryStore(), testOptions(VariantEnhanced, AlgorithmLogistic))
	require.NoError(t, err)
	assert.Equal(t, AlgorithmLogistic, e.Bundle().Risk.Algorithm)

	a, err := e.Assess(textbookNormal())
	require.NoError(t, err)
	assertWellFormed(t, a)

	a, err = e.Assess(vitalsOf(170, 110, 160, 85, 8))
	require.NoError(t, err)
	assert.Equal(t, High, a.RiskLevel)
}

func TestVariantMismatchRetrains(t *testing.T) {
	store := NewMemoryStore()
	basic, err := NewEngine(context.Background(), store, testOptions(VariantBasic, AlgorithmTree))
	require.NoError(t, err)

	enhanced, err := NewEngine(context.Background(), store, testOptions(VariantEnhanced, AlgorithmTree))
	require.NoError(t, err)
	assert.NotEqual(t, basic.Bundle().Version, enhanced.Bundle().Version)
	assert.Equal(t, VariantEnhanced, enhanced.Bundle().Variant)

	set, err := store.LoadArtifacts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, VariantEnhanced, set.Variant)
}

func TestAlgorithmMismatchRetrains(t *testing.T) {
	store := NewMemoryStore()
	tree, err := NewEngine(context.Background(), store, testOptions(VariantBasic, AlgorithmTree))
	require.NoError(t, err)

	logistic, err := NewEngine(context.Background(), store, testOptions(VariantBasic, AlgorithmLogistic))
	require.NoError(t, err)
	assert.NotEqual(t, tree.Bundle().Version, logistic.Bundle().Version)
	assert.Equal(t, AlgorithmLogistic, logistic.Bundle().Hyperparameters.Algorithm)

	// the retrained bundle is now the stored one
	again, err := NewEngine(context.Background(), store, testOptions(VariantBasic, AlgorithmLogistic))
	require.NoError(t, err)
	assert.Equal(t, logistic.Bundle().Version, again.Bundle().Version)
}

func TestRetrainSwapsWhileAssessing(t *testing.T) {
	store := NewMemoryStore()
	e, err := NewEngine(context.Background(), store, testOptions(VariantBasic, AlgorithmTree))
	require.NoError(t, err)
	before := e.Bundle().Version

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				a, err := e.Assess(vitalsOf(150, 95, 130, 70, 10))
				if assert.NoError(t, err) {
					assert.NotEmpty(t, a.ModelVersion)
				}
			}
		}()
	}

	b, err := e.Retrain(context.Background(), 99)
	close(stop)
	wg.Wait()
	require.NoError(t, err)

	assert.NotEqual(t, before, b.Version)
	assert.Equal(t, b.Version, e.Bundle().Version)

	set, err := store.LoadArtifacts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, b.Version, set.Version)
}

type failingStore struct{ MemoryStore }

func (f *failingStore) SaveArtifacts(ctx context.Context, set ArtifactSet) error {
	return assert.AnError
}

func TestRetrainKeepsBundleWhenSaveFails(t *testing.T) {
	e, err := NewEngine(context.Background(), NewMemoryStore(), testOptions(VariantBasic, AlgorithmTree))
	require.NoError(t, err)
	before := e.Bundle()

	e.store = &failingStore{}
	_, err = e.Retrain(context.Background(), 7)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Same(t, before, e.Bundle())

	_, err = NewEngine(context.Background(), &failingStore{}, testOptions(VariantBasic, AlgorithmTree))
	assert.ErrorIs(t, err, assert.AnError)
}
