package metrics

import (
	"fmt"
	"math"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/synaptica-ai/maternal-risk/pkg/risk"
)

var (
	assessmentsByLevel [3]atomic.Int64
	overridesRaised    atomic.Int64
	assessmentsFailed  atomic.Int64
	eventsPublished    atomic.Int64
	eventsFailed       atomic.Int64
	trainingSucceeded  atomic.Int64
	trainingFailed     atomic.Int64
	riskAccuracyBits   atomic.Uint64

	modelMu      sync.RWMutex
	modelVersion string
	modelVariant string
)

// ObserveAssessment counts one completed assessment by final level and
// whether the safety override raised it above the classifier's level.
func ObserveAssessment(a *risk.Assessment) {
	if a == nil {
		return
	}
	if idx := int(a.RiskLevel); idx >= 0 && idx < len(assessmentsByLevel) {
		assessmentsByLevel[idx].Add(1)
	}
	if a.RiskLevel > a.ModelRiskLevel {
		overridesRaised.Add(1)
	}
}

func ObserveAssessmentFailure() {
	assessmentsFailed.Add(1)
}

func ObservePublish(err error) {
	if err != nil {
		eventsFailed.Add(1)
		return
	}
	eventsPublished.Add(1)
}

// ObserveTraining records a finished training run. A nil bundle counts as a
// failure.
func ObserveTraining(b *risk.Bundle) {
	if b == nil {
		trainingFailed.Add(1)
		return
	}
	trainingSucceeded.Add(1)
	SetActiveModel(b)
}

// SetActiveModel publishes the serving bundle's identity without counting a
// training run, for bundles loaded from the store.
func SetActiveModel(b *risk.Bundle) {
	if b == nil {
		return
	}
	riskAccuracyBits.Store(math.Float64bits(b.Metrics.RiskAccuracy))
	modelMu.Lock()
	modelVersion = b.Version
	modelVariant = string(b.Variant)
	modelMu.Unlock()
}

// Reset zeroes every series.
func Reset() {
	for i := range assessmentsByLevel {
		assessmentsByLevel[i].Store(0)
	}
	overridesRaised.Store(0)
	assessmentsFailed.Store(0)
	eventsPublished.Store(0)
	eventsFailed.Store(0)
	trainingSucceeded.Store(0)
	trainingFailed.Store(0)
	riskAccuracyBits.Store(0)
	modelMu.Lock()
	modelVersion, modelVariant = "", ""
	modelMu.Unlock()
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP maternal_risk_assessments_total Assessments completed, by final risk level.\n")
	fmt.Fprintf(w, "# TYPE maternal_risk_assessments_total counter\n")
	for _, level := range risk.RiskLevels {
		fmt.Fprintf(w, "maternal_risk_assessments_total{level=%q} %d\n", level.String(), assessmentsByLevel[level].Load())
	}

	fmt.Fprintf(w, "# HELP maternal_risk_overrides_raised_total Assessments whose level the safety override raised.\n")
	fmt.Fprintf(w, "# TYPE maternal_risk_overrides_raised_total counter\n")
	fmt.Fprintf(w, "maternal_risk_overrides_raised_total %d\n", overridesRaised.Load())

	fmt.Fprintf(w, "# HELP maternal_risk_assessments_failed_total Assessments rejected or failed.\n")
	fmt.Fprintf(w, "# TYPE maternal_risk_assessments_failed_total counter\n")
	fmt.Fprintf(w, "maternal_risk_assessments_failed_total %d\n", assessmentsFailed.Load())

	fmt.Fprintf(w, "# HELP maternal_risk_events_published_total Assessment events published to Kafka.\n")
	fmt.Fprintf(w, "# TYPE maternal_risk_events_published_total counter\n")
	fmt.Fprintf(w, "maternal_risk_events_published_total %d\n", eventsPublished.Load())

	fmt.Fprintf(w, "# HELP maternal_risk_events_failed_total Assessment events that could not be published.\n")
	fmt.Fprintf(w, "# TYPE maternal_risk_events_failed_total counter\n")
	fmt.Fprintf(w, "maternal_risk_events_failed_total %d\n", eventsFailed.Load())

	fmt.Fprintf(w, "# HELP maternal_risk_training_runs_total Model training runs, by outcome.\n")
	fmt.Fprintf(w, "# TYPE maternal_risk_training_runs_total counter\n")
	fmt.Fprintf(w, "maternal_risk_training_runs_total{outcome=\"completed\"} %d\n", trainingSucceeded.Load())
	fmt.Fprintf(w, "maternal_risk_training_runs_total{outcome=\"failed\"} %d\n", trainingFailed.Load())

	modelMu.RLock()
	version, variant := modelVersion, modelVariant
	modelMu.RUnlock()
	if version != "" {
		fmt.Fprintf(w, "# HELP maternal_risk_model_info Active model bundle.\n")
		fmt.Fprintf(w, "# TYPE maternal_risk_model_info gauge\n")
		fmt.Fprintf(w, "maternal_risk_model_info{version=%q,variant=%q} 1\n", version, variant)

		fmt.Fprintf(w, "# HELP maternal_risk_model_training_accuracy Risk classifier accuracy on its training set.\n")
		fmt.Fprintf(w, "# TYPE maternal_risk_model_training_accuracy gauge\n")
		fmt.Fprintf(w, "maternal_risk_model_training_accuracy %g\n", math.Float64frombits(riskAccuracyBits.Load()))
	}
}
