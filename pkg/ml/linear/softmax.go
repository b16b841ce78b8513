package linear

import "math"

// Softmax is a multinomial logistic regression with one weight row per class.
type Softmax struct {
	Classes []Weights `json:"classes"`
}

// TrainSoftmax fits a multinomial model on integer labels in [0, classes).
func TrainSoftmax(samples [][]float64, labels []int, classes int, opts Options) (Softmax, Metrics) {
	opts = opts.withDefaults()

	n := len(samples)
	if n == 0 || classes <= 0 {
		return Softmax{}, Metrics{}
	}
	featureCount := len(samples[0])
	model := Softmax{Classes: make([]Weights, classes)}
	for k := range model.Classes {
		model.Classes[k].Coefficients = make([]float64, featureCount)
	}

	grads := make([][]float64, classes)
	for k := range grads {
		grads[k] = make([]float64, featureCount)
	}
	biasGrads := make([]float64, classes)
	probs := make([]float64, classes)

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		for k := 0; k < classes; k++ {
			for j := range grads[k] {
				grads[k][j] = 0
			}
			biasGrads[k] = 0
		}
		for i, sample := range samples {
			model.probabilities(sample, probs)
			for k := 0; k < classes; k++ {
				target := 0.0
				if labels[i] == k {
					target = 1
				}
				residual := probs[k] - target
				for j := 0; j < featureCount; j++ {
					grads[k][j] += residual * sample[j]
				}
				biasGrads[k] += residual
			}
		}
		for k := 0; k < classes; k++ {
			w := &model.Classes[k]
			for j := 0; j < featureCount; j++ {
				w.Coefficients[j] -= opts.LearningRate * (grads[k][j]/float64(n) + opts.L2*w.Coefficients[j])
			}
			w.Bias -= opts.LearningRate * biasGrads[k] / float64(n)
		}
	}

	var loss float64
	var correct int
	for i, sample := range samples {
		model.probabilities(sample, probs)
		loss -= math.Log(probs[labels[i]] + 1e-9)
		if argmax(probs) == labels[i] {
			correct++
		}
	}
	return model, Metrics{Loss: loss / float64(n), Accuracy: float64(correct) / float64(n)}
}

// PredictProba returns class probabilities summing to 1.
func (m Softmax) PredictProba(sample []float64) []float64 {
	out := make([]float64, len(m.Classes))
	m.probabilities(sample, out)
	return out
}

// Importance is the mean absolute coefficient per feature, normalised to sum 1.
func (m Softmax) Importance() []float64 {
	if len(m.Classes) == 0 {
		return nil
	}
	out := make([]float64, len(m.Classes[0].Coefficients))
	for _, w := range m.Classes {
		for j, c := range w.Coefficients {
			out[j] += math.Abs(c)
		}
	}
	return Normalize(out)
}

func (m Softmax) probabilities(sample []float64, out []float64) {
	maxLogit := math.Inf(-1)
	for k, w := range m.Classes {
		out[k] = dot(w.Coefficients, sample) + w.Bias
		if out[k] > maxLogit {
			maxLogit = out[k]
		}
	}
	var sum float64
	for k := range out {
		out[k] = math.Exp(out[k] - maxLogit)
		sum += out[k]
	}
	for k := range out {
		out[k] /= sum
	}
}

// Normalize scales values so they sum to 1. An all-zero slice is returned as is.
func Normalize(values []float64) []float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	if sum == 0 {
		return values
	}
	for i := range values {
		values[i] /= sum
	}
	return values
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
