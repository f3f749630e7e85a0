package learner

// Majority is the baseline learner: it always predicts the most
// frequent training label. Any real learner should beat it.
type Majority struct{}

// NewMajority creates the baseline learner.
func NewMajority() Majority { return Majority{} }

func (Majority) Name() string { return LearnerMajority }

func (Majority) Fit(X [][]float64, labels []string) (Model, error) {
	if err := validateTraining(X, labels); err != nil {
		return nil, err
	}
	return &majorityModel{label: mostCommon(labels), dim: len(X[0])}, nil
}

type majorityModel struct {
	label string
	dim   int
}

func (m *majorityModel) Predict(theta []float64) (string, error) {
	if err := checkDim(theta, m.dim); err != nil {
		return "", err
	}
	return m.label, nil
}

// mostCommon returns the most frequent label, breaking count ties by
// lexicographic order so the result does not depend on map iteration.
func mostCommon(labels []string) string {
	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}
	best, bestN := "", -1
	for l, n := range counts {
		if n > bestN || (n == bestN && l < best) {
			best, bestN = l, n
		}
	}
	return best
}
