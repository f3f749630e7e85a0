package learner

import (
	"gonum.org/v1/gonum/floats"
	"gopkg.in/dnaeon/go-priorityqueue.v1"
)

const defaultK = 5

// KNN classifies by majority vote among the K nearest training points
// under the Euclidean metric.
type KNN struct {
	cfg Config
}

// NewKNN creates a nearest-neighbor learner. A non-positive K takes
// the default of 5, capped at the training-set size on Fit.
func NewKNN(cfg Config) *KNN {
	return &KNN{cfg: cfg}
}

func (l *KNN) Name() string { return LearnerKNN }

// Fit stores copies of the training pairs. All work happens at
// prediction time.
func (l *KNN) Fit(X [][]float64, labels []string) (Model, error) {
	if err := validateTraining(X, labels); err != nil {
		return nil, err
	}

	k := l.cfg.K
	if k <= 0 {
		k = defaultK
	}
	if k > len(X) {
		k = len(X)
	}

	m := &knnModel{
		x:      make([][]float64, len(X)),
		labels: append([]string(nil), labels...),
		k:      k,
		dim:    len(X[0]),
	}
	for i, row := range X {
		m.x[i] = append([]float64(nil), row...)
	}
	return m, nil
}

type knnModel struct {
	x      [][]float64
	labels []string
	k      int
	dim    int
}

// Predict ranks training points by distance in a min-heap and takes the
// majority label among the k closest, breaking ties lexicographically.
func (m *knnModel) Predict(theta []float64) (string, error) {
	if err := checkDim(theta, m.dim); err != nil {
		return "", err
	}

	pq := priorityqueue.New[int, float64](priorityqueue.MinHeap)
	for i, row := range m.x {
		pq.Put(i, floats.Distance(row, theta, 2))
	}

	votes := make([]string, 0, m.k)
	for i := 0; i < m.k; i++ {
		item := pq.Get()
		votes = append(votes, m.labels[item.Value])
	}
	return mostCommon(votes), nil
}
