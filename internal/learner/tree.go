package learner

import (
	"github.com/wlattner/rf/tree"
)

// TreeLearner fits a single CART decision tree. It is the default
// learner: trees handle the axis-aligned structure of active-set
// regions well and the fitted model is cheap to evaluate.
type TreeLearner struct {
	cfg Config
}

// NewTree creates a decision-tree learner with the given knobs.
func NewTree(cfg Config) *TreeLearner {
	return &TreeLearner{cfg: cfg}
}

func (l *TreeLearner) Name() string { return LearnerTree }

// Fit grows a tree on the training pairs. The random state is always
// seeded from the config so repeated fits are identical.
func (l *TreeLearner) Fit(X [][]float64, labels []string) (Model, error) {
	if err := validateTraining(X, labels); err != nil {
		return nil, err
	}

	opts := []func(*tree.Tree){tree.RandState(l.cfg.Seed)}
	if l.cfg.MinSplit > 0 {
		opts = append(opts, tree.MinSplit(l.cfg.MinSplit))
	}
	if l.cfg.MinLeaf > 0 {
		opts = append(opts, tree.MinLeaf(l.cfg.MinLeaf))
	}
	if l.cfg.MaxDepth != 0 {
		opts = append(opts, tree.MaxDepth(l.cfg.MaxDepth))
	}
	if l.cfg.MaxFeatures != 0 {
		opts = append(opts, tree.MaxFeatures(l.cfg.MaxFeatures))
	}

	clf := tree.NewClassifier(opts...)
	clf.Fit(X, labels)
	return &treeModel{clf: clf, dim: len(X[0])}, nil
}

type treeModel struct {
	clf *tree.Tree
	dim int
}

func (m *treeModel) Predict(theta []float64) (string, error) {
	if err := checkDim(theta, m.dim); err != nil {
		return "", err
	}
	return m.clf.Predict([][]float64{theta})[0], nil
}
