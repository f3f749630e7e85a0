// Package learner defines the classifier adapters that map parameter
// vectors to strategy keys, and a registry for selecting one by name.
package learner

import (
	"errors"
	"fmt"
)

// Model is a trained classifier. Predict maps a parameter vector to a
// strategy key. Implementations are safe for concurrent use.
type Model interface {
	Predict(theta []float64) (string, error)
}

// Learner fits a Model on training pairs of parameter vectors and
// strategy keys.
type Learner interface {
	Name() string
	Fit(X [][]float64, labels []string) (Model, error)
}

// Supported learner names.
const (
	LearnerTree     = "tree"
	LearnerKNN      = "knn"
	LearnerMajority = "majority"
)

// ErrUnknownLearner is returned when a config names a learner outside
// Supported().
var ErrUnknownLearner = errors.New("unknown learner")

// Config carries the knobs for all learners. Fields not used by the
// selected learner are ignored. Zero values take learner defaults.
type Config struct {
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	K           int    `yaml:"k,omitempty" json:"k,omitempty"`
	MinSplit    int    `yaml:"min_split,omitempty" json:"min_split,omitempty"`
	MinLeaf     int    `yaml:"min_leaf,omitempty" json:"min_leaf,omitempty"`
	MaxDepth    int    `yaml:"max_depth,omitempty" json:"max_depth,omitempty"`
	MaxFeatures int    `yaml:"max_features,omitempty" json:"max_features,omitempty"`
	Seed        int64  `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// Normalize maps a learner name (or alias) to its canonical form. An
// empty name selects the decision tree.
func Normalize(name string) (string, error) {
	switch name {
	case "", LearnerTree, "cart":
		return LearnerTree, nil
	case LearnerKNN, "nearest":
		return LearnerKNN, nil
	case LearnerMajority, "baseline":
		return LearnerMajority, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLearner, name)
	}
}

// Supported lists the canonical learner names.
func Supported() []string {
	return []string{LearnerTree, LearnerKNN, LearnerMajority}
}

// New creates the learner selected by cfg.Name.
func New(cfg Config) (Learner, error) {
	name, err := Normalize(cfg.Name)
	if err != nil {
		return nil, err
	}
	switch name {
	case LearnerKNN:
		return NewKNN(cfg), nil
	case LearnerMajority:
		return NewMajority(), nil
	default:
		return NewTree(cfg), nil
	}
}

// validateTraining rejects malformed training sets before fitting.
func validateTraining(X [][]float64, labels []string) error {
	if len(X) == 0 {
		return errors.New("training set is empty")
	}
	if len(X) != len(labels) {
		return fmt.Errorf("have %d feature rows and %d labels", len(X), len(labels))
	}
	dim := len(X[0])
	if dim == 0 {
		return errors.New("training rows have no features")
	}
	for i, row := range X {
		if len(row) != dim {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), dim)
		}
	}
	return nil
}

// checkDim verifies a prediction input against the fitted dimension.
func checkDim(theta []float64, dim int) error {
	if len(theta) != dim {
		return fmt.Errorf("parameter vector has length %d, want %d", len(theta), dim)
	}
	return nil
}
