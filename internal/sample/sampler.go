// Package sample draws parameter vectors from configured distributions
// and tracks how quickly new strategies stop appearing during data
// generation.
package sample

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Supported distribution names.
const (
	DistBall     = "ball"
	DistGaussian = "gaussian"
	DistBox      = "box"
)

// ErrUnknownDist is returned when a spec names a distribution outside
// Supported().
var ErrUnknownDist = errors.New("unknown sampling distribution")

// Normalize maps a distribution name (or alias) to its canonical form.
// An empty name selects the ball distribution.
func Normalize(name string) (string, error) {
	switch name {
	case "", DistBall:
		return DistBall, nil
	case DistGaussian, "normal":
		return DistGaussian, nil
	case DistBox, "uniform":
		return DistBox, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDist, name)
	}
}

// Supported lists the canonical distribution names.
func Supported() []string {
	return []string{DistBall, DistGaussian, DistBox}
}

// Spec describes a sampling distribution. Vector fields may be left
// empty to take their defaults: Center all zeros, Stddev all ones,
// Low/High the unit box [-1, 1]. Dim may be omitted when any vector
// field is set, or when the caller fills it from the problem instance.
type Spec struct {
	Dist   string    `yaml:"dist,omitempty" json:"dist,omitempty"`
	Dim    int       `yaml:"dim,omitempty" json:"dim,omitempty"`
	Center []float64 `yaml:"center,omitempty" json:"center,omitempty"`
	Radius float64   `yaml:"radius,omitempty" json:"radius,omitempty"`
	Stddev []float64 `yaml:"stddev,omitempty" json:"stddev,omitempty"`
	Low    []float64 `yaml:"low,omitempty" json:"low,omitempty"`
	High   []float64 `yaml:"high,omitempty" json:"high,omitempty"`
}

// Sampler produces a deterministic, restartable stream of parameter
// vectors. The same spec and seed always yield the same sequence.
// A Sampler is not safe for concurrent use.
type Sampler struct {
	dist   string
	dim    int
	seed   uint64
	center []float64
	radius float64
	stddev []float64
	low    []float64
	high   []float64

	normal distuv.Normal
	unif   distuv.Uniform
}

// New validates a spec and returns a seeded sampler positioned at the
// start of its sequence.
func New(spec Spec, seed uint64) (*Sampler, error) {
	dist, err := Normalize(spec.Dist)
	if err != nil {
		return nil, err
	}

	dim := spec.Dim
	for _, v := range [][]float64{spec.Center, spec.Stddev, spec.Low, spec.High} {
		if dim == 0 && len(v) > 0 {
			dim = len(v)
		}
	}
	if dim <= 0 {
		return nil, errors.New("sampling dimension is not set")
	}

	s := &Sampler{dist: dist, dim: dim, seed: seed}
	if s.center, err = expand(spec.Center, dim, 0, "center"); err != nil {
		return nil, err
	}
	switch dist {
	case DistBall:
		s.radius = spec.Radius
		if s.radius == 0 {
			s.radius = 1
		}
		if s.radius < 0 {
			return nil, fmt.Errorf("radius %g is negative", s.radius)
		}
	case DistGaussian:
		if s.stddev, err = expand(spec.Stddev, dim, 1, "stddev"); err != nil {
			return nil, err
		}
		for i, sd := range s.stddev {
			if sd < 0 || math.IsNaN(sd) {
				return nil, fmt.Errorf("stddev[%d] = %g is not a valid deviation", i, sd)
			}
		}
	case DistBox:
		if s.low, err = expand(spec.Low, dim, -1, "low"); err != nil {
			return nil, err
		}
		if s.high, err = expand(spec.High, dim, 1, "high"); err != nil {
			return nil, err
		}
		for i := range s.low {
			if s.low[i] > s.high[i] {
				return nil, fmt.Errorf("box bounds [%g, %g] at index %d are inverted",
					s.low[i], s.high[i], i)
			}
		}
	}
	s.Reset()
	return s, nil
}

// expand returns v copied to length dim, or a fresh slice filled with
// def when v is empty.
func expand(v []float64, dim int, def float64, name string) ([]float64, error) {
	switch len(v) {
	case 0:
		out := make([]float64, dim)
		for i := range out {
			out[i] = def
		}
		return out, nil
	case dim:
		return append([]float64(nil), v...), nil
	default:
		return nil, fmt.Errorf("%s has length %d, want %d", name, len(v), dim)
	}
}

// Reset rewinds the sampler to the start of its seeded sequence.
func (s *Sampler) Reset() {
	src := rand.NewSource(s.seed)
	s.normal = distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	s.unif = distuv.Uniform{Min: 0, Max: 1, Src: src}
}

// Dim reports the length of the vectors this sampler draws.
func (s *Sampler) Dim() int { return s.dim }

// Dist reports the canonical distribution name.
func (s *Sampler) Dist() string { return s.dist }

// Next draws the next parameter vector in the sequence.
func (s *Sampler) Next() []float64 {
	theta := make([]float64, s.dim)
	switch s.dist {
	case DistGaussian:
		for i := range theta {
			theta[i] = s.center[i] + s.stddev[i]*s.normal.Rand()
		}
	case DistBox:
		for i := range theta {
			theta[i] = s.low[i] + (s.high[i]-s.low[i])*s.unif.Rand()
		}
	default:
		// Uniform over the ball: a normalized Gaussian direction gives
		// a uniform direction, and scaling the radius by U^(1/dim)
		// makes the density uniform in volume rather than piling up at
		// the center.
		for i := range theta {
			theta[i] = s.normal.Rand()
		}
		norm := floats.Norm(theta, 2)
		r := s.radius * math.Pow(s.unif.Rand(), 1/float64(s.dim))
		for i := range theta {
			if norm > 0 {
				theta[i] = s.center[i] + r*theta[i]/norm
			} else {
				theta[i] = s.center[i]
			}
		}
	}
	return theta
}

// Sample draws the next n vectors.
func (s *Sampler) Sample(n int) [][]float64 {
	out := make([][]float64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.Next())
	}
	return out
}
