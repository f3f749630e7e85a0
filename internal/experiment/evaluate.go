package experiment

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/LeparaLaMapara/mlopt/internal/learner"
	"github.com/LeparaLaMapara/mlopt/internal/problem"
	"github.com/LeparaLaMapara/mlopt/internal/solver"
	"github.com/LeparaLaMapara/mlopt/internal/strategy"
)

// Evaluator measures a trained model on held-out samples: exact-key
// accuracy on all of them, and the warm-start optimality gap on the
// leading GapFraction share.
type Evaluator struct {
	Instance    problem.Instance
	Solver      solver.Solver
	Table       *strategy.Table
	Tol         float64
	GapFraction float64
}

// Evaluate runs the model over the test set. Infeasible predictions
// become unbounded gaps; only broken inputs or cancellation are errors.
func (e *Evaluator) Evaluate(ctx context.Context, model learner.Model, test *Dataset) (*Evaluation, error) {
	samples := test.Samples()
	rows := make([]EvalRow, 0, len(samples))
	gapCount := int(math.Ceil(e.GapFraction * float64(len(samples))))

	for i, s := range samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pred, err := model.Predict(s.Theta)
		if err != nil {
			return nil, fmt.Errorf("prediction failed on test sample %d: %w", i, err)
		}
		row := EvalRow{
			Index:       i,
			TrueKey:     s.Key,
			PredKey:     pred,
			Correct:     pred == s.Key,
			FullSeconds: s.SolveTime.Seconds(),
		}

		if i < gapCount {
			gap, warmSecs, err := e.warmStart(ctx, s, pred)
			switch {
			case errors.Is(err, ErrPredictionInfeasible):
				g := Gap(math.Inf(1))
				row.Gap = &g
			case err != nil:
				return nil, err
			default:
				g := Gap(gap)
				row.Gap = &g
				row.WarmSeconds = warmSecs
			}
		}
		rows = append(rows, row)
	}
	return summarize(rows), nil
}

// warmStart solves the reduced problem of the predicted strategy and
// returns the relative suboptimality of its solution on the full
// problem, plus the reduced solve seconds.
func (e *Evaluator) warmStart(ctx context.Context, s Sample, pred string) (float64, float64, error) {
	st, ok := e.Table.Get(pred)
	if !ok {
		// The model can only emit keys it was trained on, but a stored
		// dataset may have been trimmed; fall back to decoding the key.
		parsed, err := strategy.ParseKey(pred)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: undecodable key %q", ErrPredictionInfeasible, pred)
		}
		st = parsed
	}

	data, err := e.Instance.Populate(s.Theta)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to repopulate test sample: %w", err)
	}

	reduced, err := strategy.BuildRestriction(data, st)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrPredictionInfeasible, err)
	}

	rsol, err := e.Solver.Solve(ctx, reduced)
	if err != nil {
		var sf *solver.SolveFailure
		if errors.As(err, &sf) {
			return 0, 0, fmt.Errorf("%w: restricted solve ended %s", ErrPredictionInfeasible, sf.Status)
		}
		return 0, 0, err
	}
	if err := strategy.CheckFeasible(data, rsol.Primal, e.Tol); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrPredictionInfeasible, err)
	}

	return relativeGap(s.Objective, rsol.Objective, data.Maximize), rsol.SolveTime.Seconds(), nil
}

// relativeGap measures how much worse the warm-started objective is than
// the true optimum, in minimization terms, scaled by the optimum's
// magnitude with a floor of 1 to keep near-zero optima stable.
func relativeGap(trueObj, predObj float64, maximize bool) float64 {
	t, p := trueObj, predObj
	if maximize {
		t, p = -t, -p
	}
	return (p - t) / math.Max(1, math.Abs(t))
}
