package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LeparaLaMapara/mlopt/internal/learner"
	"github.com/LeparaLaMapara/mlopt/internal/problem"
	"github.com/LeparaLaMapara/mlopt/internal/sample"
	"github.com/LeparaLaMapara/mlopt/internal/solver"
	"github.com/LeparaLaMapara/mlopt/internal/strategy"
)

// Phase names the stages of an experiment run.
type Phase string

const (
	PhaseSampling   Phase = "sampling"
	PhaseSolving    Phase = "solving"
	PhaseExtracting Phase = "extracting"
	PhaseTraining   Phase = "training"
	PhaseEvaluating Phase = "evaluating"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Progress snapshots a running experiment for callbacks.
type Progress struct {
	Phase    Phase `json:"phase"`
	Solved   int   `json:"solved"`
	Dropped  int   `json:"dropped"`
	Total    int   `json:"total"`
	Distinct int   `json:"distinct"`
}

// SolveEvent describes the outcome of one data-generation unit.
type SolveEvent struct {
	Index   int     `json:"index"`
	Status  string  `json:"status"`
	Seconds float64 `json:"seconds,omitempty"`
	Key     string  `json:"strategy,omitempty"`
	Dropped bool    `json:"dropped,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

// Result bundles everything a finished run produces.
type Result struct {
	Report  *Report
	Dataset *Dataset
	Model   learner.Model
}

// Runner executes one experiment end to end. The optional callbacks are
// invoked serially, possibly from solver worker goroutines.
type Runner struct {
	cfg   Config
	inst  problem.Instance
	solv  solver.Solver
	learn learner.Learner

	OnProgress func(Progress)
	OnSolve    func(SolveEvent)

	cbMu sync.Mutex
}

// NewRunner wires up the instance, solver and learner named by the
// config. The config is defaulted and validated first.
func NewRunner(cfg Config) (*Runner, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	inst, err := problem.New(cfg.Problem)
	if err != nil {
		return nil, err
	}
	solv, err := solver.New(cfg.Solver, solver.Config{Infinity: cfg.Infinity})
	if err != nil {
		return nil, err
	}
	learn, err := learner.New(cfg.Learner)
	if err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, inst: inst, solv: solv, learn: learn}, nil
}

// Config returns the defaulted config the runner executes.
func (r *Runner) Config() Config { return r.cfg }

// Run executes the experiment: generate training data, train the
// classifier, evaluate on a held-out set. The returned error is fatal;
// recoverable per-sample failures only show up in the drop counts.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	spec := r.cfg.Sampling
	if spec.Dim == 0 {
		spec.Dim = r.inst.NumParams()
	}
	smp, err := sample.New(spec, r.cfg.Seed)
	if err != nil {
		return r.fail(err)
	}
	if smp.Dim() != r.inst.NumParams() {
		return r.fail(fmt.Errorf("sampler dimension %d does not match the %d parameters of %s",
			smp.Dim(), r.inst.NumParams(), r.inst.Name()))
	}

	slog.Info("starting experiment",
		"instance", r.inst.Name(),
		"solver", r.solv.Name(),
		"learner", r.learn.Name(),
		"samples", r.cfg.Samples,
		"workers", r.cfg.Workers,
		"seed", r.cfg.Seed,
	)
	r.emitProgress(Progress{Phase: PhaseSampling, Total: r.cfg.Samples})

	disc := sample.NewDiscovery(r.cfg.Discovery)
	train, trainDropped, err := r.generate(ctx, smp, r.cfg.Samples, disc, 0)
	if err != nil {
		return r.fail(err)
	}
	if err := r.checkDrops(train, trainDropped); err != nil {
		return r.fail(err)
	}

	r.emitProgress(Progress{
		Phase:    PhaseExtracting,
		Solved:   train.Len(),
		Dropped:  trainDropped,
		Total:    train.Len() + trainDropped,
		Distinct: train.Distinct(),
	})
	slog.Info("data generation complete",
		"solved", train.Len(),
		"dropped", trainDropped,
		"strategies", train.Distinct(),
		"unseen_mass", disc.UnseenMass(),
	)

	r.emitProgress(Progress{
		Phase:    PhaseTraining,
		Solved:   train.Len(),
		Dropped:  trainDropped,
		Total:    train.Len() + trainDropped,
		Distinct: train.Distinct(),
	})
	trainStart := time.Now()
	model, err := r.learn.Fit(train.Features(), train.Labels())
	if err != nil {
		return r.fail(fmt.Errorf("training failed: %w", err))
	}
	trainTime := time.Since(trainStart)
	slog.Info("classifier trained", "learner", r.learn.Name(), "seconds", trainTime.Seconds())

	var eval *Evaluation
	if r.cfg.TestSamples > 0 {
		r.emitProgress(Progress{Phase: PhaseEvaluating, Total: r.cfg.TestSamples})

		tsmp, err := sample.New(spec, r.cfg.Seed+1)
		if err != nil {
			return r.fail(err)
		}
		test, testDropped, err := r.generate(ctx, tsmp, r.cfg.TestSamples, nil, r.cfg.Samples)
		if err != nil {
			return r.fail(err)
		}
		if err := r.checkDrops(test, testDropped); err != nil {
			return r.fail(err)
		}

		ev := &Evaluator{
			Instance:    r.inst,
			Solver:      r.solv,
			Table:       train.Table(),
			Tol:         r.cfg.Tol,
			GapFraction: r.cfg.GapFraction,
		}
		eval, err = ev.Evaluate(ctx, model, test)
		if err != nil {
			return r.fail(err)
		}
	}

	report := &Report{
		Instance:     r.inst.Name(),
		Solver:       r.solv.Name(),
		Learner:      r.learn.Name(),
		Samples:      train.Len(),
		Dropped:      trainDropped,
		Strategies:   train.Distinct(),
		Singletons:   disc.Singletons(),
		UnseenMass:   disc.UnseenMass(),
		TrainSeconds: trainTime.Seconds(),
		TotalSeconds: time.Since(start).Seconds(),
		Evaluation:   eval,
	}

	r.emitProgress(Progress{
		Phase:    PhaseDone,
		Solved:   train.Len(),
		Dropped:  trainDropped,
		Total:    train.Len() + trainDropped,
		Distinct: train.Distinct(),
	})
	slog.Info("experiment complete",
		"seconds", report.TotalSeconds,
		"strategies", report.Strategies,
		"accuracy", report.Accuracy(),
	)
	return &Result{Report: report, Dataset: train, Model: model}, nil
}

// genState carries the shared bookkeeping of one generation pass.
type genState struct {
	ds      *Dataset
	dropped atomic.Int64
	total   int
}

// generate draws up to n parameter vectors and runs populate, solve and
// extract on each. A non-nil discovery tracker observes strategy keys
// and, when adaptive sampling is enabled, stops generation early once
// the stream saturates.
func (r *Runner) generate(ctx context.Context, smp *sample.Sampler, n int, disc *sample.Discovery, indexBase int) (*Dataset, int, error) {
	g := &genState{ds: NewDataset(), total: n}

	adaptive := disc != nil && r.cfg.Discovery.Enabled
	workers := r.cfg.Workers
	if workers > n {
		workers = n
	}
	if adaptive && workers > 1 {
		slog.Info("adaptive sampling runs on a single worker")
		workers = 1
	}

	if adaptive {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
			key, ok := r.buildSample(ctx, g, indexBase+i, smp.Next())
			if ok && disc.Observe(key) {
				slog.Info("stopping generation early",
					"observed", disc.Total(),
					"distinct", disc.Distinct(),
				)
				break
			}
		}
		return g.ds, int(g.dropped.Load()), nil
	}

	thetas := smp.Sample(n)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				r.buildSample(ctx, g, indexBase+i, thetas[i])
			}
		}()
	}
feed:
	for i := range thetas {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	// The tracker still gets its statistics when solves ran in
	// parallel, just without the chance to stop early.
	if disc != nil {
		for _, key := range g.ds.Labels() {
			disc.Observe(key)
		}
	}
	return g.ds, int(g.dropped.Load()), nil
}

// buildSample runs one generation unit. It returns the strategy key and
// true on success; any failure drops the sample and counts it.
func (r *Runner) buildSample(ctx context.Context, g *genState, idx int, theta []float64) (string, bool) {
	data, err := r.inst.Populate(theta)
	if err != nil {
		r.dropSample(g, idx, "construction", err)
		return "", false
	}

	sol, err := r.solveTimed(ctx, data)
	if err != nil {
		r.dropSample(g, idx, failureStatus(err), err)
		return "", false
	}

	st, err := strategy.NewExtractor(r.cfg.Tol).Extract(data, sol)
	if err != nil {
		r.dropSample(g, idx, "extraction", err)
		return "", false
	}

	key := g.ds.Add(theta, st, sol.Objective, sol.SolveTime)
	r.emitSolve(SolveEvent{
		Index:   idx,
		Status:  sol.Status.String(),
		Seconds: sol.SolveTime.Seconds(),
		Key:     key,
	})
	r.emitProgress(Progress{
		Phase:    PhaseSolving,
		Solved:   g.ds.Len(),
		Dropped:  int(g.dropped.Load()),
		Total:    g.total,
		Distinct: g.ds.Distinct(),
	})
	return key, true
}

// solveTimed runs one solve under the configured per-solve timeout. A
// timed-out solve is abandoned; its goroutine finishes into a buffered
// channel nobody reads.
func (r *Runner) solveTimed(ctx context.Context, d *problem.Data) (*solver.Solution, error) {
	if r.cfg.SolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.SolveTimeout.Std())
		defer cancel()
	}

	type outcome struct {
		sol *solver.Solution
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		sol, err := r.solv.Solve(ctx, d)
		ch <- outcome{sol, err}
	}()

	select {
	case <-ctx.Done():
		return nil, &solver.SolveFailure{Status: solver.StatusTimeLimit, Cause: ctx.Err()}
	case out := <-ch:
		return out.sol, out.err
	}
}

func (r *Runner) dropSample(g *genState, idx int, reason string, err error) {
	g.dropped.Add(1)
	slog.Warn("dropping sample", "index", idx, "reason", reason, "error", err)
	r.emitSolve(SolveEvent{
		Index:   idx,
		Status:  reason,
		Dropped: true,
		Reason:  err.Error(),
	})
}

// checkDrops fails generation when the dropped share strictly exceeds
// the threshold, or when nothing survived at all.
func (r *Runner) checkDrops(ds *Dataset, dropped int) error {
	attempted := ds.Len() + dropped
	if attempted > 0 && float64(dropped)/float64(attempted) > r.cfg.DropThreshold {
		return &DataGenerationError{Dropped: dropped, Total: attempted, Threshold: r.cfg.DropThreshold}
	}
	if ds.Len() == 0 {
		return &DataGenerationError{Dropped: dropped, Total: attempted, Threshold: r.cfg.DropThreshold}
	}
	return nil
}

func failureStatus(err error) string {
	var sf *solver.SolveFailure
	if errors.As(err, &sf) {
		return sf.Status.String()
	}
	return "error"
}

func (r *Runner) fail(err error) (*Result, error) {
	r.emitProgress(Progress{Phase: PhaseFailed})
	slog.Error("experiment failed", "error", err)
	return nil, err
}

func (r *Runner) emitProgress(p Progress) {
	if r.OnProgress == nil {
		return
	}
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	r.OnProgress(p)
}

func (r *Runner) emitSolve(ev SolveEvent) {
	if r.OnSolve == nil {
		return
	}
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	r.OnSolve(ev)
}

// FitDataset refits a classifier on a stored dataset, for retraining
// with different learner knobs without re-solving anything.
func FitDataset(cfg learner.Config, ds *Dataset) (learner.Model, error) {
	l, err := learner.New(cfg)
	if err != nil {
		return nil, err
	}
	return l.Fit(ds.Features(), ds.Labels())
}
