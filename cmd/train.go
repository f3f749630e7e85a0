package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"github.com/LeparaLaMapara/mlopt/internal/experiment"
	"github.com/LeparaLaMapara/mlopt/internal/learner"
	"github.com/LeparaLaMapara/mlopt/internal/problem"
	"github.com/LeparaLaMapara/mlopt/internal/solver"
	"github.com/LeparaLaMapara/mlopt/internal/store"
	"github.com/LeparaLaMapara/mlopt/internal/strategy"
)

var (
	trainDataDir  string
	trainLearner  string
	trainK        int
	trainMaxDepth int
	trainMinSplit int
	trainMinLeaf  int
	trainSplit    float64
	trainSeed     uint64
	trainGapFrac  float64
	trainSave     bool
)

var trainCmd = &cobra.Command{
	Use:   "train <run-id>",
	Short: "Retrain a classifier on a stored dataset",
	Long: `Reloads the dataset of a stored run, refits a classifier on a shuffled
split and evaluates it on the held-out remainder. Nothing is solved
unless --gap-fraction asks for warm-started gap measurements.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&trainDataDir, "data-dir", "./data", "Base directory for stored runs")
	trainCmd.Flags().StringVar(&trainLearner, "learner", "", "Learner override: tree, knn, majority")
	trainCmd.Flags().IntVar(&trainK, "k", 0, "Neighbors for the knn learner")
	trainCmd.Flags().IntVar(&trainMaxDepth, "max-depth", 0, "Depth limit for the tree learner")
	trainCmd.Flags().IntVar(&trainMinSplit, "min-split", 0, "Minimum samples to split a tree node")
	trainCmd.Flags().IntVar(&trainMinLeaf, "min-leaf", 0, "Minimum samples per tree leaf")
	trainCmd.Flags().Float64Var(&trainSplit, "split", 0.8, "Training share of the dataset")
	trainCmd.Flags().Uint64Var(&trainSeed, "seed", 0, "Shuffle seed for the split")
	trainCmd.Flags().Float64Var(&trainGapFrac, "gap-fraction", 0, "Share of holdout samples to warm-start solve")
	trainCmd.Flags().BoolVar(&trainSave, "save", false, "Persist the retrained result as a new run")

	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	start := time.Now()

	if trainSplit <= 0 || trainSplit >= 1 {
		return fmt.Errorf("split = %g, want within (0, 1)", trainSplit)
	}
	if trainGapFrac < 0 || trainGapFrac > 1 {
		return fmt.Errorf("gap-fraction = %g, want within [0, 1]", trainGapFrac)
	}

	st, err := store.NewFSStore(trainDataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	rec, err := st.GetRun(args[0])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("run not found: %s", args[0])
		}
		return err
	}
	ds, err := st.LoadDataset(rec.ID)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	learnerCfg := rec.Config.Learner
	flags := cmd.Flags()
	if flags.Changed("learner") {
		learnerCfg.Name = trainLearner
	}
	if flags.Changed("k") {
		learnerCfg.K = trainK
	}
	if flags.Changed("max-depth") {
		learnerCfg.MaxDepth = trainMaxDepth
	}
	if flags.Changed("min-split") {
		learnerCfg.MinSplit = trainMinSplit
	}
	if flags.Changed("min-leaf") {
		learnerCfg.MinLeaf = trainMinLeaf
	}
	name, err := learner.Normalize(learnerCfg.Name)
	if err != nil {
		return err
	}
	learnerCfg.Name = name

	trainSet, testSet, err := splitDataset(ds, trainSplit, trainSeed)
	if err != nil {
		return err
	}

	slog.Info("Retraining classifier",
		"run_id", rec.ID,
		"learner", learnerCfg.Name,
		"train", trainSet.Len(),
		"test", testSet.Len(),
	)

	fitStart := time.Now()
	model, err := experiment.FitDataset(learnerCfg, trainSet)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	fitSeconds := time.Since(fitStart).Seconds()

	ev := &experiment.Evaluator{
		Table:       trainSet.Table(),
		Tol:         rec.Config.Tol,
		GapFraction: trainGapFrac,
	}
	if trainGapFrac > 0 {
		inst, err := problem.New(rec.Config.Problem)
		if err != nil {
			return err
		}
		solv, err := solver.New(rec.Config.Solver, solver.Config{Infinity: rec.Config.Infinity})
		if err != nil {
			return err
		}
		ev.Instance = inst
		ev.Solver = solv
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	evaluation, err := ev.Evaluate(ctx, model, testSet)
	if err != nil {
		return err
	}

	report := &experiment.Report{
		Instance:     string(problem.NormalizeFamily(rec.Config.Problem.Family)),
		Solver:       rec.Config.Solver,
		Learner:      learnerCfg.Name,
		Samples:      trainSet.Len(),
		Strategies:   trainSet.Distinct(),
		TrainSeconds: fitSeconds,
		TotalSeconds: time.Since(start).Seconds(),
		Evaluation:   evaluation,
	}

	printReport(report)

	if trainSave {
		cfg := rec.Config
		cfg.Learner = learnerCfg
		newRec := store.NewRunRecord(cfg)
		newRec.Finish(report)
		if err := st.SaveRun(newRec); err != nil {
			return fmt.Errorf("failed to persist run record: %w", err)
		}
		if err := st.SaveReport(newRec.ID, report); err != nil {
			return fmt.Errorf("failed to persist report: %w", err)
		}
		fmt.Printf("\nSaved run %s\n", newRec.ID)
	}
	return nil
}

// splitDataset shuffles the samples and splits them into a training and
// a holdout dataset. Both sides rebuild their own strategy tables from
// the keys.
func splitDataset(ds *experiment.Dataset, fraction float64, seed uint64) (*experiment.Dataset, *experiment.Dataset, error) {
	samples := ds.Samples()
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})

	cut := int(fraction * float64(len(samples)))
	if cut == 0 || cut == len(samples) {
		return nil, nil, fmt.Errorf("split %g leaves an empty side for %d samples", fraction, len(samples))
	}

	trainSet, testSet := experiment.NewDataset(), experiment.NewDataset()
	for i, s := range samples {
		st, err := strategy.ParseKey(s.Key)
		if err != nil {
			return nil, nil, fmt.Errorf("sample %d: %w", i, err)
		}
		dst := testSet
		if i < cut {
			dst = trainSet
		}
		dst.Add(s.Theta, st, s.Objective, s.SolveTime)
	}
	return trainSet, testSet, nil
}
