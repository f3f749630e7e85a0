package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/LeparaLaMapara/mlopt/internal/experiment"
	"github.com/LeparaLaMapara/mlopt/internal/store"
)

var (
	runConfigPath  string
	runFamily      string
	runAgents      int
	runSamples     int
	runTestSamples int
	runSeed        uint64
	runSolver      string
	runLearner     string
	runWorkers     int
	runDataDir     string
	runNoSave      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a strategy-learning experiment",
	Long: `Samples parameters, solves the populated problems, trains a classifier
on the extracted strategies and evaluates it on a held-out set.
The finished run is persisted under --data-dir unless --no-save is set.`,
	RunE: runExperiment,
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "Experiment config YAML")
	runCmd.Flags().StringVar(&runFamily, "family", "assignment", "Problem family: assignment, inventory, netlib")
	runCmd.Flags().IntVar(&runAgents, "agents", 5, "Agents for the assignment family")
	runCmd.Flags().IntVar(&runSamples, "samples", 0, "Training samples")
	runCmd.Flags().IntVar(&runTestSamples, "test-samples", 0, "Held-out test samples")
	runCmd.Flags().Uint64Var(&runSeed, "seed", 0, "Sampling seed")
	runCmd.Flags().StringVar(&runSolver, "solver", "", "Solver backend: highs, simplex")
	runCmd.Flags().StringVar(&runLearner, "learner", "", "Learner: tree, knn, majority")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Concurrent solves during generation")
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "./data", "Base directory for stored runs")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "Do not persist the finished run")

	rootCmd.AddCommand(runCmd)
}

func runExperiment(cmd *cobra.Command, args []string) error {
	cfg, err := buildRunConfig(cmd)
	if err != nil {
		return err
	}

	runner, err := experiment.NewRunner(cfg)
	if err != nil {
		return err
	}
	cfg = runner.Config()

	var (
		st    *store.FSStore
		rec   *store.RunRecord
		trace *store.TraceWriter
	)
	if !runNoSave {
		st, err = store.NewFSStore(runDataDir)
		if err != nil {
			return err
		}
		rec = store.NewRunRecord(cfg)
		trace, err = st.TraceWriter(rec.ID, false)
		if err != nil {
			slog.Warn("Failed to open trace", "run_id", rec.ID, "error", err)
		} else {
			defer trace.Close()
			runner.OnSolve = func(ev experiment.SolveEvent) {
				werr := trace.Write(store.TraceEntry{
					Index:    ev.Index,
					Status:   ev.Status,
					Seconds:  ev.Seconds,
					Strategy: ev.Key,
					Dropped:  ev.Dropped,
					Reason:   ev.Reason,
				})
				if werr != nil {
					slog.Warn("Failed to write trace entry", "index", ev.Index, "error", werr)
				}
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := runner.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("run interrupted")
		}
		if rec != nil {
			rec.Fail(err)
			if serr := st.SaveRun(rec); serr != nil {
				slog.Error("Failed to persist run record", "run_id", rec.ID, "error", serr)
			}
		}
		return err
	}

	printReport(result.Report)

	if rec != nil {
		rec.Finish(result.Report)
		if err := st.SaveRun(rec); err != nil {
			return fmt.Errorf("failed to persist run record: %w", err)
		}
		if err := st.SaveDataset(rec.ID, result.Dataset); err != nil {
			return fmt.Errorf("failed to persist dataset: %w", err)
		}
		if err := st.SaveReport(rec.ID, result.Report); err != nil {
			return fmt.Errorf("failed to persist report: %w", err)
		}
		fmt.Printf("\nSaved run %s\n", rec.ID)
	}

	return nil
}

// buildRunConfig merges the config file with explicit flag overrides.
func buildRunConfig(cmd *cobra.Command) (experiment.Config, error) {
	var cfg experiment.Config
	if runConfigPath != "" {
		loaded, err := experiment.LoadConfig(runConfigPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if runConfigPath == "" {
		cfg.Problem.Family = runFamily
		cfg.Problem.Agents = runAgents
	} else {
		if flags.Changed("family") {
			cfg.Problem.Family = runFamily
		}
		if flags.Changed("agents") {
			cfg.Problem.Agents = runAgents
		}
	}
	if flags.Changed("samples") {
		cfg.Samples = runSamples
	}
	if flags.Changed("test-samples") {
		cfg.TestSamples = runTestSamples
	}
	if flags.Changed("seed") {
		cfg.Seed = runSeed
	}
	if flags.Changed("solver") {
		cfg.Solver = runSolver
	}
	if flags.Changed("learner") {
		cfg.Learner.Name = runLearner
	}
	if flags.Changed("workers") {
		cfg.Workers = runWorkers
	}
	return cfg, nil
}

// printReport renders a finished report as a two-column table.
func printReport(rep *experiment.Report) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Instance:\t%s\n", rep.Instance)
	fmt.Fprintf(w, "Solver:\t%s\n", rep.Solver)
	fmt.Fprintf(w, "Learner:\t%s\n", rep.Learner)
	fmt.Fprintf(w, "Samples:\t%d\n", rep.Samples)
	fmt.Fprintf(w, "Dropped:\t%d\n", rep.Dropped)
	fmt.Fprintf(w, "Strategies:\t%d\n", rep.Strategies)
	fmt.Fprintf(w, "Singletons:\t%d\n", rep.Singletons)
	fmt.Fprintf(w, "Unseen mass:\t%.4f\n", rep.UnseenMass)
	fmt.Fprintf(w, "Train seconds:\t%.3f\n", rep.TrainSeconds)
	fmt.Fprintf(w, "Total seconds:\t%.3f\n", rep.TotalSeconds)
	if ev := rep.Evaluation; ev != nil {
		fmt.Fprintln(w, "\t")
		fmt.Fprintf(w, "Test samples:\t%d\n", ev.TestSamples)
		fmt.Fprintf(w, "Correct:\t%d\n", ev.Correct)
		fmt.Fprintf(w, "Accuracy:\t%.4f\n", ev.Accuracy)
		fmt.Fprintf(w, "Gap samples:\t%d\n", ev.GapSamples)
		fmt.Fprintf(w, "Infeasible:\t%d\n", ev.Infeasible)
		fmt.Fprintf(w, "Mean gap:\t%s\n", ev.MeanGap)
		fmt.Fprintf(w, "Max gap:\t%s\n", ev.MaxGap)
		fmt.Fprintf(w, "Mean full solve:\t%.6fs\n", ev.MeanFullSeconds)
		fmt.Fprintf(w, "Mean warm solve:\t%.6fs\n", ev.MeanWarmSeconds)
	}
	w.Flush()
}
