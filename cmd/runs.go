package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/LeparaLaMapara/mlopt/internal/store"
)

var (
	runsDataDir       string
	runsKeepLast      int
	runsOlderThanDays int
	runsForce         bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage stored experiment runs",
	Long: `Manage stored experiment runs including listing, inspecting and
cleaning old runs. Every finished run keeps its config, dataset and
report under the data directory.`,
}

var listRunsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored runs",
	Long:  `Display all runs with their state, problem instance, sample counts, accuracy and disk usage.`,
	RunE:  runListRuns,
}

var showRunCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run in detail",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowRun,
}

var deleteRunCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteRun,
}

var cleanRunsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old runs",
	Long: `Delete old runs based on retention policy.
You can specify how many runs to keep or delete runs older than N days.`,
	RunE: runCleanRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.AddCommand(listRunsCmd)
	runsCmd.AddCommand(showRunCmd)
	runsCmd.AddCommand(deleteRunCmd)
	runsCmd.AddCommand(cleanRunsCmd)

	runsCmd.PersistentFlags().StringVar(&runsDataDir, "data-dir", "./data", "Base directory for stored runs")

	deleteRunCmd.Flags().BoolVarP(&runsForce, "force", "f", false, "Skip confirmation prompt")
	cleanRunsCmd.Flags().IntVar(&runsKeepLast, "keep-last", 0, "Keep only the last N runs (0 = keep all)")
	cleanRunsCmd.Flags().IntVar(&runsOlderThanDays, "older-than", 0, "Delete runs older than N days (0 = no age limit)")
	cleanRunsCmd.Flags().BoolVarP(&runsForce, "force", "f", false, "Skip confirmation prompt")
}

func runListRuns(cmd *cobra.Command, args []string) error {
	runStore, err := store.NewFSStore(runsDataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	infos, err := runStore.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tCREATED\tSTATE\tINSTANCE\tSAMPLES\tACCURACY\tSIZE")
	fmt.Fprintln(w, "------\t-------\t-----\t--------\t-------\t--------\t----")

	for _, info := range infos {
		size, err := getDirSize(runStore.RunDir(info.ID))
		sizeStr := "unknown"
		if err == nil {
			sizeStr = formatBytes(size)
		}

		accuracy := "-"
		if info.State == store.StateCompleted {
			accuracy = fmt.Sprintf("%.4f", info.Accuracy)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			shortID(info.ID),
			info.CreatedAt.Format("2006-01-02 15:04:05"),
			info.State,
			info.Instance,
			info.Samples,
			accuracy,
			sizeStr,
		)
	}

	w.Flush()

	fmt.Printf("\nTotal runs: %d\n", len(infos))
	return nil
}

func runShowRun(cmd *cobra.Command, args []string) error {
	runStore, err := store.NewFSStore(runsDataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	rec, err := runStore.GetRun(args[0])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("run not found: %s", args[0])
		}
		return err
	}

	fmt.Printf("Run: %s\n", rec.ID)
	fmt.Printf("State: %s\n", rec.State)
	fmt.Printf("Created: %s\n", rec.CreatedAt.Format(time.RFC3339))
	if !rec.FinishedAt.IsZero() {
		fmt.Printf("Finished: %s\n", rec.FinishedAt.Format(time.RFC3339))
	}
	if rec.Error != "" {
		fmt.Printf("Error: %s\n", rec.Error)
	}
	fmt.Println()

	// The report carries more detail than the record summary, but failed
	// runs never wrote one.
	if rep, err := runStore.LoadReport(rec.ID); err == nil {
		printReport(rep)
		return nil
	}

	fmt.Printf("Instance: %s\n", rec.Config.Problem.Family)
	fmt.Printf("Solver: %s\n", rec.Config.Solver)
	fmt.Printf("Learner: %s\n", rec.Config.Learner.Name)
	fmt.Printf("Samples: %d\n", rec.Summary.Samples)
	fmt.Printf("Strategies: %d\n", rec.Summary.Strategies)
	return nil
}

func runDeleteRun(cmd *cobra.Command, args []string) error {
	runStore, err := store.NewFSStore(runsDataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	runID := args[0]
	if !runsForce {
		fmt.Printf("Delete run %s? [y/N]: ", shortID(runID))
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := runStore.DeleteRun(runID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("run not found: %s", runID)
		}
		return err
	}
	fmt.Printf("Deleted run %s\n", runID)
	return nil
}

func runCleanRuns(cmd *cobra.Command, args []string) error {
	if runsKeepLast == 0 && runsOlderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	runStore, err := store.NewFSStore(runsDataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	infos, err := runStore.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No runs to clean.")
		return nil
	}

	toDelete := selectRunsForDeletion(infos, runsKeepLast, runsOlderThanDays)

	if len(toDelete) == 0 {
		fmt.Println("No runs match deletion criteria.")
		return nil
	}

	fmt.Printf("Found %d run(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Printf("  - %s (%s, %s)\n",
			shortID(info.ID),
			info.State,
			info.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}

	if !runsForce {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		if err := runStore.DeleteRun(info.ID); err != nil {
			slog.Error("Failed to delete run", "run_id", info.ID, "error", err)
			failed++
		} else {
			slog.Info("Deleted run", "run_id", info.ID)
			deleted++
		}
	}

	fmt.Printf("\nDeleted %d run(s), %d failed.\n", deleted, failed)
	return nil
}

// selectRunsForDeletion applies the retention policy to the run listing.
// A run is selected when it is older than the cutoff or beyond the
// keep-last count, whichever applies.
func selectRunsForDeletion(infos []store.RunInfo, keepLast, olderThanDays int) []store.RunInfo {
	var toDelete []store.RunInfo

	if olderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.CreatedAt.Before(cutoff) {
				toDelete = append(toDelete, info)
			}
		}
	}

	if keepLast > 0 && len(infos) > keepLast {
		sorted := make([]store.RunInfo, len(infos))
		copy(sorted, infos)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		})

		for _, info := range sorted[:len(sorted)-keepLast] {
			found := false
			for _, existing := range toDelete {
				if existing.ID == info.ID {
					found = true
					break
				}
			}
			if !found {
				toDelete = append(toDelete, info)
			}
		}
	}

	return toDelete
}

// shortID truncates a run ID for display.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

// getDirSize calculates the total size of a directory.
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
