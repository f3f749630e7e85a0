package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var serverURL string

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or a specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If a job-id is provided, shows detailed status for that job.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listJobs(fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}
	jobID := args[0]
	return getJobStatus(fmt.Sprintf("%s/api/v1/jobs/%s", serverURL, jobID), jobID)
}

func listJobs(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		config := job["config"].(map[string]interface{})
		problem := config["problem"].(map[string]interface{})
		fmt.Printf("Job ID: %s\n", job["id"])
		fmt.Printf("  State: %s\n", job["state"])
		fmt.Printf("  Family: %s\n", problem["family"])
		fmt.Printf("  Solver: %s\n", config["solver"])
		if progress, ok := job["progress"].(map[string]interface{}); ok {
			fmt.Printf("  Phase: %s (%v/%v solved)\n",
				progress["phase"], progress["solved"], progress["total"])
		}
		fmt.Println()
	}

	return nil
}

func getJobStatus(url, jobID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Job: %s\n", status["id"])
	fmt.Printf("State: %s\n", status["state"])
	fmt.Println()

	config := status["config"].(map[string]interface{})
	problem := config["problem"].(map[string]interface{})
	learner, _ := config["learner"].(map[string]interface{})
	fmt.Println("Configuration:")
	fmt.Printf("  Family: %s\n", problem["family"])
	fmt.Printf("  Solver: %s\n", config["solver"])
	if learner != nil {
		fmt.Printf("  Learner: %s\n", learner["name"])
	}
	fmt.Printf("  Samples: %v\n", config["samples"])
	fmt.Printf("  Test samples: %v\n", config["test_samples"])
	fmt.Println()

	fmt.Println("Progress:")
	if progress, ok := status["progress"].(map[string]interface{}); ok {
		fmt.Printf("  Phase: %s\n", progress["phase"])
		fmt.Printf("  Solved: %v/%v\n", progress["solved"], progress["total"])
		fmt.Printf("  Dropped: %v\n", progress["dropped"])
		fmt.Printf("  Distinct strategies: %v\n", progress["distinct"])
	}

	if status["elapsed"] != nil {
		elapsed := time.Duration(status["elapsed"].(float64) * float64(time.Second))
		fmt.Printf("  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	}

	if report, ok := status["report"].(map[string]interface{}); ok {
		fmt.Println()
		fmt.Printf("Strategies: %v\n", report["strategies"])
		if eval, ok := report["evaluation"].(map[string]interface{}); ok {
			fmt.Printf("Accuracy: %.4f\n", eval["accuracy"])
		}
	}

	if status["error"] != nil && status["error"].(string) != "" {
		fmt.Printf("\nError: %s\n", status["error"])
	}

	return nil
}
