package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

// jobSummary is the part of a job the status command prints.
type jobSummary struct {
	ID          string    `json:"id"`
	State       string    `json:"state"`
	BestParams  []float64 `json:"bestParams"`
	BestCost    float64   `json:"bestCost"`
	InitialCost float64   `json:"initialCost"`
	Evaluations int       `json:"evaluations"`
	Rounds      int       `json:"rounds"`
	Error       string    `json:"error"`
	Config      struct {
		Problem       string  `json:"problem"`
		Dim           int     `json:"dim"`
		Optimizer     string  `json:"optimizer"`
		NPT           int     `json:"npt"`
		InitialRadius float64 `json:"initialRadius"`
		FinalRadius   float64 `json:"finalRadius"`
		MaxCalls      int     `json:"maxCalls"`
	} `json:"config"`

	// Only present in the detailed status
	Elapsed              float64 `json:"elapsed"`
	EvaluationsPerSecond float64 `json:"evaluationsPerSecond"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return listJobs(out, fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}
	jobID := args[0]
	return getJobStatus(out, fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

func getJSON(url string, v interface{}) (int, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("server returned error: %s", string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func listJobs(out io.Writer, url string) error {
	var jobs []jobSummary
	if _, err := getJSON(url, &jobs); err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs found")
		return nil
	}

	fmt.Fprintf(out, "Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Fprintf(out, "Job ID: %s\n", job.ID)
		fmt.Fprintf(out, "  State: %s\n", job.State)
		fmt.Fprintf(out, "  Problem: %s (%d variables)\n", job.Config.Problem, job.Config.Dim)
		fmt.Fprintf(out, "  Optimizer: %s\n", job.Config.Optimizer)
		if job.Evaluations > 0 {
			fmt.Fprintf(out, "  Best Cost: %g after %d evaluations\n", job.BestCost, job.Evaluations)
		}
		fmt.Fprintln(out)
	}

	return nil
}

func getJobStatus(out io.Writer, url, jobID string) error {
	var status jobSummary
	code, err := getJSON(url, &status)
	if code == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Job: %s\n", status.ID)
	fmt.Fprintf(out, "State: %s\n", status.State)
	fmt.Fprintln(out)

	c := status.Config
	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Problem: %s\n", c.Problem)
	fmt.Fprintf(out, "  Variables: %d\n", c.Dim)
	fmt.Fprintf(out, "  Optimizer: %s\n", c.Optimizer)
	if c.NPT > 0 {
		fmt.Fprintf(out, "  Interpolation Conditions: %d\n", c.NPT)
	}
	fmt.Fprintf(out, "  Trust Region Radii: %g / %g\n", c.InitialRadius, c.FinalRadius)
	fmt.Fprintf(out, "  Max Calls: %d\n", c.MaxCalls)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Progress:")
	fmt.Fprintf(out, "  Evaluations: %d\n", status.Evaluations)
	if status.Evaluations > 0 {
		fmt.Fprintf(out, "  Best Cost: %g\n", status.BestCost)
	}
	if status.State == "completed" {
		fmt.Fprintf(out, "  Initial Cost: %g\n", status.InitialCost)
		fmt.Fprintf(out, "  Best Point: %v\n", status.BestParams)
		fmt.Fprintf(out, "  Rounds: %d\n", status.Rounds)
	}

	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Fprintf(out, "  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	if status.EvaluationsPerSecond > 0 {
		fmt.Fprintf(out, "  Throughput: %.0f evaluations/sec\n", status.EvaluationsPerSecond)
	}

	if status.Error != "" {
		fmt.Fprintf(out, "\nError: %s\n", status.Error)
	}

	return nil
}
