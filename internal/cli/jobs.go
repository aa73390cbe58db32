package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect sync runs",
	Long: `List all sync runs or inspect a specific one by ID.

Examples:
  legtrack jobs           # List all runs
  legtrack jobs a1b2c3d4  # Show details for run a1b2c3d4`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func runJobs(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return showJob(cmd.Context(), args[0])
	}
	return listJobs(cmd.Context())
}

func listJobs(ctx context.Context) error {
	jobs, err := apiClient.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No sync runs found")
		return nil
	}

	fmt.Printf("%-10s %-10s %-12s %-14s %s\n", "ID", "SESSION", "STATUS", "PROGRESS", "STARTED")
	fmt.Println("------------------------------------------------------------------")

	for _, job := range jobs {
		progress := fmt.Sprintf("%d/%d", job.Processed, job.MaxBills)
		started := job.StartedAt.Format("Jan 02 15:04")
		fmt.Printf("%-10s %-10s %-12s %-14s %s\n", job.ID, job.SessionCode, job.Status, progress, started)
	}

	return nil
}

func showJob(ctx context.Context, id string) error {
	job, err := apiClient.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	printJob(job)
	return nil
}
