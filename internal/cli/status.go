package cli

import (
	"fmt"
	"time"

	"github.com/raphaelgruber/legtrack/internal/models"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the most recent sync run",
	Long: `Show the active sync run, or the most recent one if nothing is running.

Examples:
  legtrack status`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	job, err := apiClient.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch status: %w", err)
	}
	if job == nil {
		fmt.Println("No sync runs yet")
		return nil
	}

	printJob(job)
	return nil
}

func printJob(job *models.SyncJob) {
	fmt.Printf("Job: %s\n", job.ID)
	fmt.Printf("  Status: %s\n", job.Status)
	fmt.Printf("  Session: %s\n", job.SessionCode)
	fmt.Printf("  Types: %v (done: %d/%d)\n", job.BillTypes, len(job.CompletedTypes), len(job.BillTypes))
	fmt.Printf("  Processed: %d/%d\n", job.Processed, job.MaxBills)
	fmt.Printf("  Created: %d  Updated: %d  Errored: %d\n", job.Created, job.Updated, job.Errored)
	fmt.Printf("  Started: %s\n", job.StartedAt.Format(time.RFC3339))
	if job.CompletedAt != nil {
		fmt.Printf("  Completed: %s\n", job.CompletedAt.Format(time.RFC3339))
		fmt.Printf("  Duration: %s\n", job.CompletedAt.Sub(job.StartedAt).Round(time.Second))
	}
	if job.Error != "" {
		fmt.Printf("  Error: %s\n", job.Error)
	}
}
