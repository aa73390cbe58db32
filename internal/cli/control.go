package cli

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/legtrack/internal/models"
	"github.com/spf13/cobra"
)

var pauseCmd = &cobra.Command{
	Use:   "pause [job-id]",
	Short: "Pause the running sync",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runControl(cmd.Context(), apiClient.Pause, args, "Paused")
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume [job-id]",
	Short: "Resume a paused sync",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runControl(cmd.Context(), apiClient.Resume, args, "Resumed")
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop [job-id]",
	Short: "Stop a sync run",
	Long: `Stop a running or paused sync. A stopped run is final and
cannot be resumed; start a new sync to pick up remaining bills.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runControl(cmd.Context(), apiClient.Stop, args, "Stopped")
	},
}

func runControl(ctx context.Context, op func(context.Context, string) (*models.SyncJob, error), args []string, verb string) error {
	var jobID string
	if len(args) == 1 {
		jobID = args[0]
	}

	job, err := op(ctx, jobID)
	if err != nil {
		return err
	}

	fmt.Printf("%s job %s (status: %s, %d/%d bills)\n",
		verb, job.ID, job.Status, job.Processed, job.MaxBills)
	return nil
}
