package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/raphaelgruber/legtrack/internal/models"
	"github.com/raphaelgruber/legtrack/internal/service"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	syncMaxBills   int
	syncBillTypes  []string
	syncNoProgress bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Trigger a bill synchronization run",
	Long: `Trigger a bill synchronization run on the server and wait for it to
finish. On a terminal a live progress display is shown; otherwise the
summary is printed when the run completes.

Examples:
  legtrack sync
  legtrack sync --max-bills 50
  legtrack sync --bill-types HB`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().IntVar(&syncMaxBills, "max-bills", 0, "cap on bills processed this run (default from settings)")
	syncCmd.Flags().StringSliceVar(&syncBillTypes, "bill-types", nil, "bill types to sync, e.g. HB,SB (default from settings)")
	syncCmd.Flags().BoolVar(&syncNoProgress, "no-progress", false, "disable the live progress display")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	opts := service.TriggerOptions{
		MaxBills:  syncMaxBills,
		BillTypes: normalizeTypes(syncBillTypes),
	}

	interactive := !syncNoProgress && term.IsTerminal(int(os.Stdout.Fd()))
	if !interactive {
		summary, err := apiClient.TriggerSync(ctx, opts)
		if err != nil {
			return err
		}
		printSummary(summary)
		return nil
	}

	// Run the blocking trigger in the background and poll status for the
	// progress display.
	type triggerResult struct {
		summary *models.SyncSummary
		err     error
	}
	resultCh := make(chan triggerResult, 1)
	go func() {
		summary, err := apiClient.TriggerSync(ctx, opts)
		resultCh <- triggerResult{summary: summary, err: err}
	}()

	if err := RunSyncProgress(apiClient); err != nil {
		return err
	}

	res := <-resultCh
	if res.err != nil {
		return res.err
	}
	printSummary(res.summary)
	return nil
}

func printSummary(s *models.SyncSummary) {
	fmt.Printf("Sync %s (%s)\n", strings.ToLower(string(s.Status)), s.JobID)
	fmt.Printf("  Session:  %s\n", s.SessionCode)
	fmt.Printf("  Types:    %s\n", strings.Join(s.BillTypes, ", "))
	fmt.Printf("  Fetched:  %d\n", s.Fetched)
	fmt.Printf("  Created:  %d\n", s.Created)
	fmt.Printf("  Updated:  %d\n", s.Updated)
	fmt.Printf("  Errored:  %d\n", s.Errored)
	fmt.Printf("  Duration: %s\n", s.Duration)
}

func normalizeTypes(types []string) []string {
	var out []string
	for _, t := range types {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
