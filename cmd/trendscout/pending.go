package main

import (
	"fmt"

	"github.com/abdulachik/trendscout/internal/config"
	"github.com/abdulachik/trendscout/internal/output"
	"github.com/spf13/cobra"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List trends not yet handed to a notifier",
	Long: `List stored trends in the allowed categories that have not been marked
as notified. With --ack the listed trends are marked notified.`,
	RunE: runPending,
}

const (
	defaultPendingLimit = 50
	maxPendingLimit     = 500
)

var (
	pendingAck   bool
	pendingLimit int
)

func init() {
	pendingCmd.Flags().BoolVar(&pendingAck, "ack", false, "mark the listed trends as notified")
	pendingCmd.Flags().IntVar(&pendingLimit, "limit", defaultPendingLimit, "maximum trends to list (1-500)")
	rootCmd.AddCommand(pendingCmd)
}

func runPending(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	limit, err := checkPendingLimit(pendingLimit)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, (*config.Config).Validate)
	if err != nil {
		return err
	}
	defer a.Close()

	trends, err := a.Aggregator.Pending(ctx, limit)
	if err != nil {
		return fmt.Errorf("list pending trends: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(trends) == 0 {
		fmt.Fprintln(out, "No pending trends.")
		return nil
	}

	if err := output.Trends(out, trends); err != nil {
		return err
	}

	if !pendingAck {
		return nil
	}

	ids := make([]int64, len(trends))
	for i, t := range trends {
		ids[i] = t.ID
	}

	n, err := a.Aggregator.Ack(ctx, ids)
	if err != nil {
		return fmt.Errorf("acknowledge trends: %w", err)
	}
	fmt.Fprintf(out, "\nMarked %d trends as notified.\n", n)
	return nil
}

// checkPendingLimit rejects non-positive limits and caps the rest.
func checkPendingLimit(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("--limit must be a positive integer, got %d", n)
	}
	return min(n, maxPendingLimit), nil
}
