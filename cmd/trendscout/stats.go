package main

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/abdulachik/trendscout/internal/config"
	"github.com/abdulachik/trendscout/internal/output"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Long:  `Display trend counts by category and the outcome of the last ingest run.`,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, (*config.Config).Validate)
	if err != nil {
		return err
	}
	defer a.Close()

	total, err := a.Store.CountTrends(ctx)
	if err != nil {
		return fmt.Errorf("count trends: %w", err)
	}

	byCategory, err := a.Store.CountTrendsByCategory(ctx)
	if err != nil {
		return fmt.Errorf("count trends by category: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== trendscout Statistics ===")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Database: %s\n", a.Config.DatabasePath)
	fmt.Fprintf(out, "Total trends: %d\n", total)
	fmt.Fprintln(out)

	if len(byCategory) > 0 {
		if err := output.Categories(out, byCategory); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	run, err := a.Store.GetLatestIngestRun(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		fmt.Fprintln(out, "No ingest runs yet.")
		return nil
	case err != nil:
		return fmt.Errorf("get latest ingest run: %w", err)
	}

	fmt.Fprintln(out, "Last ingest run:")
	return output.IngestRun(out, run)
}
