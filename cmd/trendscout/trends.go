package main

import (
	"fmt"
	"time"

	"github.com/abdulachik/trendscout/internal/config"
	"github.com/abdulachik/trendscout/internal/output"
	"github.com/spf13/cobra"
)

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "List stored trends",
	Long: `List trends created within --since, newest first. Only trends in the
allowed categories are shown unless --all is set.`,
	RunE: runTrends,
}

var (
	trendsAll   bool
	trendsSince time.Duration
)

func init() {
	trendsCmd.Flags().BoolVar(&trendsAll, "all", false, "include trends outside the allowed categories")
	trendsCmd.Flags().DurationVar(&trendsSince, "since", 24*time.Hour, "how far back to list")
	rootCmd.AddCommand(trendsCmd)
}

func runTrends(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, (*config.Config).Validate)
	if err != nil {
		return err
	}
	defer a.Close()

	trends, err := a.Store.ListTrendsCreatedSince(ctx, time.Now().Add(-trendsSince))
	if err != nil {
		return fmt.Errorf("list trends: %w", err)
	}

	if !trendsAll {
		trends = a.Filter.FilterTrends(trends)
	}

	out := cmd.OutOrStdout()
	if len(trends) == 0 {
		fmt.Fprintln(out, "No trends found.")
		return nil
	}
	return output.Trends(out, trends)
}
