package main

import (
	"fmt"

	"github.com/abdulachik/trendscout/internal/config"
	"github.com/abdulachik/trendscout/internal/output"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch and store trends once",
	Long: `Run a single aggregation cycle: fetch trends from every enabled source,
deduplicate them against the stored window, and print today's trends.

When the X API rate limits the request, nothing is stored and the trends
already recorded today are printed instead.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, (*config.Config).ValidateForIngest)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Aggregator.FetchAndStore(ctx)
	if err != nil {
		return fmt.Errorf("ingest trends: %w", err)
	}

	out := cmd.OutOrStdout()
	if result.RateLimited {
		fmt.Fprintln(out, "Rate limited; showing trends already stored today.")
	} else {
		fmt.Fprintf(out, "Fetched %d trends: %d new, %d updated, %d fuzzy matches.\n",
			result.Fetched, len(result.New), result.Updated, result.Fuzzy)
	}
	fmt.Fprintln(out)

	if len(result.Today) == 0 {
		fmt.Fprintln(out, "No trends today.")
		return nil
	}
	return output.Trends(out, result.Today)
}
