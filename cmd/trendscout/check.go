package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/abdulachik/trendscout/internal/config"
	"github.com/abdulachik/trendscout/internal/dedup"
	"github.com/abdulachik/trendscout/internal/output"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <name>",
	Short: "Check whether a trend name duplicates a stored trend",
	Long: `Run deduplication for a candidate name without storing anything.

By default the candidate is compared against trends stored within
TREND_WINDOW. Use --against to compare against ad hoc names instead;
each is scored and the best match is reported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

var checkAgainst []string

func init() {
	checkCmd.Flags().StringSliceVar(&checkAgainst, "against", nil, "compare against these names instead of the store")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	name := strings.Join(args, " ")
	out := cmd.OutOrStdout()

	if len(checkAgainst) > 0 {
		records := make([]dedup.Record, len(checkAgainst))
		for i, n := range checkAgainst {
			records[i] = dedup.Record{ID: int64(i + 1), Name: n}
		}

		t := output.NewTable(out, []string{"ID", "Name", "Score"})
		for _, r := range records {
			t.AddRow(fmt.Sprint(r.ID), r.Name, fmt.Sprintf("%.4f", dedup.Score(name, r.Name)))
		}
		if err := t.Render(); err != nil {
			return err
		}
		fmt.Fprintln(out)

		match, ok := dedup.FindDuplicate(name, records)
		printDecision(out, name, match, ok)
		return nil
	}

	ctx := cmd.Context()
	a, err := openApp(ctx, (*config.Config).Validate)
	if err != nil {
		return err
	}
	defer a.Close()

	match, ok, err := a.Aggregator.Check(ctx, name)
	if err != nil {
		return fmt.Errorf("check trend: %w", err)
	}
	printDecision(out, name, match, ok)
	return nil
}

func printDecision(out io.Writer, name string, match dedup.Match, ok bool) {
	switch {
	case !ok:
		fmt.Fprintf(out, "%q is new (threshold %.2f)\n", name, dedup.Threshold)
	case match.Exact:
		fmt.Fprintf(out, "%q is an exact match of #%d %q\n", name, match.Record.ID, match.Record.Name)
	default:
		fmt.Fprintf(out, "%q duplicates #%d %q (score %.4f)\n", name, match.Record.ID, match.Record.Name, match.Score)
	}
}
