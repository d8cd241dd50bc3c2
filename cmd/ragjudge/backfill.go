package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/retrieval-judge/internal/pipeline"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Evaluate retrieval for recent cached queries",
	Long:  "Re-runs retrieval for the most recent cached queries and persists heuristic judgments, and model judgments when requested.",
	RunE:  runBackfill,
}

var (
	backfillLimit        int
	backfillIncludeModel bool
)

func init() {
	backfillCmd.Flags().IntVarP(&backfillLimit, "limit", "n", 10, "Number of recent queries to evaluate")
	backfillCmd.Flags().BoolVar(&backfillIncludeModel, "include-model", false, "Also persist model judgments")

	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	if backfillLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	rep, err := a.pipeline.Backfill(ctx, pipeline.BackfillOptions{Limit: backfillLimit, IncludeModel: backfillIncludeModel})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Evaluated %d queries: %d batches, %d judgments persisted, %d skipped\n",
		rep.Queries, rep.Batches, rep.Judgments, rep.Skipped)
	return nil
}
