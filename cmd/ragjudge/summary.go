package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/retrieval-judge/internal/db"
	"github.com/jonathan/retrieval-judge/internal/types"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize persisted retrieval evaluations",
	Long:  "Reports overall precision, precision@5, precision@10 and the number of persisted judgments, optionally for one query or judging method.",
	RunE:  runSummary,
}

var (
	summaryQueryID int64
	summaryMethod  string
	summaryList    bool
	summaryOutput  string
)

func init() {
	summaryCmd.Flags().Int64Var(&summaryQueryID, "query-id", 0, "Restrict to one query")
	summaryCmd.Flags().StringVarP(&summaryMethod, "method", "m", "", "Restrict to one judging method")
	summaryCmd.Flags().BoolVar(&summaryList, "list", false, "List the judgments of --query-id")
	summaryCmd.Flags().StringVarP(&summaryOutput, "out", "o", "", "Path to output JSON file (default stdout)")

	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	filters := db.SummaryFilters{QueryID: summaryQueryID}
	if summaryMethod != "" {
		method, err := parseMethod(summaryMethod)
		if err != nil {
			return err
		}
		filters.Method = method
	}
	if summaryList && summaryQueryID == 0 {
		return fmt.Errorf("--list requires --query-id")
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

	if summaryList {
		records, err := a.database.ListJudgments(ctx, summaryQueryID)
		if err != nil {
			return err
		}
		if a.cfg.Verbose {
			judgments := make([]types.Judgment, len(records))
			for i, r := range records {
				judgments[i] = r.Judgment
			}
			a.printer.PrintJudgments(fmt.Sprintf("query %d", summaryQueryID), judgments)
		}
		return writeJSON(summaryOutput, records)
	}

	summary, err := a.database.Summary(ctx, filters)
	if err != nil {
		return err
	}
	if a.cfg.Verbose {
		a.printer.PrintMetrics("EVALUATION SUMMARY", summary)
	}
	return writeJSON(summaryOutput, summary)
}
