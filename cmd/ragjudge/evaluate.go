package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/retrieval-judge/internal/metrics"
	"github.com/jonathan/retrieval-judge/internal/schemas"
	"github.com/jonathan/retrieval-judge/internal/types"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Judge the relevance of a ranked chunk list",
	Long:  "Judges each candidate chunk for a query with the similarity heuristic or the language model, computes precision@5, precision@10 and overall precision, and optionally persists the judgments.",
	RunE:  runEvaluate,
}

var (
	evaluateChunks  string
	evaluateQuery   string
	evaluateMethod  string
	evaluateOutput  string
	evaluatePersist bool
	evaluateCompare bool
)

func init() {
	evaluateCmd.Flags().StringVar(&evaluateChunks, "chunks", "", "Path to chunk set JSON file")
	evaluateCmd.Flags().StringVarP(&evaluateQuery, "query", "q", "", "Query to retrieve chunks for (requires database)")
	evaluateCmd.Flags().StringVarP(&evaluateMethod, "method", "m", string(types.MethodHeuristic), "Judging method: heuristic or model")
	evaluateCmd.Flags().StringVarP(&evaluateOutput, "out", "o", "", "Path to output evaluation JSON file (default stdout)")
	evaluateCmd.Flags().BoolVar(&evaluatePersist, "persist", false, "Persist judgments to the database")
	evaluateCmd.Flags().BoolVar(&evaluateCompare, "compare", false, "Compare heuristic and model judging for --query")

	rootCmd.AddCommand(evaluateCmd)
}

// evaluationReport is the evaluate command output.
type evaluationReport struct {
	QueryID      int64                  `json:"query_id,omitempty"`
	Query        string                 `json:"query"`
	Method       types.Method           `json:"method"`
	EvaluationID *uuid.UUID             `json:"evaluation_id,omitempty"`
	Judgments    []types.Judgment       `json:"judgments"`
	Metrics      types.AggregateMetrics `json:"metrics"`
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	method, err := parseMethod(evaluateMethod)
	if err != nil {
		return err
	}
	if evaluateCompare && evaluateQuery == "" {
		return fmt.Errorf("--compare requires --query")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, evaluatePersist || evaluateQuery != "")
	if err != nil {
		return err
	}
	defer a.close()

	if evaluateCompare {
		cmp, err := a.pipeline.CompareRetrievalMethods(ctx, evaluateQuery, true)
		if err != nil {
			return err
		}
		if a.cfg.Verbose {
			a.printer.PrintComparison(cmp.Heuristic.Metrics, &cmp.Model.Metrics)
		}
		return writeJSON(evaluateOutput, cmp)
	}

	set, err := a.candidates(ctx, evaluateChunks, evaluateQuery)
	if err != nil {
		return err
	}

	judgments, err := a.pipeline.EvaluateRankedList(ctx, set.Query, set.Chunks, method)
	if err != nil {
		return err
	}

	report := evaluationReport{
		QueryID:   set.QueryID,
		Query:     set.Query,
		Method:    method,
		Judgments: judgments,
		Metrics:   metrics.Aggregate(judgments),
	}

	if evaluatePersist {
		if report.QueryID == 0 {
			report.QueryID, err = a.database.CreateQuery(ctx, set.Query)
			if err != nil {
				return err
			}
		}
		id, err := a.pipeline.PersistRetrievalEvaluations(ctx, report.QueryID, judgments)
		if err != nil {
			return err
		}
		report.EvaluationID = &id
		for i := range report.Judgments {
			report.Judgments[i].QueryID = report.QueryID
		}
	}

	if a.cfg.Verbose {
		a.printer.PrintJudgments(set.Query, judgments)
		a.printer.PrintMetrics("", report.Metrics)
	}

	if err := writeJSON(evaluateOutput, report); err != nil {
		return err
	}
	if evaluateOutput != "" {
		// Output validation is a safety check, not a requirement
		if err := schemas.ValidateFile(schemas.EvaluationSchema, evaluateOutput); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Warning: Output validation failed: %v\n", err)
		}
		_, _ = fmt.Fprintf(os.Stdout, "Judged %d chunks (precision@5 %.3f) to %s\n", len(judgments), report.Metrics.PrecisionAt5, evaluateOutput)
	}
	return nil
}
