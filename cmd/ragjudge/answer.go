package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Generate and verify an answer from retrieved chunks",
	Long:  "Synthesizes an answer with document citations from candidate chunks, optionally decomposing the question into sub-questions first, then verifies the answer against the chunks.",
	RunE:  runAnswer,
}

var (
	answerChunks    string
	answerQuery     string
	answerOutput    string
	answerAmplify   bool
	answerAlternate bool
	answerSelect    int
)

func init() {
	answerCmd.Flags().StringVar(&answerChunks, "chunks", "", "Path to chunk set JSON file")
	answerCmd.Flags().StringVarP(&answerQuery, "query", "q", "", "Question to retrieve chunks for (requires database)")
	answerCmd.Flags().StringVarP(&answerOutput, "out", "o", "", "Path to output answer JSON file (default stdout)")
	answerCmd.Flags().BoolVar(&answerAmplify, "amplify", false, "Decompose the question into sub-questions when the context is substantial")
	answerCmd.Flags().BoolVar(&answerAlternate, "alternate-verification", false, "Verify with the alternate provider, falling back to the primary")
	answerCmd.Flags().IntVar(&answerSelect, "select", 0, "Keep only the N chunks the model rates most relevant (0 keeps all)")

	rootCmd.AddCommand(answerCmd)
}

func runAnswer(cmd *cobra.Command, _ []string) error {
	if answerSelect < 0 {
		return fmt.Errorf("--select must be non-negative")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, answerQuery != "" && answerChunks == "")
	if err != nil {
		return err
	}
	defer a.close()

	set, err := a.candidates(ctx, answerChunks, answerQuery)
	if err != nil {
		return err
	}

	chunks := set.Chunks
	if answerSelect > 0 {
		chunks, err = a.pipeline.SelectChunks(ctx, set.Query, chunks, answerSelect)
		if err != nil {
			return err
		}
	}

	result, err := a.pipeline.AnswerGeneration(ctx, set.Query, chunks, answerAmplify, answerAlternate)
	if err != nil {
		return err
	}

	if a.cfg.Verbose {
		a.printer.PrintAnswer(result)
	}
	if err := writeJSON(answerOutput, result); err != nil {
		return err
	}
	if answerOutput != "" {
		_, _ = fmt.Fprintf(os.Stdout, "Answer written to %s (verification %.2f via %s)\n", answerOutput, result.Verification.Score, result.Verification.Provider)
	}
	return nil
}
