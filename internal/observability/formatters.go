// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/jonathan/retrieval-judge/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
	// previewChars bounds chunk and answer previews
	previewChars = 40
)

var (
	relevantLabel   = color.New(color.FgGreen, color.Bold).SprintFunc()
	irrelevantLabel = color.New(color.FgRed).SprintFunc()
	degradedLabel   = color.New(color.FgYellow).SprintFunc()
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s\n", line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

// PrintJudgments outputs one line per judgment in rank order.
func (p *Printer) PrintJudgments(query string, judgments []types.Judgment) {
	if len(judgments) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Query:  %s\n", preview(query, boxWidth-12)))
	sb.WriteString(fmt.Sprintf("Method: %s\n\n", judgments[0].Method))

	count := min(len(judgments), maxItemsToShow)
	for i := 0; i < count; i++ {
		j := judgments[i]
		label := irrelevantLabel("not relevant")
		if j.IsRelevant() {
			label = relevantLabel("RELEVANT")
		}
		sb.WriteString(fmt.Sprintf("#%-2d chunk %-6d %s", j.RankPosition, j.ChunkID, label))
		if j.Confidence != nil {
			sb.WriteString(fmt.Sprintf(" (conf: %.2f)", *j.Confidence))
		}
		if j.Degraded {
			sb.WriteString(" " + degradedLabel("degraded"))
		}
		sb.WriteString("\n")
	}
	if len(judgments) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(judgments)-maxItemsToShow))
	}

	p.printBox("RELEVANCE JUDGMENTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMetrics outputs ranking-quality metrics.
func (p *Printer) PrintMetrics(title string, m types.AggregateMetrics) {
	if title == "" {
		title = "RANKING METRICS"
	}
	content := fmt.Sprintf("Precision@5:       %.3f\nPrecision@10:      %.3f\nOverall precision: %.3f\nTotal judgments:   %d",
		m.PrecisionAt5, m.PrecisionAt10, m.OverallPrecision, m.TotalJudgments)
	p.printBox(title, content)
}

// PrintAnswer outputs the answer, any sub-questions and the verification outcome.
func (p *Printer) PrintAnswer(result *types.AnswerResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	if len(result.Subquestions) > 0 {
		sb.WriteString(fmt.Sprintf("Sub-questions (%d):\n", len(result.Subquestions)))
		for i, r := range result.Subquestions {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, preview(r.Question, boxWidth-8)))
			sb.WriteString(fmt.Sprintf("     → %s\n", preview(r.Answer, boxWidth-10)))
		}
		sb.WriteString("\n")
	}

	v := result.Verification
	status := irrelevantLabel("unsupported")
	if v.Supported {
		status = relevantLabel("supported")
	}
	sb.WriteString(fmt.Sprintf("Verification: %s (score %.2f, %s)", status, v.Score, v.Provider))
	if v.Degraded {
		sb.WriteString(" " + degradedLabel("degraded"))
	}
	sb.WriteString("\n\n")
	sb.WriteString(result.Answer)

	p.printBox("ANSWER", sb.String())
}

// PrintComparison outputs heuristic and, when present, model metrics side by side.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintComparison(heuristic types.AggregateMetrics, model *types.AggregateMetrics) {
	p.PrintMetrics("HEURISTIC JUDGING", heuristic)
	if model != nil {
		p.PrintMetrics("MODEL JUDGING", *model)
		fmt.Fprintf(p.out, "Δ precision@5: %+.3f\n", model.PrecisionAt5-heuristic.PrecisionAt5)
	}
}
