// Package answering turns retrieved chunks into a final answer: it builds the
// shared document context, optionally decomposes the question into
// sub-questions, answers them concurrently and synthesizes the result.
package answering

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/retrieval-judge/internal/types"
)

// DefaultSubstantialContextChars is the context length above which
// decomposition is worth attempting.
const DefaultSubstantialContextChars = 500

// BuildContext labels each chunk "Document N" (1-based) and joins them with a
// blank line.
func BuildContext(chunks []types.Chunk) string {
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		parts = append(parts, fmt.Sprintf("Document %d: %s", i+1, chunk.TextContent))
	}
	return strings.Join(parts, "\n\n")
}

// IsSubstantial reports whether context is longer than limit characters.
// A non-positive limit falls back to DefaultSubstantialContextChars.
func IsSubstantial(context string, limit int) bool {
	if limit <= 0 {
		limit = DefaultSubstantialContextChars
	}
	return utf8.RuneCountInString(context) > limit
}

// formatSubquestions renders the decomposed analysis block for synthesis.
// It returns the empty string when there are no records.
func formatSubquestions(records []types.SubquestionRecord) string {
	if len(records) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(records))
	for _, r := range records {
		pairs = append(pairs, fmt.Sprintf("Sub-question: %s\nAnswer: %s", r.Question, r.Answer))
	}
	return "\n\nDecomposed Analysis:\n" + strings.Join(pairs, "\n\n") + "\n\n"
}
