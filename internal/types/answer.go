package types

// SubquestionRecord pairs a decomposed sub-question with its answer.
// Records are ephemeral: consumed by synthesis and never persisted on their own.
type SubquestionRecord struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// VerificationProvider names which judge produced a verification.
type VerificationProvider string

const (
	// ProviderPrimary is the configured primary completion provider
	ProviderPrimary VerificationProvider = "primary"
	// ProviderAlternate is the optional alternate completion provider
	ProviderAlternate VerificationProvider = "alternate"
)

// SupportedThreshold is the score at or above which an answer counts as supported.
const SupportedThreshold = 0.5

// VerificationResult is the outcome of checking an answer against its context.
type VerificationResult struct {
	Supported bool                 `json:"supported"`
	Score     float64              `json:"score"`
	Provider  VerificationProvider `json:"provider"`
	Degraded  bool                 `json:"degraded,omitempty"`
}

// NewVerificationResult derives the supported flag from the score.
func NewVerificationResult(score Score, provider VerificationProvider) VerificationResult {
	return VerificationResult{
		Supported: score.Value >= SupportedThreshold,
		Score:     score.Value,
		Provider:  provider,
		Degraded:  score.Degraded,
	}
}

// AnswerResult is the output of answer generation.
type AnswerResult struct {
	Answer       string              `json:"answer"`
	Subquestions []SubquestionRecord `json:"subquestions"`
	Verification VerificationResult  `json:"verification"`
}
