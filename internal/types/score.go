package types

// Confidence levels of the two-level yes/no classification scheme.
// Downstream thresholds are calibrated against these exact values.
const (
	ConfidenceYes     = 0.9
	ConfidenceNo      = 0.1
	ConfidenceNeutral = 0.5
)

// Score is a confidence produced by a remote judgment call. A degraded score
// carries the neutral value substituted for a failed or unparseable call, so a
// genuine neutral answer can still be told apart from a masked failure.
type Score struct {
	Value    float64
	Degraded bool
	Reason   string
}

// GenuineScore wraps a confidence that came from a successful call.
func GenuineScore(v float64) Score {
	return Score{Value: v}
}

// DegradedScore returns the neutral confidence along with why it was substituted.
func DegradedScore(reason string) Score {
	return Score{Value: ConfidenceNeutral, Degraded: true, Reason: reason}
}

// YesNoScore maps a parsed yes/no answer onto the two-level scheme.
func YesNoScore(yes bool) Score {
	if yes {
		return GenuineScore(ConfidenceYes)
	}
	return GenuineScore(ConfidenceNo)
}
