package quality

import (
	"github.com/phrazzld/scry-quizgen/internal/domain"
)

// DefaultThreshold is the number of failed checks still considered fixable.
const DefaultThreshold = 1

// Gate is a pure policy over a set of named check outcomes.
//
// Zero failures accept. Between one and Threshold failures the unit is
// fixable and the verdict is Retry. More than Threshold failures reject.
// A Threshold of zero makes every failure a rejection.
type Gate struct {
	Threshold int
}

// NewGate returns a Gate; a negative threshold is replaced by DefaultThreshold.
func NewGate(threshold int) Gate {
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	return Gate{Threshold: threshold}
}

// Evaluate produces the verdict for one set of check outcomes.
func (g Gate) Evaluate(checks map[string]bool) domain.QualityVerdict {
	failed := domain.FailedCheckNames(checks)

	verdict := domain.QualityVerdict{
		ChecksRun:    len(checks),
		ChecksFailed: len(failed),
		FailedNames:  failed,
	}

	switch {
	case verdict.ChecksFailed == 0:
		verdict.Decision = domain.DecisionAccept
	case verdict.ChecksFailed <= g.Threshold:
		verdict.Decision = domain.DecisionRetry
	default:
		verdict.Decision = domain.DecisionReject
	}
	return verdict
}
