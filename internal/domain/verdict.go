package domain

import "sort"

// Decision is the outcome of evaluating a unit's quality checks.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionRetry  Decision = "retry"
	DecisionReject Decision = "reject"
)

// Rank orders decisions from best (0) to worst. Unknown decisions rank worst.
func (d Decision) Rank() int {
	switch d {
	case DecisionAccept:
		return 0
	case DecisionRetry:
		return 1
	default:
		return 2
	}
}

// QualityVerdict summarises a set of named pass/fail checks.
type QualityVerdict struct {
	ChecksRun    int      `json:"checks_run"`
	ChecksFailed int      `json:"checks_failed"`
	FailedNames  []string `json:"failed_names,omitempty"`
	Decision     Decision `json:"decision"`
}

// FailedCheckNames returns the sorted names of checks that did not pass.
func FailedCheckNames(checks map[string]bool) []string {
	var failed []string
	for name, passed := range checks {
		if !passed {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)
	return failed
}
