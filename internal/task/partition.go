package task

import (
	"github.com/phrazzld/scry-quizgen/internal/domain"
)

// Lane is one credential's share of a run.
type Lane struct {
	Index      int
	Credential string
	Units      []domain.WorkUnit
}

// Partition deals units round-robin over n lanes in input order: unit i goes
// to lane i mod n. The assignment depends only on the input order and n.
func Partition(units []domain.WorkUnit, n int) [][]domain.WorkUnit {
	if n <= 0 {
		return nil
	}
	lanes := make([][]domain.WorkUnit, n)
	for i, u := range units {
		lanes[i%n] = append(lanes[i%n], u)
	}
	return lanes
}
