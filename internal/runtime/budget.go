package runtime

import (
	"fmt"

	"github.com/aretw0/botflow/pkg/domain"
)

// DefaultStepLimit bounds the number of interpreter steps in a single turn.
const DefaultStepLimit = 100

// StepBudget counts interpreter steps shared by every program run during a turn.
type StepBudget struct {
	limit int
	used  int
}

// NewStepBudget creates a budget. A non-positive limit falls back to DefaultStepLimit.
func NewStepBudget(limit int) *StepBudget {
	if limit <= 0 {
		limit = DefaultStepLimit
	}
	return &StepBudget{limit: limit}
}

// Spend consumes one step at location and fails once the limit is exceeded.
func (b *StepBudget) Spend(location string) error {
	b.used++
	if b.used > b.limit {
		return &domain.ExecutionLimitError{
			Limit:  b.limit,
			Reason: fmt.Sprintf("still running at %s", location),
		}
	}
	return nil
}

// Used returns the number of steps consumed.
func (b *StepBudget) Used() int { return b.used }
