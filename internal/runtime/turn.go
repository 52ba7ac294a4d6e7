package runtime

import (
	"context"
	"log/slog"

	"github.com/aretw0/botflow/internal/logging"
	"github.com/aretw0/botflow/pkg/domain"
)

// SessionWriter persists the pause point reached by a turn.
type SessionWriter interface {
	UpdateBlockPointer(ctx context.Context, s *domain.Session, blockID *string, cardIndex int, vars domain.Vars) error
	UpdateNodePointer(ctx context.Context, s *domain.Session, nodeID *string, vars domain.Vars) error
}

// Turn carries the state of one inbound message through the interpreters.
// Programs mutate Session in memory; Commit writes the final pause point once.
type Turn struct {
	ID      string
	Bot     domain.Bot
	Session *domain.Session
	Input   string
	Logger  *slog.Logger

	budget  *StepBudget
	visited map[string]bool
	pending *pointerUpdate
}

type pointerUpdate struct {
	graph bool
	id    *string
	index int
}

// NewTurn prepares a turn. stepLimit <= 0 selects DefaultStepLimit.
func NewTurn(id string, bot domain.Bot, s *domain.Session, input string, stepLimit int, logger *slog.Logger) *Turn {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Turn{
		ID:      id,
		Bot:     bot,
		Session: s,
		Input:   input,
		Logger:  logger,
		budget:  NewStepBudget(stepLimit),
		visited: make(map[string]bool),
	}
}

// Steps returns the number of interpreter steps consumed so far.
func (t *Turn) Steps() int { return t.budget.Used() }

// Dirty reports whether a program reached a pause point or finished.
func (t *Turn) Dirty() bool { return t.pending != nil }

func (t *Turn) pointAtBlock(blockID *string, index int) {
	t.Session.SetBlockPointer(blockID, index)
	t.pending = &pointerUpdate{id: t.Session.CurrentBlockID, index: t.Session.CurrentCardIndex}
}

func (t *Turn) pointAtNode(nodeID *string) {
	t.Session.SetNodePointer(nodeID)
	t.pending = &pointerUpdate{graph: true, id: t.Session.CurrentNodeID}
}

// Commit persists the pause point through w. A turn that never reached one writes nothing.
func (t *Turn) Commit(ctx context.Context, w SessionWriter) error {
	if t.pending == nil {
		return nil
	}
	if t.pending.graph {
		return w.UpdateNodePointer(ctx, t.Session, t.pending.id, t.Session.Context)
	}
	return w.UpdateBlockPointer(ctx, t.Session, t.pending.id, t.pending.index, t.Session.Context)
}
