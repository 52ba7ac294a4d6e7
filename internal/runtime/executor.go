package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/botflow/internal/compiler"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/ports"
)

// ErrStalePointer is returned when a session points at a block card that no longer
// exists or is no longer a userInput card.
var ErrStalePointer = errors.New("session points at missing content")

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor runs blocks and flows for a turn.
type Executor struct {
	repo     ports.ContentRepository
	parser   *compiler.Parser
	gateway  ports.MessagingGateway
	messages ports.MessageLogger
	hooks    domain.LifecycleHooks
	maxDelay time.Duration
	sleep    SleepFunc
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithMessageLogger records every delivered message.
func WithMessageLogger(l ports.MessageLogger) ExecutorOption {
	return func(x *Executor) {
		x.messages = l
	}
}

// WithLifecycleHooks registers step and delivery hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) ExecutorOption {
	return func(x *Executor) {
		x.hooks = hooks
	}
}

// WithMaxDelay caps a single delay card or node. Zero, the default, leaves delays uncapped.
func WithMaxDelay(d time.Duration) ExecutorOption {
	return func(x *Executor) {
		x.maxDelay = max(d, 0)
	}
}

// WithSleep replaces the context-aware sleep, mostly for tests.
func WithSleep(fn SleepFunc) ExecutorOption {
	return func(x *Executor) {
		if fn != nil {
			x.sleep = fn
		}
	}
}

// NewExecutor creates an executor over the content repository and gateway.
func NewExecutor(repo ports.ContentRepository, gateway ports.MessagingGateway, opts ...ExecutorOption) *Executor {
	x := &Executor{
		repo:     repo,
		parser:   compiler.NewParser(),
		gateway:  gateway,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// LoadBlock fetches and parses one block.
func (x *Executor) LoadBlock(ctx context.Context, botID, blockID string) (*domain.Block, error) {
	doc, err := x.repo.GetBlock(ctx, botID, blockID)
	if err != nil {
		return nil, fmt.Errorf("load block %s: %w", blockID, err)
	}
	return x.parser.ParseBlock(*doc)
}

// LoadFlows fetches and parses the active flows of a bot, in repository order.
func (x *Executor) LoadFlows(ctx context.Context, botID string) ([]*domain.Flow, error) {
	docs, err := x.repo.ListFlows(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("list flows of %s: %w", botID, err)
	}
	flows := make([]*domain.Flow, 0, len(docs))
	for _, doc := range docs {
		if !doc.IsActive {
			continue
		}
		flow, err := x.parser.ParseFlow(doc)
		if err != nil {
			return nil, err
		}
		flows = append(flows, flow)
	}
	return flows, nil
}

// RunBlock executes blk from its first card.
func (x *Executor) RunBlock(ctx context.Context, t *Turn, blk *domain.Block) error {
	t.visited[blk.ID] = true
	return x.drive(ctx, t, &blockProgram{x: x, block: blk})
}
