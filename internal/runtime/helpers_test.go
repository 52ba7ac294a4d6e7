package runtime_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/botflow/internal/runtime"
	"github.com/aretw0/botflow/pkg/adapters/memory"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/stretchr/testify/require"
)

const (
	testBot    = "bot-1"
	testSender = "user-1"
)

type fixture struct {
	repo     *memory.Repository
	gateway  *memory.Recorder
	journal  *memory.Journal
	exec     *runtime.Executor
	session  *domain.Session
	slept    []time.Duration
	steps    []*domain.StepEvent
	failures []*domain.DeliveryEvent
}

func newFixture(t *testing.T, opts ...runtime.ExecutorOption) *fixture {
	t.Helper()
	f := &fixture{
		repo:    memory.NewRepository(),
		gateway: memory.NewRecorder(),
		journal: memory.NewJournal(),
		session: domain.NewSession(testBot, testSender, time.Now()),
	}
	f.repo.AddBot(domain.Bot{ID: testBot, Name: "Test"})

	base := []runtime.ExecutorOption{
		runtime.WithMessageLogger(f.journal),
		runtime.WithSleep(func(ctx context.Context, d time.Duration) error {
			f.slept = append(f.slept, d)
			return ctx.Err()
		}),
		runtime.WithLifecycleHooks(domain.LifecycleHooks{
			OnStep:            func(_ context.Context, e *domain.StepEvent) { f.steps = append(f.steps, e) },
			OnDeliveryFailure: func(_ context.Context, e *domain.DeliveryEvent) { f.failures = append(f.failures, e) },
		}),
	}
	f.exec = runtime.NewExecutor(f.repo, f.gateway, append(base, opts...)...)
	return f
}

func (f *fixture) block(t *testing.T, id string, cards string, triggers ...string) {
	t.Helper()
	require.NoError(t, f.repo.SaveBlock(context.Background(), domain.BlockDocument{
		ID:        id,
		BotID:     testBot,
		Name:      id,
		Cards:     json.RawMessage(cards),
		Triggers:  triggers,
		IsEnabled: true,
	}))
}

func (f *fixture) flow(t *testing.T, doc domain.FlowDocument) {
	t.Helper()
	doc.BotID = testBot
	doc.IsActive = true
	require.NoError(t, f.repo.SaveFlow(context.Background(), doc))
}

func (f *fixture) turn(input string) *runtime.Turn {
	return runtime.NewTurn("turn", domain.Bot{ID: testBot}, f.session, input, 0, nil)
}

func (f *fixture) load(t *testing.T, id string) *domain.Block {
	t.Helper()
	blk, err := f.exec.LoadBlock(context.Background(), testBot, id)
	require.NoError(t, err)
	return blk
}

// texts returns and clears the text messages sent to the test sender.
func (f *fixture) texts() []string {
	var out []string
	for _, m := range f.gateway.Drain(testSender) {
		if tm, ok := m.(domain.TextMessage); ok {
			out = append(out, tm.Text)
		}
	}
	return out
}

// writer captures Commit calls.
type writer struct {
	blockCalls int
	nodeCalls  int
	blockID    *string
	nodeID     *string
	index      int
	vars       domain.Vars
}

func (w *writer) UpdateBlockPointer(_ context.Context, s *domain.Session, blockID *string, idx int, vars domain.Vars) error {
	w.blockCalls++
	w.blockID, w.index, w.vars = blockID, idx, vars.Clone()
	return nil
}

func (w *writer) UpdateNodePointer(_ context.Context, s *domain.Session, nodeID *string, vars domain.Vars) error {
	w.nodeCalls++
	w.nodeID, w.vars = nodeID, vars.Clone()
	return nil
}
