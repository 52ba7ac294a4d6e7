package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/botflow/internal/logging"
	"github.com/aretw0/botflow/pkg/domain"
)

const (
	// DefaultMailboxSize is the number of turns a session may queue behind the running one.
	DefaultMailboxSize = 64
	// DefaultIdleTimeout is how long an actor waits for work before it exits.
	DefaultIdleTimeout = 5 * time.Minute
)

// Executor runs a single turn. *botflow.Engine satisfies it.
type Executor interface {
	ExecuteFlow(ctx context.Context, bot domain.Bot, senderID, message, platform string) domain.Result
}

// Request is one inbound message.
type Request struct {
	Bot      domain.Bot
	SenderID string
	Message  string
	Platform string
}

func (r Request) key() string {
	return domain.SessionKey(r.Bot.ID, r.SenderID)
}

type job struct {
	ctx   context.Context
	req   Request
	reply chan domain.Result
}

// Dispatcher runs turns through one goroutine per (bot, sender). Turns of the same
// session execute one at a time in arrival order; different sessions run in parallel.
type Dispatcher struct {
	exec    Executor
	mailbox int
	idle    time.Duration
	logger  *slog.Logger

	// base is the context of posted turns. It is canceled only when Close gives up.
	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	actors map[string]*actor
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMailboxSize sets the per-session queue length (default DefaultMailboxSize).
func WithMailboxSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.mailbox = n
		}
	}
}

// WithIdleTimeout sets how long an idle actor lives (default DefaultIdleTimeout).
func WithIdleTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.idle = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// New creates a Dispatcher in front of exec.
func New(exec Executor, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		exec:    exec,
		mailbox: DefaultMailboxSize,
		idle:    DefaultIdleTimeout,
		logger:  logging.NewNop(),
		actors:  make(map[string]*actor),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logging.NewNop()
	}
	d.base, d.cancel = context.WithCancel(context.Background())
	return d
}

// Submit queues req and waits for its result. When ctx ends first, Submit returns
// ctx.Err() and the queued turn runs with the canceled context.
func (d *Dispatcher) Submit(ctx context.Context, req Request) (domain.Result, error) {
	reply := make(chan domain.Result, 1)
	if err := d.enqueue(job{ctx: ctx, req: req, reply: reply}); err != nil {
		return domain.Result{}, err
	}

	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return domain.Result{}, ctx.Err()
	}
}

// Post queues req without waiting for the result.
func (d *Dispatcher) Post(req Request) error {
	return d.enqueue(job{ctx: d.base, req: req})
}

// Active returns the number of live session actors.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.actors)
}

func (d *Dispatcher) enqueue(j job) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return domain.ErrDispatcherClosed
	}

	key := j.req.key()
	a, ok := d.actors[key]
	if !ok {
		a = &actor{key: key, inbox: make(chan job, d.mailbox)}
		d.actors[key] = a
		d.wg.Add(1)
		go d.run(a)
	}

	select {
	case a.inbox <- j:
		return nil
	default:
		d.logger.Warn("session mailbox full", "session_id", key, "size", d.mailbox)
		return domain.ErrActorBusy
	}
}

// Close stops accepting work and waits until every queued turn has run. If ctx ends
// first, in-flight posted turns are canceled and ctx.Err() is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, a := range d.actors {
			close(a.inbox)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}

type actor struct {
	key   string
	inbox chan job
}

func (d *Dispatcher) run(a *actor) {
	defer d.wg.Done()

	timer := time.NewTimer(d.idle)
	defer timer.Stop()

	for {
		select {
		case j, ok := <-a.inbox:
			if !ok {
				return
			}
			res := d.exec.ExecuteFlow(j.ctx, j.req.Bot, j.req.SenderID, j.req.Message, j.req.Platform)
			if j.reply != nil {
				j.reply <- res
			} else if !res.Success {
				d.logger.Warn("posted turn failed", "session_id", a.key, "err", res.Error)
			}

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(d.idle)

		case <-timer.C:
			if d.retire(a) {
				return
			}
			timer.Reset(d.idle)
		}
	}
}

// retire removes an idle actor unless work arrived meanwhile or the dispatcher is
// closing, in which case the closed inbox ends the loop instead.
func (d *Dispatcher) retire(a *actor) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || len(a.inbox) > 0 {
		return false
	}
	delete(d.actors, a.key)
	d.logger.Debug("session actor retired", "session_id", a.key)
	return true
}
