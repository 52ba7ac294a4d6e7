package botflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/aretw0/botflow/internal/logging"
	"github.com/aretw0/botflow/internal/runtime"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/ports"
	"github.com/aretw0/botflow/pkg/runner"
	"github.com/aretw0/botflow/pkg/session"
	"github.com/oklog/ulid/v2"
)

// User-facing replies sent when a turn fails.
const (
	DefaultApologyMessage       = "Sorry, something went wrong on our side. Please try again in a moment."
	DefaultNotConfiguredMessage = "This bot is not configured yet."
)

// Engine executes one inbound message at a time against the content of a bot.
type Engine struct {
	repo     ports.ContentRepository
	sessions *session.Manager
	gateway  ports.MessagingGateway
	contacts ports.ContactTracker
	messages ports.MessageLogger
	hooks    domain.LifecycleHooks
	logger   *slog.Logger

	stepLimit     int
	maxDelay      time.Duration
	bootstrap     bool
	apology       string
	notConfigured string
	sleep         runtime.SleepFunc

	exec     *runtime.Executor
	resolver *runtime.TriggerResolver
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithContactTracker records every sender that writes to a bot.
func WithContactTracker(t ports.ContactTracker) Option {
	return func(e *Engine) {
		e.contacts = t
	}
}

// WithMessageLogger records inbound and outbound messages.
func WithMessageLogger(l ports.MessageLogger) Option {
	return func(e *Engine) {
		e.messages = l
	}
}

// WithStepLimit caps interpreter steps per turn (default runtime.DefaultStepLimit).
func WithStepLimit(n int) Option {
	return func(e *Engine) {
		e.stepLimit = n
	}
}

// WithMaxDelay caps a single delay card or node. Zero leaves delays as authored.
func WithMaxDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.maxDelay = d
	}
}

// WithDefaultAnswerBootstrap controls whether a bot without a default-answer block gets
// the starter blocks created on first use. Enabled by default.
func WithDefaultAnswerBootstrap(enabled bool) Option {
	return func(e *Engine) {
		e.bootstrap = enabled
	}
}

// WithApologyMessage replaces DefaultApologyMessage.
func WithApologyMessage(msg string) Option {
	return func(e *Engine) {
		if msg != "" {
			e.apology = msg
		}
	}
}

// WithNotConfiguredMessage replaces DefaultNotConfiguredMessage.
func WithNotConfiguredMessage(msg string) Option {
	return func(e *Engine) {
		if msg != "" {
			e.notConfigured = msg
		}
	}
}

// WithSleep replaces the wait used by delay cards, mostly for tests.
func WithSleep(fn runtime.SleepFunc) Option {
	return func(e *Engine) {
		e.sleep = fn
	}
}

// New creates an Engine over a content repository, a session manager and a gateway.
func New(repo ports.ContentRepository, sessions *session.Manager, gateway ports.MessagingGateway, opts ...Option) *Engine {
	e := &Engine{
		repo:          repo,
		sessions:      sessions,
		gateway:       gateway,
		logger:        logging.NewNop(),
		bootstrap:     true,
		apology:       DefaultApologyMessage,
		notConfigured: DefaultNotConfiguredMessage,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}

	e.exec = runtime.NewExecutor(repo, gateway,
		runtime.WithMessageLogger(e.messages),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithMaxDelay(e.maxDelay),
		runtime.WithSleep(e.sleep),
	)
	e.resolver = runtime.NewTriggerResolver(repo,
		runtime.WithBootstrap(e.bootstrap),
		runtime.WithResolverLogger(e.logger),
	)
	return e
}

// Sessions returns the session manager the engine writes through.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// ExecuteFlow processes one inbound message from senderID to bot and reports whether
// the turn succeeded. It never panics and never returns an error: failures are logged,
// answered with an apology (or a "not configured" notice) and reflected in the Result.
func (e *Engine) ExecuteFlow(ctx context.Context, bot domain.Bot, senderID, message, platform string) (res domain.Result) {
	turnID := ulid.Make().String()
	logger := e.logger.With("bot_id", bot.ID, "sender_id", senderID, "turn_id", turnID)
	base := domain.EventBase{Timestamp: time.Now(), TurnID: turnID, BotID: bot.ID, SenderID: senderID}
	if e.hooks.OnTurnStart != nil {
		e.hooks.OnTurnStart(ctx, &domain.TurnEvent{EventBase: base})
	}

	var (
		route domain.Route
		err   error
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during turn: %v", r)
			logger.Error("turn panicked", "panic", r, "stack", string(debug.Stack()))
		}
		if err != nil {
			res = e.fail(ctx, bot, senderID, logger, err)
		} else {
			res = domain.Result{Success: true}
		}
		if e.hooks.OnTurnEnd != nil {
			e.hooks.OnTurnEnd(ctx, &domain.TurnEvent{
				EventBase: base,
				Route:     route,
				Err:       err,
				Duration:  time.Since(base.Timestamp),
			})
		}
	}()

	route, err = e.execute(ctx, bot, senderID, message, platform, turnID, logger)
	return res
}

func (e *Engine) execute(ctx context.Context, bot domain.Bot, senderID, message, platform, turnID string, logger *slog.Logger) (domain.Route, error) {
	input, err := runner.SanitizeInput(message)
	if err != nil {
		return "", fmt.Errorf("rejected input: %w", err)
	}

	var route domain.Route
	err = e.sessions.WithLock(ctx, domain.SessionKey(bot.ID, senderID), func(ctx context.Context) error {
		s, err := e.sessions.GetOrCreate(ctx, bot.ID, senderID)
		if err != nil {
			return err
		}
		e.track(ctx, logger, bot, senderID, platform, input)

		t := runtime.NewTurn(turnID, bot, s, input, e.stepLimit, logger)
		route, err = e.route(ctx, t)
		if err != nil {
			return err
		}
		logger.Debug("turn routed", "route", route, "steps", t.Steps())
		return t.Commit(ctx, e.sessions)
	})
	return route, err
}

// route picks the interpreter for the turn: an open block first, then a triggered
// block, then the default answer, then legacy flows. The default answer is skipped
// while a legacy flow waits for input so the flow can resume.
func (e *Engine) route(ctx context.Context, t *runtime.Turn) (domain.Route, error) {
	if t.Session.InBlock() {
		err := e.exec.ResumeBlock(ctx, t)
		if !errors.Is(err, runtime.ErrStalePointer) {
			return domain.RouteResume, err
		}
		t.Logger.Warn("session pointer is stale, starting over", "err", err)
		t.Session.Reset()
	}

	blk, err := e.resolver.MatchBlock(ctx, t.Bot.ID, t.Input)
	if err != nil {
		return domain.RouteTrigger, err
	}
	if blk != nil {
		if t.Session.InFlow() {
			// A trigger abandons the legacy flow along with the answers it collected.
			t.Session.Reset()
		}
		return domain.RouteTrigger, e.exec.RunBlock(ctx, t, blk)
	}

	if !t.Session.InFlow() {
		blk, err = e.resolver.DefaultAnswer(ctx, t.Bot.ID)
		if err != nil {
			return domain.RouteDefaultAnswer, err
		}
		if blk != nil {
			return domain.RouteDefaultAnswer, e.exec.RunBlock(ctx, t, blk)
		}
	}

	return domain.RouteGraph, e.exec.RunGraph(ctx, t)
}

// track records the contact and the inbound message. Failures are logged only.
func (e *Engine) track(ctx context.Context, logger *slog.Logger, bot domain.Bot, senderID, platform, input string) {
	if platform == "" {
		platform = bot.Platform
	}
	if e.contacts != nil {
		err := e.contacts.UpsertContact(ctx, domain.Contact{BotID: bot.ID, SenderID: senderID, Platform: platform})
		if err != nil {
			logger.Warn("contact not tracked", "err", analyticsError("upsert_contact", err))
		}
	}
	if e.messages != nil {
		if err := e.messages.LogMessage(ctx, bot.ID, senderID, input, domain.DirectionInbound); err != nil {
			logger.Warn("inbound message not logged", "err", analyticsError("log_message", err))
		}
	}
}

func analyticsError(op string, err error) error {
	var ae *domain.AnalyticsError
	if errors.As(err, &ae) {
		return err
	}
	return &domain.AnalyticsError{Op: op, Err: err}
}

// fail answers the sender and converts err into a failed Result.
func (e *Engine) fail(ctx context.Context, bot domain.Bot, senderID string, logger *slog.Logger, err error) domain.Result {
	reply := e.apology
	var cfg *domain.ConfigurationError
	if errors.As(err, &cfg) {
		reply = e.notConfigured
		logger.Warn("bot is not configured", "err", err)
	} else {
		logger.Error("turn failed", "err", err)
	}

	// A canceled turn has nobody left to apologize to.
	if ctx.Err() == nil {
		if sendErr := e.gateway.SendText(ctx, bot, senderID, reply); sendErr != nil {
			logger.Warn("apology not delivered", "err", sendErr)
		}
	}
	return domain.Result{Success: false, Error: err.Error()}
}
