package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/botflow"
	"github.com/aretw0/botflow/internal/adapters/file"
	"github.com/aretw0/botflow/internal/config"
	"github.com/aretw0/botflow/internal/logging"
	"github.com/aretw0/botflow/pkg/adapters/memory"
	"github.com/aretw0/botflow/pkg/adapters/redis"
	"github.com/aretw0/botflow/pkg/adapters/sqlite"
	"github.com/aretw0/botflow/pkg/adapters/webhook"
	"github.com/aretw0/botflow/pkg/dispatch"
	"github.com/aretw0/botflow/pkg/observability"
	"github.com/aretw0/botflow/pkg/persistence/middleware"
	"github.com/aretw0/botflow/pkg/ports"
	"github.com/aretw0/botflow/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
)

// App is a fully wired engine built from a Config.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Repo     *memory.Repository
	Sessions *session.Manager
	Engine   *botflow.Engine
	Turns    *dispatch.Dispatcher
	Registry *prometheus.Registry

	// Recorder captures outbound messages when no gateway was supplied and no
	// webhook is configured. It is nil otherwise.
	Recorder *memory.Recorder

	closers []func() error
}

// NewLogger builds the process logger from the config.
func NewLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewWithFormat(level, cfg.LogFormat, stderr), nil
}

// OpenStore opens the session store selected by cfg, wrapped with encryption when a key
// is configured. The locker is non-nil for Redis.
func OpenStore(cfg *config.Config) (ports.SessionStore, ports.DistributedLocker, func() error, error) {
	var (
		store  ports.SessionStore
		locker ports.DistributedLocker
		closer = func() error { return nil }
	)

	switch cfg.Store.Driver {
	case config.DriverMemory:
		store = memory.NewStore()
	case config.DriverFile:
		store = file.New(cfg.Store.Dir)
	case config.DriverRedis:
		rs := redis.New(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB,
			redis.WithTTL(cfg.Store.TTL),
			redis.WithPrefix(cfg.Store.RedisPrefix),
		)
		store = rs
		locker = redis.NewLocker(rs.Client(), cfg.Store.RedisPrefix)
		closer = rs.Close
	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	active, fallback, err := cfg.Store.Keys()
	if err != nil {
		return nil, nil, nil, err
	}
	if active != nil {
		store = middleware.Chain(store, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		}))
	}
	return store, locker, closer, nil
}

// Build wires repository, sessions, analytics, metrics, engine and dispatcher.
// gateway may be nil: outbound messages then go to the configured webhook or, without
// one, to an in-memory Recorder exposed as App.Recorder.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, gateway ports.MessagingGateway) (*App, error) {
	app := &App{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = app.Close()
		}
	}()

	repo, err := file.OpenRepository(ctx, cfg.BotsDir)
	if err != nil {
		return nil, err
	}
	app.Repo = repo

	store, locker, closeStore, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, closeStore)

	sessionOpts := []session.Option{
		session.WithLogger(logger),
		session.WithLockTTL(cfg.Store.LockTTL),
	}
	if locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker))
	}
	app.Sessions = session.NewManager(store, sessionOpts...)

	app.Registry = prometheus.NewRegistry()
	metrics := observability.NewMetrics(app.Registry)

	if gateway == nil {
		if cfg.Webhook.URL != "" {
			gateway = webhook.New(cfg.Webhook.URL, webhook.WithHTTPClient(&http.Client{Timeout: cfg.Webhook.Timeout}))
		} else {
			app.Recorder = memory.NewRecorder()
			gateway = app.Recorder
		}
	}

	engineOpts := []botflow.Option{
		botflow.WithLogger(logger),
		botflow.WithLifecycleHooks(observability.Combine(metrics.Hooks(), observability.LoggingHooks(logger))),
		botflow.WithStepLimit(cfg.Engine.StepLimit),
		botflow.WithMaxDelay(cfg.Engine.MaxDelay),
		botflow.WithDefaultAnswerBootstrap(cfg.Engine.Bootstrap),
		botflow.WithApologyMessage(cfg.Engine.Apology),
		botflow.WithNotConfiguredMessage(cfg.Engine.NotConfigured),
	}

	if cfg.Analytics.SQLitePath != "" {
		db, err := sqlite.Open(cfg.Analytics.SQLitePath)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, db.Close)

		var messages ports.MessageLogger = db
		if cfg.Analytics.RedactPII {
			messages = middleware.NewRedactingLogger(db, middleware.DefaultPIIPatterns)
		}
		engineOpts = append(engineOpts,
			botflow.WithContactTracker(db),
			botflow.WithMessageLogger(messages),
		)
	}

	app.Engine = botflow.New(repo, app.Sessions, gateway, engineOpts...)
	app.Turns = dispatch.New(app.Engine,
		dispatch.WithMailboxSize(cfg.Dispatch.MailboxSize),
		dispatch.WithIdleTimeout(cfg.Dispatch.IdleTimeout),
		dispatch.WithLogger(logger),
	)

	ok = true
	return app, nil
}

// Close drains the dispatcher and releases storage handles.
func (a *App) Close() error {
	var errs []error
	if a.Turns != nil {
		errs = append(errs, a.Turns.Close(context.Background()))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
