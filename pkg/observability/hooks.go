package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/botflow/pkg/domain"
)

// Combine fans every event out to each of hooks, in order.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hooks {
		out.OnTurnStart = chain(out.OnTurnStart, h.OnTurnStart)
		out.OnTurnEnd = chain(out.OnTurnEnd, h.OnTurnEnd)
		out.OnStep = chain(out.OnStep, h.OnStep)
		out.OnDeliveryFailure = chain(out.OnDeliveryFailure, h.OnDeliveryFailure)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}

// LoggingHooks logs turn boundaries and steps at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnStart: func(ctx context.Context, e *domain.TurnEvent) {
			logger.DebugContext(ctx, "turn_start", "turn_id", e.TurnID, "bot_id", e.BotID, "sender_id", e.SenderID)
		},
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			logger.DebugContext(ctx, "turn_end",
				"turn_id", e.TurnID,
				"route", e.Route,
				"outcome", Outcome(e.Err),
				"duration", e.Duration,
			)
		},
		OnStep: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step",
				"turn_id", e.TurnID,
				"interpreter", e.Interpreter,
				"location", e.Location,
				"index", e.Index,
				"type", e.Type,
			)
		},
	}
}
