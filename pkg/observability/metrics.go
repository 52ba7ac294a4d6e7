package observability

import (
	"context"
	"errors"

	"github.com/aretw0/botflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels of botflow_turns_total.
const (
	OutcomeOK             = "ok"
	OutcomeNotConfigured  = "not_configured"
	OutcomeDataIntegrity  = "data_integrity"
	OutcomeExecutionLimit = "execution_limit"
	OutcomeCanceled       = "canceled"
	OutcomeError          = "error"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	Turns            *prometheus.CounterVec
	TurnDuration     *prometheus.HistogramVec
	Steps            *prometheus.CounterVec
	DeliveryFailures *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botflow_turns_total",
				Help: "Inbound messages processed, by route and outcome.",
			},
			[]string{"bot_id", "route", "outcome"},
		),
		TurnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "botflow_turn_duration_seconds",
				Help:    "Time spent processing one inbound message, delays included.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"bot_id"},
		),
		Steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botflow_steps_total",
				Help: "Cards and nodes executed, by interpreter and type.",
			},
			[]string{"bot_id", "interpreter", "type"},
		),
		DeliveryFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botflow_delivery_failures_total",
				Help: "Gateway calls that failed, by operation.",
			},
			[]string{"bot_id", "op"},
		),
	}
	reg.MustRegister(m.Turns, m.TurnDuration, m.Steps, m.DeliveryFailures)
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnEnd: func(_ context.Context, e *domain.TurnEvent) {
			route := string(e.Route)
			if route == "" {
				route = "none"
			}
			m.Turns.WithLabelValues(e.BotID, route, Outcome(e.Err)).Inc()
			m.TurnDuration.WithLabelValues(e.BotID).Observe(e.Duration.Seconds())
		},
		OnStep: func(_ context.Context, e *domain.StepEvent) {
			m.Steps.WithLabelValues(e.BotID, e.Interpreter, e.Type).Inc()
		},
		OnDeliveryFailure: func(_ context.Context, e *domain.DeliveryEvent) {
			m.DeliveryFailures.WithLabelValues(e.BotID, e.Op).Inc()
		},
	}
}

// Outcome classifies a turn error into a metric label.
func Outcome(err error) string {
	var (
		cfg   *domain.ConfigurationError
		die   *domain.DataIntegrityError
		limit *domain.ExecutionLimitError
	)
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &cfg):
		return OutcomeNotConfigured
	case errors.As(err, &die):
		return OutcomeDataIntegrity
	case errors.As(err, &limit):
		return OutcomeExecutionLimit
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
