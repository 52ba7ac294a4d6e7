package domain

import (
	"context"
	"time"
)

// Route names how a turn was dispatched.
type Route string

const (
	RouteResume        Route = "resume"
	RouteTrigger       Route = "trigger"
	RouteDefaultAnswer Route = "default_answer"
	RouteGraph         Route = "graph"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	TurnID    string    `json:"turn_id"`
	BotID     string    `json:"bot_id"`
	SenderID  string    `json:"sender_id"`
}

// TurnEvent brackets one ExecuteFlow call. Route, Err and Duration are set on end.
type TurnEvent struct {
	EventBase
	Route    Route         `json:"route,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration,omitempty"`
}

// StepEvent is emitted for every card or node executed.
type StepEvent struct {
	EventBase
	Interpreter string `json:"interpreter"` // "block" or "graph"
	Location    string `json:"location"`    // block or node ID
	Index       int    `json:"index,omitempty"`
	Type        string `json:"type"`
}

// DeliveryEvent reports a failed gateway call.
type DeliveryEvent struct {
	EventBase
	Op  string `json:"op"`
	Err error  `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnTurnStart       func(context.Context, *TurnEvent)
	OnTurnEnd         func(context.Context, *TurnEvent)
	OnStep            func(context.Context, *StepEvent)
	OnDeliveryFailure func(context.Context, *DeliveryEvent)
}
