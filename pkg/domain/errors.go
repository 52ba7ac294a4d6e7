package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrBlockNotFound is returned when a block ID cannot be found for a bot.
var ErrBlockNotFound = errors.New("block not found")

// ErrFlowNotFound is returned when a flow ID cannot be found for a bot.
var ErrFlowNotFound = errors.New("flow not found")

// ErrBotNotFound is returned when a bot ID is unknown to the bot directory.
var ErrBotNotFound = errors.New("bot not found")

// ErrActorBusy is returned when a session's mailbox is full.
var ErrActorBusy = errors.New("session actor is busy")

// ErrDispatcherClosed is returned for work submitted after the dispatcher was closed.
var ErrDispatcherClosed = errors.New("dispatcher is closed")

// ConfigurationError means the bot has nothing able to handle a message.
type ConfigurationError struct {
	BotID  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("bot %s is not configured: %s", e.BotID, e.Reason)
}

// DataIntegrityError reports a malformed block or flow, or a dangling reference inside one.
type DataIntegrityError struct {
	Kind string // "block" or "flow"
	ID   string
	Path string
	Err  error
}

func (e *DataIntegrityError) Error() string {
	loc := e.Kind + " " + e.ID
	if e.Path != "" {
		loc += " at " + e.Path
	}
	return fmt.Sprintf("invalid %s: %v", loc, e.Err)
}

func (e *DataIntegrityError) Unwrap() error { return e.Err }

// ExecutionLimitError aborts a turn that exceeded its step budget or re-entered a block.
type ExecutionLimitError struct {
	Limit  int
	Reason string
}

func (e *ExecutionLimitError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("execution limit of %d steps exceeded: %s", e.Limit, e.Reason)
	}
	return "execution limit exceeded: " + e.Reason
}

// TransientDeliveryError wraps a failed gateway call. It never aborts a turn.
type TransientDeliveryError struct {
	Op          string
	RecipientID string
	Err         error
}

func (e *TransientDeliveryError) Error() string {
	return fmt.Sprintf("deliver %s to %s: %v", e.Op, e.RecipientID, e.Err)
}

func (e *TransientDeliveryError) Unwrap() error { return e.Err }

// AnalyticsError wraps a failed contact or message bookkeeping call. It is logged only.
type AnalyticsError struct {
	Op  string
	Err error
}

func (e *AnalyticsError) Error() string {
	return fmt.Sprintf("analytics %s: %v", e.Op, e.Err)
}

func (e *AnalyticsError) Unwrap() error { return e.Err }
