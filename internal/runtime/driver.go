package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/botflow/pkg/domain"
)

// drive runs p until it suspends, finishes or fails. Charged steps spend the turn budget.
func (x *Executor) drive(ctx context.Context, t *Turn, p program) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		location, index, kind := p.position()
		if p.charge(kind) {
			if err := t.budget.Spend(location); err != nil {
				return err
			}
		}

		res, err := p.step(t)
		if err != nil {
			return err
		}
		x.emitStep(ctx, t, p.interpreter(), location, index, kind)

		switch r := res.(type) {
		case Send:
			for _, msg := range r.Messages {
				x.deliver(ctx, t, msg)
			}
		case Pause:
			if err := x.pause(ctx, t, r, location, index); err != nil {
				return err
			}
		case AwaitInput:
			x.deliver(ctx, t, r.Prompt)
			p.suspend(t)
			return nil
		case Goto:
			if err := p.enter(ctx, t, r.Target); err != nil {
				return err
			}
		case Done:
			p.finish(t)
			return nil
		default:
			return fmt.Errorf("unexpected step result %T", res)
		}
	}
}

func (x *Executor) pause(ctx context.Context, t *Turn, p Pause, location string, index int) error {
	d := p.Duration
	if x.maxDelay > 0 && d > x.maxDelay {
		t.Logger.Info("delay capped", "location", location, "index", index, "requested", d, "max", x.maxDelay)
		d = x.maxDelay
	}
	if p.Typing {
		x.deliver(ctx, t, domain.TypingIndicator{On: true})
	}
	if err := x.sleep(ctx, d); err != nil {
		return fmt.Errorf("delay interrupted: %w", err)
	}
	if p.Typing {
		x.deliver(ctx, t, domain.TypingIndicator{On: false})
	}
	return nil
}

// deliver sends msg through the gateway. Failures are logged and reported, never returned.
func (x *Executor) deliver(ctx context.Context, t *Turn, msg domain.Outbound) {
	recipient := t.Session.SenderID
	var (
		op  string
		err error
	)
	switch m := msg.(type) {
	case domain.TextMessage:
		op, err = "text", x.gateway.SendText(ctx, t.Bot, recipient, m.Text)
	case domain.ImageMessage:
		op, err = "image", x.gateway.SendImage(ctx, t.Bot, recipient, m.URL)
	case domain.CardMessage:
		op, err = "card", x.gateway.SendCard(ctx, t.Bot, recipient, m)
	case domain.QuickReplyMessage:
		op, err = "quick_replies", x.gateway.SendQuickReplies(ctx, t.Bot, recipient, m)
	case domain.TypingIndicator:
		op, err = "typing", x.gateway.SendTypingIndicator(ctx, t.Bot, recipient, m.On)
	default:
		op, err = "unknown", fmt.Errorf("unsupported outbound %T", msg)
	}

	if err != nil {
		var tde *domain.TransientDeliveryError
		if !errors.As(err, &tde) {
			err = &domain.TransientDeliveryError{Op: op, RecipientID: recipient, Err: err}
		}
		t.Logger.Warn("delivery failed", "op", op, "error", err)
		if x.hooks.OnDeliveryFailure != nil {
			x.hooks.OnDeliveryFailure(ctx, &domain.DeliveryEvent{
				EventBase: x.eventBase(t),
				Op:        op,
				Err:       err,
			})
		}
		return
	}

	if _, typing := msg.(domain.TypingIndicator); typing || x.messages == nil {
		return
	}
	if err := x.messages.LogMessage(ctx, t.Bot.ID, recipient, msg.Summary(), domain.DirectionOutbound); err != nil {
		t.Logger.Debug("outbound message not logged", "error", err)
	}
}

func (x *Executor) emitStep(ctx context.Context, t *Turn, interpreter, location string, index int, kind string) {
	if x.hooks.OnStep == nil {
		return
	}
	x.hooks.OnStep(ctx, &domain.StepEvent{
		EventBase:   x.eventBase(t),
		Interpreter: interpreter,
		Location:    location,
		Index:       index,
		Type:        kind,
	})
}

func (x *Executor) eventBase(t *Turn) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		TurnID:    t.ID,
		BotID:     t.Bot.ID,
		SenderID:  t.Session.SenderID,
	}
}
