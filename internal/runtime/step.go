package runtime

import (
	"context"
	"time"

	"github.com/aretw0/botflow/pkg/domain"
)

// StepResult is what a program asks the driver to do next.
// The variants are Send, Pause, AwaitInput, Goto and Done.
type StepResult interface {
	isStepResult()
}

// Send delivers messages and continues.
type Send struct {
	Messages []domain.Outbound
}

// Pause sleeps, optionally wrapped in a typing indicator, and continues.
type Pause struct {
	Duration time.Duration
	Typing   bool
}

// AwaitInput delivers Prompt and suspends the program until the next message.
type AwaitInput struct {
	Prompt domain.Outbound
}

// Goto moves the program to another block or node.
type Goto struct {
	Target string
}

// Done ends the program and clears its pointer.
type Done struct{}

func (Send) isStepResult()       {}
func (Pause) isStepResult()      {}
func (AwaitInput) isStepResult() {}
func (Goto) isStepResult()       {}
func (Done) isStepResult()       {}

// program is implemented by the block and graph interpreters and executed by drive.
type program interface {
	// interpreter names the strategy ("block" or "graph").
	interpreter() string
	// position describes the card or node about to run.
	position() (location string, index int, kind string)
	// charge reports whether running kind spends the turn budget.
	charge(kind string) bool
	step(t *Turn) (StepResult, error)
	enter(ctx context.Context, t *Turn, target string) error
	suspend(t *Turn)
	finish(t *Turn)
}

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

func textMessage(text string, vars domain.Vars) domain.Outbound {
	return domain.TextMessage{Text: Interpolate(text, vars)}
}

func imageMessages(url, caption string, vars domain.Vars) []domain.Outbound {
	out := []domain.Outbound{domain.ImageMessage{URL: Interpolate(url, vars)}}
	if caption != "" {
		out = append(out, textMessage(caption, vars))
	}
	return out
}

func cardMessage(title, subtitle, imageURL string, buttons []domain.Button, vars domain.Vars) domain.Outbound {
	msg := domain.CardMessage{
		Title:    Interpolate(title, vars),
		Subtitle: Interpolate(subtitle, vars),
		ImageURL: Interpolate(imageURL, vars),
	}
	for _, b := range buttons {
		b.Title = Interpolate(b.Title, vars)
		b.URL = Interpolate(b.URL, vars)
		msg.Buttons = append(msg.Buttons, b)
	}
	return msg
}

func quickReplyMessage(text string, buttons []domain.QuickReplyButton, vars domain.Vars) domain.Outbound {
	msg := domain.QuickReplyMessage{Text: Interpolate(text, vars)}
	for _, b := range buttons {
		msg.Replies = append(msg.Replies, domain.QuickReply{
			Title:   Interpolate(b.Title, vars),
			Payload: domain.QuickReplyPayload(b),
		})
	}
	return msg
}
