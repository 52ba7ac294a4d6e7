package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/botflow/pkg/domain"
)

// blockProgram walks the cards of a block, following goToBlock and nextBlockId jumps.
type blockProgram struct {
	x     *Executor
	block *domain.Block
	index int
}

func (p *blockProgram) interpreter() string { return "block" }

func (p *blockProgram) position() (string, int, string) {
	if p.index >= len(p.block.Cards) {
		return p.block.ID, p.index, "end"
	}
	return p.block.ID, p.index, p.block.Cards[p.index].CardType()
}

// Cards of one block run at most once per turn, so only jumps between blocks are charged.
func (p *blockProgram) charge(kind string) bool { return kind == domain.CardGoToBlock }

func (p *blockProgram) step(t *Turn) (StepResult, error) {
	if p.index >= len(p.block.Cards) {
		return Done{}, nil
	}
	vars := t.Session.Context

	switch c := p.block.Cards[p.index].(type) {
	case domain.TextCard:
		p.index++
		return Send{Messages: []domain.Outbound{textMessage(c.Text, vars)}}, nil
	case domain.ImageCard:
		p.index++
		return Send{Messages: imageMessages(c.URL, c.Caption, vars)}, nil
	case domain.GalleryCard:
		p.index++
		return Send{Messages: []domain.Outbound{cardMessage(c.Title, c.Subtitle, c.ImageURL, c.Buttons, vars)}}, nil
	case domain.QuickReplyCard:
		p.index++
		return Send{Messages: []domain.Outbound{quickReplyMessage(c.Text, c.Buttons, vars)}}, nil
	case domain.UserInputCard:
		return AwaitInput{Prompt: textMessage(c.Prompt, vars)}, nil
	case domain.DelayCard:
		p.index++
		return Pause{Duration: seconds(c.Seconds), Typing: c.ShowTyping}, nil
	case domain.GoToBlockCard:
		return Goto{Target: c.BlockID}, nil
	default:
		return nil, &domain.DataIntegrityError{
			Kind: "block",
			ID:   p.block.ID,
			Path: fmt.Sprintf("/%d", p.index),
			Err:  fmt.Errorf("unsupported card %T", c),
		}
	}
}

// enter clears the pointer and continues at the first card of target.
// A block may only be entered once per turn.
func (p *blockProgram) enter(ctx context.Context, t *Turn, target string) error {
	from := p.block.ID
	t.Session.SetBlockPointer(nil, 0)
	if t.visited[target] {
		return &domain.ExecutionLimitError{Reason: fmt.Sprintf("block %s re-entered from %s in the same turn", target, from)}
	}
	t.visited[target] = true

	blk, err := p.x.LoadBlock(ctx, t.Bot.ID, target)
	if errors.Is(err, domain.ErrBlockNotFound) {
		return &domain.DataIntegrityError{Kind: "block", ID: from, Err: fmt.Errorf("jump target: %w", err)}
	}
	if err != nil {
		return err
	}
	t.Logger.Debug("entering block", "from", from, "to", blk.ID)
	p.block = blk
	p.index = 0
	return nil
}

func (p *blockProgram) suspend(t *Turn) {
	t.pointAtBlock(&p.block.ID, p.index)
}

func (p *blockProgram) finish(t *Turn) {
	t.pointAtBlock(nil, 0)
}

// ResumeBlock answers the userInput card the session is paused on and continues the block.
// It returns ErrStalePointer when the pointer no longer designates a userInput card.
func (x *Executor) ResumeBlock(ctx context.Context, t *Turn) error {
	if t.Session.CurrentBlockID == nil {
		return ErrStalePointer
	}
	blockID := *t.Session.CurrentBlockID
	index := t.Session.CurrentCardIndex

	blk, err := x.LoadBlock(ctx, t.Bot.ID, blockID)
	if errors.Is(err, domain.ErrBlockNotFound) {
		return fmt.Errorf("%w: block %s", ErrStalePointer, blockID)
	}
	if err != nil {
		return err
	}
	if index < 0 || index >= len(blk.Cards) {
		return fmt.Errorf("%w: block %s has no card %d", ErrStalePointer, blockID, index)
	}
	card, ok := blk.Cards[index].(domain.UserInputCard)
	if !ok {
		return fmt.Errorf("%w: card %d of block %s is %s", ErrStalePointer, index, blockID, blk.Cards[index].CardType())
	}

	p := &blockProgram{x: x, block: blk, index: index}
	if strings.TrimSpace(t.Input) == "" {
		x.deliver(ctx, t, textMessage(card.Prompt, t.Session.Context))
		p.suspend(t)
		return nil
	}

	t.Session.Context.Set(card.VariableName, EscapeTemplate(t.Input))
	p.index++
	if card.NextBlockID != "" {
		if err := p.enter(ctx, t, card.NextBlockID); err != nil {
			return err
		}
	}
	return x.drive(ctx, t, p)
}
