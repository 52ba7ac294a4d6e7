package dsl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/botflow/internal/compiler"
	"github.com/aretw0/botflow/pkg/adapters/memory"
	"github.com/aretw0/botflow/pkg/domain"
)

// Builder assembles one bot.
type Builder struct {
	bot    domain.Bot
	blocks []*BlockBuilder
	flows  []*FlowBuilder
}

// New creates a builder for the bot botID.
func New(botID string) *Builder {
	return &Builder{bot: domain.Bot{ID: botID, Name: botID}}
}

func (b *Builder) Name(name string) *Builder {
	b.bot.Name = name
	return b
}

func (b *Builder) Platform(platform string) *Builder {
	b.bot.Platform = platform
	return b
}

// Block returns the builder of block id, creating it on first use.
// Blocks keep their creation order, which is the trigger resolution order.
func (b *Builder) Block(id string) *BlockBuilder {
	for _, bb := range b.blocks {
		if bb.doc.ID == id {
			return bb
		}
	}
	bb := &BlockBuilder{doc: domain.BlockDocument{ID: id, BotID: b.bot.ID, IsEnabled: true}}
	b.blocks = append(b.blocks, bb)
	return bb
}

// Flow returns the builder of flow id, creating it on first use.
func (b *Builder) Flow(id string) *FlowBuilder {
	for _, fb := range b.flows {
		if fb.doc.ID == id {
			return fb
		}
	}
	fb := &FlowBuilder{doc: domain.FlowDocument{ID: id, BotID: b.bot.ID, IsActive: true}}
	b.flows = append(b.flows, fb)
	return fb
}

// Documents renders the stored form of the bot and checks that every document compiles.
func (b *Builder) Documents() (domain.Bot, []domain.BlockDocument, []domain.FlowDocument, error) {
	parser := compiler.NewParser()
	var errs []error

	blocks := make([]domain.BlockDocument, 0, len(b.blocks))
	for _, bb := range b.blocks {
		doc, err := bb.document()
		if err == nil {
			_, err = parser.ParseBlock(doc)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("block %s: %w", bb.doc.ID, err))
			continue
		}
		blocks = append(blocks, doc)
	}

	flows := make([]domain.FlowDocument, 0, len(b.flows))
	for _, fb := range b.flows {
		doc, err := fb.document()
		if err == nil {
			_, err = parser.ParseFlow(doc)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("flow %s: %w", fb.doc.ID, err))
			continue
		}
		flows = append(flows, doc)
	}

	if err := errors.Join(errs...); err != nil {
		return domain.Bot{}, nil, nil, err
	}
	return b.bot, blocks, flows, nil
}

// Into stores the bot in repo.
func (b *Builder) Into(ctx context.Context, repo *memory.Repository) error {
	bot, blocks, flows, err := b.Documents()
	if err != nil {
		return err
	}
	repo.AddBot(bot)
	for _, doc := range blocks {
		if err := repo.SaveBlock(ctx, doc); err != nil {
			return err
		}
	}
	for _, doc := range flows {
		if err := repo.SaveFlow(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

// Build stores the bot in a fresh in-memory repository.
func (b *Builder) Build(ctx context.Context) (*memory.Repository, error) {
	repo := memory.NewRepository()
	if err := b.Into(ctx, repo); err != nil {
		return nil, fmt.Errorf("failed to build bot %s: %w", b.bot.ID, err)
	}
	return repo, nil
}

// tagged encodes v as a JSON object and adds the type tag.
func tagged(kind string, v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	m["type"] = kind
	return m, nil
}
