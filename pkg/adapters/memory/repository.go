package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/botflow/pkg/domain"
)

type botContent struct {
	bot    domain.Bot
	blocks []domain.BlockDocument
	flows  []domain.FlowDocument
}

// Repository implements ports.ContentRepository and ports.BotDirectory in memory.
// Blocks and flows are returned in insertion order. Safe for concurrent use.
type Repository struct {
	mu    sync.RWMutex
	order []string
	bots  map[string]*botContent
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{bots: make(map[string]*botContent)}
}

func (r *Repository) content(botID string) *botContent {
	c, ok := r.bots[botID]
	if !ok {
		c = &botContent{bot: domain.Bot{ID: botID, Name: botID}}
		r.bots[botID] = c
		r.order = append(r.order, botID)
	}
	return c
}

// AddBot registers or replaces a bot identity.
func (r *Repository) AddBot(bot domain.Bot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.content(bot.ID).bot = bot
}

// GetBot returns the bot or domain.ErrBotNotFound.
func (r *Repository) GetBot(ctx context.Context, botID string) (*domain.Bot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.bots[botID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrBotNotFound, botID)
	}
	bot := c.bot
	return &bot, nil
}

// ListBots returns bots in registration order.
func (r *Repository) ListBots(ctx context.Context) ([]domain.Bot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Bot, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.bots[id].bot)
	}
	return out, nil
}

// ListBlocks returns copies of the bot's blocks.
func (r *Repository) ListBlocks(ctx context.Context, botID string) ([]domain.BlockDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.bots[botID]
	if !ok {
		return nil, nil
	}
	out := make([]domain.BlockDocument, len(c.blocks))
	copy(out, c.blocks)
	return out, nil
}

// GetBlock returns a block or domain.ErrBlockNotFound.
func (r *Repository) GetBlock(ctx context.Context, botID, blockID string) (*domain.BlockDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.bots[botID]; ok {
		for _, b := range c.blocks {
			if b.ID == blockID {
				doc := b
				return &doc, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrBlockNotFound, blockID)
}

// SaveBlock appends a new block or replaces the one with the same ID in place.
func (r *Repository) SaveBlock(ctx context.Context, doc domain.BlockDocument) error {
	if doc.ID == "" || doc.BotID == "" {
		return fmt.Errorf("block requires id and botId")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.content(doc.BotID)
	for i := range c.blocks {
		if c.blocks[i].ID == doc.ID {
			c.blocks[i] = doc
			return nil
		}
	}
	c.blocks = append(c.blocks, doc)
	return nil
}

// SaveFlow appends a new flow or replaces the one with the same ID in place.
func (r *Repository) SaveFlow(ctx context.Context, doc domain.FlowDocument) error {
	if doc.ID == "" || doc.BotID == "" {
		return fmt.Errorf("flow requires id and botId")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.content(doc.BotID)
	for i := range c.flows {
		if c.flows[i].ID == doc.ID {
			c.flows[i] = doc
			return nil
		}
	}
	c.flows = append(c.flows, doc)
	return nil
}

// ListFlows returns copies of the bot's flows.
func (r *Repository) ListFlows(ctx context.Context, botID string) ([]domain.FlowDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.bots[botID]
	if !ok {
		return nil, nil
	}
	out := make([]domain.FlowDocument, len(c.flows))
	copy(out, c.flows)
	return out, nil
}

// GetFlow returns a flow or domain.ErrFlowNotFound.
func (r *Repository) GetFlow(ctx context.Context, botID, flowID string) (*domain.FlowDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.bots[botID]; ok {
		for _, f := range c.flows {
			if f.ID == flowID {
				doc := f
				return &doc, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, flowID)
}
