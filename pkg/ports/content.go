package ports

import (
	"context"

	"github.com/aretw0/botflow/pkg/domain"
)

// ContentRepository provides the authored content of a bot.
// Blocks and flows are returned as raw documents; the compiler turns them into typed values.
type ContentRepository interface {
	// ListBlocks returns every block of the bot in a stable order.
	ListBlocks(ctx context.Context, botID string) ([]domain.BlockDocument, error)

	// GetBlock returns a single block or domain.ErrBlockNotFound.
	GetBlock(ctx context.Context, botID, blockID string) (*domain.BlockDocument, error)

	// SaveBlock creates or replaces a block. The engine only uses it to bootstrap
	// the welcome and default-answer blocks.
	SaveBlock(ctx context.Context, doc domain.BlockDocument) error

	// ListFlows returns every legacy flow of the bot in a stable order.
	ListFlows(ctx context.Context, botID string) ([]domain.FlowDocument, error)
}

// BotDirectory resolves bot identities for hosts (CLI, HTTP, MCP).
type BotDirectory interface {
	GetBot(ctx context.Context, botID string) (*domain.Bot, error)
	ListBots(ctx context.Context) ([]domain.Bot, error)
}
