package ports

import (
	"context"

	"github.com/aretw0/botflow/pkg/domain"
)

// MessagingGateway delivers outbound messages to a messaging platform.
// Implementations should wrap failures in domain.TransientDeliveryError.
type MessagingGateway interface {
	SendText(ctx context.Context, bot domain.Bot, recipientID, text string) error
	SendImage(ctx context.Context, bot domain.Bot, recipientID, imageURL string) error
	SendCard(ctx context.Context, bot domain.Bot, recipientID string, card domain.CardMessage) error
	SendQuickReplies(ctx context.Context, bot domain.Bot, recipientID string, msg domain.QuickReplyMessage) error
	SendTypingIndicator(ctx context.Context, bot domain.Bot, recipientID string, on bool) error
}
