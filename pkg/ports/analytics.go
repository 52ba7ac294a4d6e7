package ports

import (
	"context"

	"github.com/aretw0/botflow/pkg/domain"
)

// ContactTracker records that a sender talked to a bot.
// Only BotID, SenderID, Platform and the optional Name/ProfilePic are read from c.
type ContactTracker interface {
	UpsertContact(ctx context.Context, c domain.Contact) error
}

// MessageLogger records inbound and outbound messages and their daily counters.
type MessageLogger interface {
	LogMessage(ctx context.Context, botID, senderID, content string, direction domain.Direction) error
}
