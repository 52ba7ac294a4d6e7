package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/botflow/pkg/domain"
)

// LoggedMessage is one entry of a Journal.
type LoggedMessage struct {
	BotID     string
	SenderID  string
	Content   string
	Direction domain.Direction
	At        time.Time
}

// Journal implements ports.ContactTracker and ports.MessageLogger in memory.
type Journal struct {
	mu       sync.Mutex
	contacts map[string]*domain.Contact
	messages []LoggedMessage
	now      func() time.Time
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{contacts: make(map[string]*domain.Contact), now: time.Now}
}

func (j *Journal) UpsertContact(ctx context.Context, c domain.Contact) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	key := domain.SessionKey(c.BotID, c.SenderID)
	now := j.now()
	existing, ok := j.contacts[key]
	if !ok {
		c.ID = key
		c.FirstSeen = now
		c.LastSeen = now
		c.MessageCount = 1
		j.contacts[key] = &c
		return nil
	}
	existing.LastSeen = now
	existing.MessageCount++
	if c.Name != "" {
		existing.Name = c.Name
	}
	if c.ProfilePic != "" {
		existing.ProfilePic = c.ProfilePic
	}
	return nil
}

func (j *Journal) LogMessage(ctx context.Context, botID, senderID, content string, direction domain.Direction) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.messages = append(j.messages, LoggedMessage{
		BotID:     botID,
		SenderID:  senderID,
		Content:   content,
		Direction: direction,
		At:        j.now(),
	})
	return nil
}

// Contact returns a copy of the tracked contact.
func (j *Journal) Contact(botID, senderID string) (domain.Contact, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	c, ok := j.contacts[domain.SessionKey(botID, senderID)]
	if !ok {
		return domain.Contact{}, false
	}
	return *c, true
}

// Messages returns a copy of the logged messages.
func (j *Journal) Messages() []LoggedMessage {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]LoggedMessage, len(j.messages))
	copy(out, j.messages)
	return out
}
