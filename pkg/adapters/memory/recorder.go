package memory

import (
	"context"
	"sync"

	"github.com/aretw0/botflow/pkg/domain"
)

// Delivery is one outbound message captured by a Recorder.
type Delivery struct {
	BotID       string          `json:"bot_id"`
	RecipientID string          `json:"recipient_id"`
	Message     domain.Outbound `json:"message"`
}

// Recorder implements ports.MessagingGateway by keeping every message in memory.
// Fail, when set, is consulted before each delivery; a non-nil error drops the message.
type Recorder struct {
	mu         sync.Mutex
	deliveries []Delivery

	Fail func(msg domain.Outbound) error
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(bot domain.Bot, recipientID string, msg domain.Outbound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		if err := r.Fail(msg); err != nil {
			return err
		}
	}
	r.deliveries = append(r.deliveries, Delivery{BotID: bot.ID, RecipientID: recipientID, Message: msg})
	return nil
}

func (r *Recorder) SendText(ctx context.Context, bot domain.Bot, recipientID, text string) error {
	return r.record(bot, recipientID, domain.TextMessage{Text: text})
}

func (r *Recorder) SendImage(ctx context.Context, bot domain.Bot, recipientID, imageURL string) error {
	return r.record(bot, recipientID, domain.ImageMessage{URL: imageURL})
}

func (r *Recorder) SendCard(ctx context.Context, bot domain.Bot, recipientID string, card domain.CardMessage) error {
	return r.record(bot, recipientID, card)
}

func (r *Recorder) SendQuickReplies(ctx context.Context, bot domain.Bot, recipientID string, msg domain.QuickReplyMessage) error {
	return r.record(bot, recipientID, msg)
}

func (r *Recorder) SendTypingIndicator(ctx context.Context, bot domain.Bot, recipientID string, on bool) error {
	return r.record(bot, recipientID, domain.TypingIndicator{On: on})
}

// Deliveries returns a copy of everything recorded so far.
func (r *Recorder) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Delivery, len(r.deliveries))
	copy(out, r.deliveries)
	return out
}

// For returns the messages delivered to recipientID, in order.
func (r *Recorder) For(recipientID string) []domain.Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Outbound
	for _, d := range r.deliveries {
		if d.RecipientID == recipientID {
			out = append(out, d.Message)
		}
	}
	return out
}

// Texts returns the text of every TextMessage delivered to recipientID.
func (r *Recorder) Texts(recipientID string) []string {
	var out []string
	for _, m := range r.For(recipientID) {
		if t, ok := m.(domain.TextMessage); ok {
			out = append(out, t.Text)
		}
	}
	return out
}

// Drain returns and forgets the messages delivered to recipientID.
func (r *Recorder) Drain(recipientID string) []domain.Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Outbound
	kept := r.deliveries[:0]
	for _, d := range r.deliveries {
		if d.RecipientID == recipientID {
			out = append(out, d.Message)
			continue
		}
		kept = append(kept, d)
	}
	r.deliveries = kept
	return out
}

// Reset forgets every delivery.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = nil
}
