// Package webhook delivers outbound messages as JSON POSTs to a platform relay.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aretw0/botflow/pkg/domain"
)

// DefaultTimeout bounds a single delivery request.
const DefaultTimeout = 10 * time.Second

// Envelope is the body of every request.
type Envelope struct {
	BotID       string `json:"bot_id"`
	PageID      string `json:"page_id,omitempty"`
	RecipientID string `json:"recipient_id"`
	Type        string `json:"type"`
	Payload     any    `json:"payload"`
}

// Gateway implements ports.MessagingGateway over HTTP.
// The bot token, when set, is sent as a bearer token.
type Gateway struct {
	url    string
	client *http.Client
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		if c != nil {
			g.client = c
		}
	}
}

// New creates a gateway posting to url.
func New(url string, opts ...Option) *Gateway {
	g := &Gateway{url: url, client: &http.Client{Timeout: DefaultTimeout}}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) SendText(ctx context.Context, bot domain.Bot, recipientID, text string) error {
	return g.post(ctx, bot, recipientID, "text", map[string]string{"text": text})
}

func (g *Gateway) SendImage(ctx context.Context, bot domain.Bot, recipientID, imageURL string) error {
	return g.post(ctx, bot, recipientID, "image", map[string]string{"url": imageURL})
}

func (g *Gateway) SendCard(ctx context.Context, bot domain.Bot, recipientID string, card domain.CardMessage) error {
	return g.post(ctx, bot, recipientID, "card", card)
}

func (g *Gateway) SendQuickReplies(ctx context.Context, bot domain.Bot, recipientID string, msg domain.QuickReplyMessage) error {
	return g.post(ctx, bot, recipientID, "quick_replies", msg)
}

func (g *Gateway) SendTypingIndicator(ctx context.Context, bot domain.Bot, recipientID string, on bool) error {
	return g.post(ctx, bot, recipientID, "typing", map[string]bool{"on": on})
}

func (g *Gateway) post(ctx context.Context, bot domain.Bot, recipientID, kind string, payload any) error {
	fail := func(err error) error {
		return &domain.TransientDeliveryError{Op: kind, RecipientID: recipientID, Err: err}
	}

	body, err := json.Marshal(Envelope{
		BotID:       bot.ID,
		PageID:      bot.PageID,
		RecipientID: recipientID,
		Type:        kind,
		Payload:     payload,
	})
	if err != nil {
		return fail(fmt.Errorf("marshal envelope: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bot.Token != "" {
		req.Header.Set("Authorization", "Bearer "+bot.Token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fail(fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
