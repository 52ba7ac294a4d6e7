// Package console prints bot messages to a terminal.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/botflow/pkg/domain"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// Renderer turns markdown into terminal output.
type Renderer func(markdown string) (string, error)

// NewMarkdownRenderer returns a glamour renderer with automatic light/dark detection.
func NewMarkdownRenderer() Renderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	if err != nil {
		return nil
	}
	return r.Render
}

// Gateway implements ports.MessagingGateway by writing to w.
type Gateway struct {
	mu       sync.Mutex
	w        io.Writer
	render   Renderer
	output   *termenv.Output
	botLabel bool
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRenderer renders text messages as markdown. Nil prints them raw.
func WithRenderer(r Renderer) Option {
	return func(g *Gateway) {
		g.render = r
	}
}

// WithColorProfile forces a color profile, e.g. termenv.Ascii in tests.
func WithColorProfile(p termenv.Profile) Option {
	return func(g *Gateway) {
		g.output = termenv.NewOutput(g.w, termenv.WithProfile(p))
	}
}

// WithBotLabel prefixes every message with the bot name.
func WithBotLabel() Option {
	return func(g *Gateway) {
		g.botLabel = true
	}
}

// New creates a console gateway writing to w (stdout when nil).
func New(w io.Writer, opts ...Option) *Gateway {
	if w == nil {
		w = os.Stdout
	}
	g := &Gateway{w: w, output: termenv.NewOutput(w)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) print(bot domain.Bot, body string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.botLabel {
		name := bot.Name
		if name == "" {
			name = bot.ID
		}
		fmt.Fprintln(g.w, g.output.String(name+":").Bold())
	}
	fmt.Fprintln(g.w, strings.TrimRight(body, "\n"))
}

func (g *Gateway) markdown(text string) string {
	if g.render == nil {
		return text
	}
	out, err := g.render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

func (g *Gateway) SendText(ctx context.Context, bot domain.Bot, recipientID, text string) error {
	g.print(bot, g.markdown(text))
	return nil
}

func (g *Gateway) SendImage(ctx context.Context, bot domain.Bot, recipientID, imageURL string) error {
	g.print(bot, g.output.String("[image] ").Faint().String()+g.output.Hyperlink(imageURL, imageURL))
	return nil
}

func (g *Gateway) SendCard(ctx context.Context, bot domain.Bot, recipientID string, card domain.CardMessage) error {
	var b strings.Builder
	b.WriteString(g.output.String(card.Title).Bold().String())
	if card.Subtitle != "" {
		b.WriteString("\n" + card.Subtitle)
	}
	if card.ImageURL != "" {
		b.WriteString("\n" + g.output.String("[image] "+card.ImageURL).Faint().String())
	}
	for _, btn := range card.Buttons {
		b.WriteString("\n" + g.button(btn.Title, buttonTarget(btn)))
	}
	g.print(bot, b.String())
	return nil
}

func (g *Gateway) SendQuickReplies(ctx context.Context, bot domain.Bot, recipientID string, msg domain.QuickReplyMessage) error {
	var b strings.Builder
	b.WriteString(g.markdown(msg.Text))
	if len(msg.Replies) > 0 {
		b.WriteString("\n")
		for i, r := range msg.Replies {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(g.button(r.Title, ""))
		}
	}
	g.print(bot, b.String())
	return nil
}

func (g *Gateway) SendTypingIndicator(ctx context.Context, bot domain.Bot, recipientID string, on bool) error {
	if !on {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	fmt.Fprintln(g.w, g.output.String("...").Faint().Italic())
	return nil
}

func (g *Gateway) button(title, target string) string {
	label := g.output.String("[ " + title + " ]").Foreground(g.output.Color("#818cf8")).String()
	if target == "" {
		return label
	}
	return label + " " + g.output.String("-> "+target).Faint().String()
}

func buttonTarget(b domain.Button) string {
	switch {
	case b.URL != "":
		return b.URL
	case b.BlockID != "":
		return "block " + b.BlockID
	default:
		return b.Payload
	}
}
