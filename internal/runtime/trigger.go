package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/botflow/internal/compiler"
	"github.com/aretw0/botflow/internal/logging"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/ports"
)

// Match describes how an input matched a trigger list.
type Match int

const (
	NoMatch Match = iota
	SubstringMatch
	ExactMatch
)

// Normalize trims and lowercases text for trigger comparison.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// MatchTriggers compares normalized input against triggers.
// Exact equality is reported over substring containment. Empty triggers never match.
func MatchTriggers(input string, triggers []string) Match {
	if input == "" {
		return NoMatch
	}
	best := NoMatch
	for _, trigger := range triggers {
		kw := Normalize(trigger)
		switch {
		case kw == "":
			continue
		case input == kw:
			return ExactMatch
		case strings.Contains(input, kw):
			best = SubstringMatch
		}
	}
	return best
}

// MatchFlow returns the first flow with an exact trigger match, else the first with a
// substring match, else nil.
func MatchFlow(flows []*domain.Flow, message string) *domain.Flow {
	input := Normalize(message)
	var substring *domain.Flow
	for _, f := range flows {
		switch MatchTriggers(input, f.Triggers) {
		case ExactMatch:
			return f
		case SubstringMatch:
			if substring == nil {
				substring = f
			}
		}
	}
	return substring
}

// DefaultFlow returns the first flow flagged as default.
func DefaultFlow(flows []*domain.Flow) *domain.Flow {
	for _, f := range flows {
		if f.IsDefault {
			return f
		}
	}
	return nil
}

// TriggerResolver picks the block that should answer a fresh message.
type TriggerResolver struct {
	repo      ports.ContentRepository
	parser    *compiler.Parser
	bootstrap bool
	logger    *slog.Logger
}

// ResolverOption configures a TriggerResolver.
type ResolverOption func(*TriggerResolver)

// WithBootstrap toggles creation of the welcome and default-answer blocks when missing.
func WithBootstrap(enabled bool) ResolverOption {
	return func(r *TriggerResolver) {
		r.bootstrap = enabled
	}
}

// WithResolverLogger sets the logger.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *TriggerResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewTriggerResolver creates a resolver with bootstrap enabled.
func NewTriggerResolver(repo ports.ContentRepository, opts ...ResolverOption) *TriggerResolver {
	r := &TriggerResolver{
		repo:      repo,
		parser:    compiler.NewParser(),
		bootstrap: true,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MatchBlock returns the enabled block whose triggers match message, or nil.
// Exact matches win over substring matches; ties go to repository order.
func (r *TriggerResolver) MatchBlock(ctx context.Context, botID, message string) (*domain.Block, error) {
	docs, err := r.repo.ListBlocks(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("list blocks of %s: %w", botID, err)
	}

	input := Normalize(message)
	var winner *domain.BlockDocument
	for i := range docs {
		doc := &docs[i]
		if !doc.IsEnabled {
			continue
		}
		m := MatchTriggers(input, doc.Triggers)
		if m == ExactMatch {
			winner = doc
			break
		}
		if m == SubstringMatch && winner == nil {
			winner = doc
		}
	}
	if winner == nil {
		return nil, nil
	}
	return r.parser.ParseBlock(*winner)
}

// DefaultAnswer returns the bot's default-answer block, bootstrapping it when allowed.
// It returns nil when the bot has none and bootstrap is disabled.
func (r *TriggerResolver) DefaultAnswer(ctx context.Context, botID string) (*domain.Block, error) {
	docs, err := r.repo.ListBlocks(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("list blocks of %s: %w", botID, err)
	}
	for _, doc := range docs {
		if doc.IsDefaultAnswer && doc.IsEnabled {
			return r.parser.ParseBlock(doc)
		}
	}
	if !r.bootstrap {
		return nil, nil
	}

	created, err := r.Bootstrap(ctx, botID)
	if err != nil {
		return nil, err
	}
	for _, doc := range created {
		if doc.IsDefaultAnswer {
			return r.parser.ParseBlock(doc)
		}
	}
	return nil, nil
}

// Bootstrap creates the welcome and default-answer blocks a bot is missing and returns
// the documents it saved. Block IDs are derived from the bot ID so concurrent calls
// write the same documents.
func (r *TriggerResolver) Bootstrap(ctx context.Context, botID string) ([]domain.BlockDocument, error) {
	docs, err := r.repo.ListBlocks(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("list blocks of %s: %w", botID, err)
	}
	var hasWelcome, hasDefault bool
	for _, doc := range docs {
		hasWelcome = hasWelcome || doc.IsWelcome
		hasDefault = hasDefault || doc.IsDefaultAnswer
	}

	var created []domain.BlockDocument
	for _, doc := range StarterBlocks(botID) {
		if (doc.IsWelcome && hasWelcome) || (doc.IsDefaultAnswer && hasDefault) {
			continue
		}
		if err := r.repo.SaveBlock(ctx, doc); err != nil {
			return nil, fmt.Errorf("bootstrap block %s: %w", doc.ID, err)
		}
		r.logger.Info("bootstrapped block", "bot_id", botID, "block_id", doc.ID)
		created = append(created, doc)
	}
	return created, nil
}

// StarterBlocks returns the minimal welcome and default-answer blocks for a bot.
func StarterBlocks(botID string) []domain.BlockDocument {
	return []domain.BlockDocument{
		{
			ID:        botID + "-welcome",
			BotID:     botID,
			Name:      "Welcome",
			Cards:     []byte(`[{"type":"text","text":"Welcome! How can I help you today?"}]`),
			IsWelcome: true,
			IsEnabled: true,
		},
		{
			ID:              botID + "-default-answer",
			BotID:           botID,
			Name:            "Default answer",
			Cards:           []byte(`[{"type":"text","text":"Sorry, I didn't understand that. Could you rephrase?"}]`),
			IsDefaultAnswer: true,
			IsEnabled:       true,
		},
	}
}
