package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/botflow/pkg/adapters/memory"
	"github.com/aretw0/botflow/pkg/domain"
	"gopkg.in/yaml.v3"
)

// BotFile is the on-disk shape of one bot definition.
type BotFile struct {
	Bot    domain.Bot  `yaml:"bot"`
	Blocks []blockYAML `yaml:"blocks"`
	Flows  []flowYAML  `yaml:"flows"`
}

type blockYAML struct {
	ID              string           `yaml:"id"`
	Name            string           `yaml:"name"`
	Triggers        []string         `yaml:"triggers"`
	IsWelcome       bool             `yaml:"isWelcome"`
	IsDefaultAnswer bool             `yaml:"isDefaultAnswer"`
	IsEnabled       *bool            `yaml:"isEnabled"`
	Cards           []map[string]any `yaml:"cards"`
}

type flowYAML struct {
	ID        string           `yaml:"id"`
	Name      string           `yaml:"name"`
	Triggers  []string         `yaml:"triggers"`
	IsDefault bool             `yaml:"isDefault"`
	IsActive  *bool            `yaml:"isActive"`
	Nodes     []map[string]any `yaml:"nodes"`
	Edges     []map[string]any `yaml:"edges"`
}

// ReadBotFile decodes a YAML bot definition. Blocks and flows are enabled unless they
// say otherwise.
func ReadBotFile(path string) (domain.Bot, []domain.BlockDocument, []domain.FlowDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Bot{}, nil, nil, fmt.Errorf("read bot file: %w", err)
	}
	return ParseBotFile(data, path)
}

// ParseBotFile decodes a YAML bot definition read from source.
func ParseBotFile(data []byte, source string) (domain.Bot, []domain.BlockDocument, []domain.FlowDocument, error) {
	var f BotFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.Bot{}, nil, nil, fmt.Errorf("parse %s: %w", source, err)
	}
	if f.Bot.ID == "" {
		return domain.Bot{}, nil, nil, fmt.Errorf("parse %s: bot.id is required", source)
	}
	if f.Bot.Name == "" {
		f.Bot.Name = f.Bot.ID
	}

	blocks := make([]domain.BlockDocument, 0, len(f.Blocks))
	for i, b := range f.Blocks {
		cards, err := toJSON(b.Cards)
		if err != nil {
			return domain.Bot{}, nil, nil, fmt.Errorf("%s: block %d (%s): %w", source, i, b.ID, err)
		}
		blocks = append(blocks, domain.BlockDocument{
			ID:              b.ID,
			BotID:           f.Bot.ID,
			Name:            b.Name,
			Cards:           cards,
			Triggers:        b.Triggers,
			IsWelcome:       b.IsWelcome,
			IsDefaultAnswer: b.IsDefaultAnswer,
			IsEnabled:       b.IsEnabled == nil || *b.IsEnabled,
		})
	}

	flows := make([]domain.FlowDocument, 0, len(f.Flows))
	for i, fl := range f.Flows {
		nodes, err := toJSON(fl.Nodes)
		if err != nil {
			return domain.Bot{}, nil, nil, fmt.Errorf("%s: flow %d (%s) nodes: %w", source, i, fl.ID, err)
		}
		edges, err := toJSON(fl.Edges)
		if err != nil {
			return domain.Bot{}, nil, nil, fmt.Errorf("%s: flow %d (%s) edges: %w", source, i, fl.ID, err)
		}
		flows = append(flows, domain.FlowDocument{
			ID:        fl.ID,
			BotID:     f.Bot.ID,
			Name:      fl.Name,
			Nodes:     nodes,
			Edges:     edges,
			Triggers:  fl.Triggers,
			IsDefault: fl.IsDefault,
			IsActive:  fl.IsActive == nil || *fl.IsActive,
		})
	}
	return f.Bot, blocks, flows, nil
}

func toJSON(v []map[string]any) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("[]"), nil
	}
	return json.Marshal(v)
}

// LoadBots reads every *.yaml / *.yml file of dir, in name order, into repo.
// Duplicate bot ids across files are an error.
func LoadBots(ctx context.Context, dir string, repo *memory.Repository) ([]domain.Bot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read bots directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("no bot definitions found in %s", dir)
	}

	seen := make(map[string]string)
	var bots []domain.Bot
	for _, name := range names {
		path := filepath.Join(dir, name)
		bot, blocks, flows, err := ReadBotFile(path)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[bot.ID]; dup {
			return nil, fmt.Errorf("bot %q defined in both %s and %s", bot.ID, prev, name)
		}
		seen[bot.ID] = name

		repo.AddBot(bot)
		for _, b := range blocks {
			if err := repo.SaveBlock(ctx, b); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
		}
		for _, fl := range flows {
			if err := repo.SaveFlow(ctx, fl); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
		}
		bots = append(bots, bot)
	}
	return bots, nil
}

// ErrNoBots is returned by OpenRepository when dir does not exist.
var ErrNoBots = errors.New("bots directory does not exist")

// OpenRepository loads dir into a fresh memory.Repository.
func OpenRepository(ctx context.Context, dir string) (*memory.Repository, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNoBots, dir)
	}
	repo := memory.NewRepository()
	if _, err := LoadBots(ctx, dir, repo); err != nil {
		return nil, err
	}
	return repo, nil
}
