package validator_test

import (
	"testing"

	"github.com/aretw0/botflow/internal/validator"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBlocks(t *testing.T) {
	t.Run("valid references", func(t *testing.T) {
		blocks := []*domain.Block{
			{ID: "welcome", Cards: []domain.Card{
				domain.QuickReplyCard{Text: "Pick", Buttons: []domain.QuickReplyButton{{Title: "Menu", BlockID: "menu"}, {Title: "Free text"}}},
			}},
			{ID: "menu", Cards: []domain.Card{
				domain.UserInputCard{Prompt: "?", VariableName: "x", NextBlockID: "welcome"},
				domain.GoToBlockCard{BlockID: "welcome"},
			}},
		}
		assert.NoError(t, validator.ValidateBlocks(blocks))
	})

	t.Run("dangling references", func(t *testing.T) {
		blocks := []*domain.Block{
			{ID: "a", Cards: []domain.Card{
				domain.GoToBlockCard{BlockID: "ghost"},
				domain.GalleryCard{Title: "t", Buttons: []domain.Button{{Title: "Buy", Kind: "block", BlockID: "shop"}}},
				domain.UserInputCard{Prompt: "?", VariableName: "x", NextBlockID: "next"},
			}},
		}
		err := validator.ValidateBlocks(blocks)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "found 3 errors")
		assert.Contains(t, err.Error(), "missing block 'ghost'")
		assert.Contains(t, err.Error(), "button 'Buy'")
	})
}

func TestValidateFlow(t *testing.T) {
	t.Run("valid flow with loop", func(t *testing.T) {
		flow := &domain.Flow{
			ID: "f",
			Nodes: []domain.Node{
				domain.StartNode{ID: "s"},
				domain.UserInputNode{ID: "ask", Prompt: "?", VariableName: "v"},
				domain.ConditionNode{ID: "c", Variable: "v", Operator: "contains", Value: "@"},
				domain.EndNode{ID: "end"},
			},
			Edges: []domain.Edge{
				{Source: "s", Target: "ask"},
				{Source: "ask", Target: "c"},
				{Source: "c", Target: "end", SourceHandle: "true"},
				{Source: "c", Target: "ask", SourceHandle: "false"},
			},
		}
		assert.NoError(t, validator.ValidateFlow(flow))
	})

	t.Run("broken edge and orphan", func(t *testing.T) {
		flow := &domain.Flow{
			ID: "f",
			Nodes: []domain.Node{
				domain.StartNode{ID: "s"},
				domain.TextNode{ID: "orphan", Message: "never"},
			},
			Edges: []domain.Edge{{Source: "s", Target: "missing"}},
		}
		err := validator.ValidateFlow(flow)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing node 'missing'")
		assert.Contains(t, err.Error(), "node 'orphan' is unreachable")
	})

	t.Run("no start node", func(t *testing.T) {
		err := validator.ValidateFlow(&domain.Flow{ID: "f", Nodes: []domain.Node{domain.TextNode{ID: "t"}}})
		assert.ErrorContains(t, err, "no start node")
	})
}

func TestValidateFlows(t *testing.T) {
	signup := &domain.Flow{ID: "signup", Nodes: []domain.Node{
		domain.StartNode{ID: "start"},
		domain.UserInputNode{ID: "ask", Prompt: "Email?", VariableName: "email"},
		domain.EndNode{ID: "end"},
	}}

	t.Run("shared start and end nodes are fine", func(t *testing.T) {
		survey := &domain.Flow{ID: "survey", Nodes: []domain.Node{
			domain.StartNode{ID: "start"},
			domain.UserInputNode{ID: "rating", Prompt: "1-5?", VariableName: "rating"},
			domain.EndNode{ID: "end"},
		}}
		assert.NoError(t, validator.ValidateFlows([]*domain.Flow{signup, survey}))
	})

	t.Run("input node id reused by another flow", func(t *testing.T) {
		survey := &domain.Flow{ID: "survey", Nodes: []domain.Node{
			domain.StartNode{ID: "start"},
			domain.TextNode{ID: "ask", Message: "Thanks"},
		}}
		err := validator.ValidateFlows([]*domain.Flow{signup, survey})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "found 1 errors")
		assert.Contains(t, err.Error(), "node 'ask' is declared by flows 'signup', 'survey'")
	})
}
