package memory_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/botflow/pkg/adapters/memory"
	"github.com/aretw0/botflow/pkg/domain"
	contract "github.com/aretw0/botflow/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Contract(t *testing.T) {
	contract.ContentRepositoryContractTest(t, memory.NewRepository(), "contract-bot")
}

func TestRepository_Bots(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	repo.AddBot(domain.Bot{ID: "b2", Name: "Second"})
	repo.AddBot(domain.Bot{ID: "b1", Name: "First"})

	bots, err := repo.ListBots(ctx)
	require.NoError(t, err)
	require.Len(t, bots, 2)
	assert.Equal(t, "b2", bots[0].ID, "bots keep registration order")

	_, err = repo.GetBot(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrBotNotFound)
}

func TestRepository_Flows(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	require.NoError(t, repo.SaveFlow(ctx, domain.FlowDocument{ID: "f1", BotID: "bot", Nodes: json.RawMessage(`[]`)}))
	require.NoError(t, repo.SaveFlow(ctx, domain.FlowDocument{ID: "f1", BotID: "bot", Name: "v2"}))

	flows, err := repo.ListFlows(ctx, "bot")
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "v2", flows[0].Name)

	_, err = repo.GetFlow(ctx, "bot", "nope")
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)
	assert.Error(t, repo.SaveFlow(ctx, domain.FlowDocument{ID: "x"}))
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	rec := memory.NewRecorder()
	bot := domain.Bot{ID: "bot"}

	require.NoError(t, rec.SendText(ctx, bot, "u1", "hello"))
	require.NoError(t, rec.SendImage(ctx, bot, "u2", "https://img"))
	require.NoError(t, rec.SendTypingIndicator(ctx, bot, "u1", true))

	assert.Equal(t, []string{"hello"}, rec.Texts("u1"))
	assert.Len(t, rec.For("u1"), 2)
	assert.Len(t, rec.Drain("u1"), 2)
	assert.Empty(t, rec.For("u1"))
	assert.Len(t, rec.Deliveries(), 1)
}

func TestJournal(t *testing.T) {
	ctx := context.Background()
	j := memory.NewJournal()

	require.NoError(t, j.UpsertContact(ctx, domain.Contact{BotID: "bot", SenderID: "u", Platform: "messenger"}))
	require.NoError(t, j.UpsertContact(ctx, domain.Contact{BotID: "bot", SenderID: "u", Name: "Ana"}))
	require.NoError(t, j.LogMessage(ctx, "bot", "u", "hi", domain.DirectionInbound))

	c, ok := j.Contact("bot", "u")
	require.True(t, ok)
	assert.Equal(t, 2, c.MessageCount)
	assert.Equal(t, "Ana", c.Name)
	assert.Equal(t, "messenger", c.Platform)
	assert.Len(t, j.Messages(), 1)
}
