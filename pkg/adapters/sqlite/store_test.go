package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/botflow/pkg/adapters/sqlite"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(":memory:", sqlite.WithClock(func() time.Time { return day }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_UpsertContact(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.UpsertContact(ctx, domain.Contact{BotID: "bot", SenderID: "alice", Platform: "messenger"}))
	require.NoError(t, store.UpsertContact(ctx, domain.Contact{BotID: "bot", SenderID: "alice", Name: "Alice"}))
	require.NoError(t, store.UpsertContact(ctx, domain.Contact{BotID: "bot", SenderID: "alice"}))

	c, err := store.Contact(ctx, "bot", "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, 3, c.MessageCount)
	assert.Equal(t, "Alice", c.Name, "empty names do not erase a known one")
	assert.Equal(t, "messenger", c.Platform)
	assert.True(t, c.FirstSeen.Equal(day))

	stats, err := store.DailyStats(ctx, "bot", "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, 1, stats[sqlite.MetricNewContacts])
}

func TestStore_UpsertContact_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.UpsertContact(ctx, domain.Contact{BotID: "bot", SenderID: "bob"}))
		}()
	}
	wg.Wait()

	c, err := store.Contact(ctx, "bot", "bob")
	require.NoError(t, err)
	assert.Equal(t, 10, c.MessageCount)
}

func TestStore_LogMessage(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.LogMessage(ctx, "bot", "alice", "hi", domain.DirectionInbound))
	require.NoError(t, store.LogMessage(ctx, "bot", "alice", "Hello!", domain.DirectionOutbound))
	require.NoError(t, store.LogMessage(ctx, "bot", "alice", "Email?", domain.DirectionOutbound))
	require.NoError(t, store.LogMessage(ctx, "bot", "carol", "yo", domain.DirectionInbound))

	msgs, err := store.Messages(ctx, "bot", "alice")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, domain.DirectionInbound, msgs[0].Direction)
	assert.Equal(t, "Email?", msgs[2].Content)
	assert.NotEqual(t, msgs[0].ID, msgs[1].ID)

	stats, err := store.DailyStats(ctx, "bot", "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{sqlite.MetricMessagesIn: 2, sqlite.MetricMessagesOut: 2}, stats)
}

func TestStore_IncrementDailyCounter(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.IncrementDailyCounter(ctx, "bot", "custom"))
	}
	stats, err := store.DailyStats(ctx, "bot", "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, 3, stats["custom"])

	other, err := store.DailyStats(ctx, "bot", "2026-03-15")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStore_ClosedDatabaseReportsAnalyticsError(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.LogMessage(context.Background(), "bot", "x", "hi", domain.DirectionInbound)
	var ae *domain.AnalyticsError
	assert.True(t, errors.As(err, &ae))
}
