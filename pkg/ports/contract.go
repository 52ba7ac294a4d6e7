package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/botflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	botID := "contract-bot-" + time.Now().Format("20060102150405")
	sessionID := domain.SessionKey(botID, "sender")

	t.Run("Save and Load", func(t *testing.T) {
		s := domain.NewSession(botID, "sender", time.Now())
		s.SetBlockPointer(domain.StringPtr("block-1"), 2)
		s.Context.Set("name", "Ana")
		s.Context.Set("email", "ana@example.com")

		err := store.Save(ctx, sessionID, s)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		require.NotNil(t, loaded.CurrentBlockID)
		assert.Equal(t, "block-1", *loaded.CurrentBlockID)
		assert.Equal(t, 2, loaded.CurrentCardIndex)
		assert.Nil(t, loaded.CurrentNodeID)
		assert.Equal(t, []string{"name", "email"}, loaded.Context.Keys(), "context order must survive persistence")
		email, _ := loaded.Context.Get("email")
		assert.Equal(t, "ana@example.com", email)
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Context.Set("name", "mutated")

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		name, _ := again.Context.Get("name")
		assert.Equal(t, "Ana", name)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewSession(botID, "sender", time.Now()))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := domain.SessionKey(botID, "one")
		id2 := domain.SessionKey(botID, "two")
		_ = store.Save(ctx, id1, domain.NewSession(botID, "one", time.Now()))
		_ = store.Save(ctx, id2, domain.NewSession(botID, "two", time.Now()))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
