package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/botflow/pkg/adapters/memory"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/ports"
	"github.com/aretw0/botflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
	saves int
	mu    sync.Mutex
}

func newSlowStore() *SlowStore {
	return &SlowStore{Store: memory.NewStore()}
}

func (s *SlowStore) Save(ctx context.Context, id string, sess *domain.Session) error {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return s.Store.Save(ctx, id, sess)
}

func (s *SlowStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	return s.Store.Load(ctx, id)
}

func TestManager_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := session.NewManager(memory.NewStore(), session.WithClock(func() time.Time { return now }))

	s, err := m.GetOrCreate(ctx, "bot", "alice")
	require.NoError(t, err)
	assert.Equal(t, "bot:alice", s.ID)
	assert.Nil(t, s.CurrentBlockID)
	assert.Nil(t, s.CurrentNodeID)
	assert.Equal(t, now, s.CreatedAt)

	s.Context.Set("name", "Alice")
	require.NoError(t, m.UpdateBlockPointer(ctx, s, domain.StringPtr("b1"), 2, s.Context))

	again, err := m.GetOrCreate(ctx, "bot", "alice")
	require.NoError(t, err)
	assert.Equal(t, "b1", *again.CurrentBlockID)
	assert.Equal(t, 2, again.CurrentCardIndex)
	name, _ := again.Context.Get("name")
	assert.Equal(t, "Alice", name)
}

func TestManager_GetOrCreate_Concurrent(t *testing.T) {
	store := newSlowStore()
	m := session.NewManager(store)
	ctx := context.Background()
	key := domain.SessionKey("bot", "bob")

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithLock(ctx, key, func(ctx context.Context) error {
				_, err := m.GetOrCreate(ctx, "bot", "bob")
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.saves, "only the first caller creates the session")
}

func TestManager_PointersAreExclusive(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m := session.NewManager(store)
	s, err := m.GetOrCreate(ctx, "bot", "carol")
	require.NoError(t, err)

	require.NoError(t, m.UpdateNodePointer(ctx, s, domain.StringPtr("ask"), domain.VarsOf("a", "1")))
	loaded, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "ask", *loaded.CurrentNodeID)
	assert.Nil(t, loaded.CurrentBlockID)

	require.NoError(t, m.UpdateBlockPointer(ctx, s, domain.StringPtr("b"), 1, s.Context))
	loaded, err = store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.CurrentNodeID)
	assert.Equal(t, "b", *loaded.CurrentBlockID)

	require.NoError(t, m.UpdateBlockPointer(ctx, s, nil, 7, s.Context))
	loaded, err = store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.CurrentBlockID)
	assert.Equal(t, 0, loaded.CurrentCardIndex)
}

func TestManager_Reset(t *testing.T) {
	ctx := context.Background()
	m := session.NewManager(memory.NewStore())
	s, err := m.GetOrCreate(ctx, "bot", "dan")
	require.NoError(t, err)
	require.NoError(t, m.UpdateNodePointer(ctx, s, domain.StringPtr("n"), domain.VarsOf("k", "v")))

	require.NoError(t, m.Reset(ctx, s))
	loaded, err := m.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.CurrentNodeID)
	assert.Equal(t, 0, loaded.Context.Len())
}

func TestManager_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	m := session.NewManager(memory.NewStore())
	_, err := m.GetOrCreate(ctx, "bot", "a")
	require.NoError(t, err)
	_, err = m.GetOrCreate(ctx, "bot", "b")
	require.NoError(t, err)

	ids, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bot:a", "bot:b"}, ids)

	require.NoError(t, m.Delete(ctx, "bot:a"))
	_, err = m.Load(ctx, "bot:a")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_WithLockSerializes(t *testing.T) {
	m := session.NewManager(memory.NewStore())
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.WithLock(ctx, "bot:same", func(context.Context) error {
				mu.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

type fakeLocker struct {
	mu       sync.Mutex
	locked   []string
	released int
	ttl      time.Duration
	err      error
}

func (l *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	l.locked = append(l.locked, key)
	l.ttl = ttl
	l.mu.Unlock()
	return func(context.Context) error {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &fakeLocker{}
	m := session.NewManager(memory.NewStore(), session.WithLocker(locker))

	require.NoError(t, m.WithLock(context.Background(), "bot:x", func(context.Context) error { return nil }))
	assert.Equal(t, []string{"bot:x"}, locker.locked)
	assert.Equal(t, 1, locker.released)
	assert.Equal(t, session.DefaultLockTTL, locker.ttl)

	locker.err = errors.New("redis down")
	called := false
	err := m.WithLock(context.Background(), "bot:x", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorContains(t, err, "redis down")
	assert.False(t, called)
}
