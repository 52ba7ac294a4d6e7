package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/botflow/internal/logging"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed session lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
//
// GetOrCreate, UpdateBlockPointer, UpdateNodePointer and Reset do not lock: they are
// meant to run inside WithLock for the session key. Load, Save and Delete lock on their own.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock replaces time.Now for CreatedAt/UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// WithLock executes fn while holding the lock for the session key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// the turn context may already be canceled; the lock still has to go
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// GetOrCreate loads the session of (botID, senderID), creating and persisting an idle
// one when none exists.
func (m *Manager) GetOrCreate(ctx context.Context, botID, senderID string) (*domain.Session, error) {
	key := domain.SessionKey(botID, senderID)
	s, err := m.store.Load(ctx, key)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to check session existence: %w", err)
	}

	s = domain.NewSession(botID, senderID, m.now())
	if err := m.store.Save(ctx, key, s); err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	m.logger.Debug("session created", "session_id", key)
	return s, nil
}

// UpdateBlockPointer points s at a block card (nil clears it), clears the node pointer
// and persists s with vars as its context.
func (m *Manager) UpdateBlockPointer(ctx context.Context, s *domain.Session, blockID *string, cardIndex int, vars domain.Vars) error {
	s.SetBlockPointer(blockID, cardIndex)
	s.Context = vars
	return m.persist(ctx, s)
}

// UpdateNodePointer points s at a legacy graph node (nil clears it), clears the block
// pointer and persists s with vars as its context.
func (m *Manager) UpdateNodePointer(ctx context.Context, s *domain.Session, nodeID *string, vars domain.Vars) error {
	s.SetNodePointer(nodeID)
	s.Context = vars
	return m.persist(ctx, s)
}

// Reset clears both pointers and the context of s and persists it.
func (m *Manager) Reset(ctx context.Context, s *domain.Session) error {
	s.Reset()
	return m.persist(ctx, s)
}

func (m *Manager) persist(ctx context.Context, s *domain.Session) error {
	s.UpdatedAt = m.now()
	if err := m.store.Save(ctx, s.ID, s); err != nil {
		return fmt.Errorf("failed to save session %s: %w", s.ID, err)
	}
	return nil
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, key string) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		var err error
		s, err = m.store.Load(ctx, key)
		return err
	})
	return s, err
}

// Save persists the session.
func (m *Manager) Save(ctx context.Context, s *domain.Session) error {
	return m.WithLock(ctx, s.ID, func(ctx context.Context) error {
		return m.store.Save(ctx, s.ID, s)
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, key string) error {
	return m.WithLock(ctx, key, func(ctx context.Context) error {
		return m.store.Delete(ctx, key)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}
