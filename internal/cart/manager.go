package cart

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_storefront/internal/cart/storage"
	"golang.org/x/sync/singleflight"
)

const DefaultIdleTTL = 30 * time.Minute

// Manager hands out one Store per session so concurrent requests of a
// session serialize on the same lock. Stores unused for idleTTL are dropped
// and reloaded from snapshot storage on the next open.
type Manager struct {
	storage storage.SnapshotStorage
	logger  *slog.Logger
	sfg     singleflight.Group // concurrent opens of one session share a load

	mu        sync.Mutex
	stores    map[string]*entry
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type entry struct {
	store    *Store
	lastUsed time.Time
}

type ManagerOption func(*Manager)

// WithIdleTTL sets how long an unused Store stays cached.
func WithIdleTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.idleTTL = ttl
		}
	}
}

func withClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(st storage.SnapshotStorage, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		storage: st,
		logger:  logger,
		stores:  make(map[string]*entry),
		idleTTL: DefaultIdleTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastSweep = m.now()
	return m
}

func (m *Manager) Open(ctx context.Context, sessionID string) (*Store, error) {
	if s := m.cached(sessionID); s != nil {
		return s, nil
	}

	v, err, _ := m.sfg.Do(sessionID, func() (interface{}, error) {
		if s := m.cached(sessionID); s != nil {
			return s, nil
		}
		s, err := Load(ctx, m.storage, sessionID, m.logger)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.stores[sessionID] = &entry{store: s, lastUsed: m.now()}
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

// Len reports how many stores are cached.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}

func (m *Manager) cached(sessionID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) >= m.idleTTL {
		m.evictIdle(now)
	}
	e, ok := m.stores[sessionID]
	if !ok {
		return nil
	}
	e.lastUsed = now
	return e.store
}

// evictIdle must be called with mu held.
func (m *Manager) evictIdle(now time.Time) {
	for id, e := range m.stores {
		if now.Sub(e.lastUsed) >= m.idleTTL {
			delete(m.stores, id)
		}
	}
	m.lastSweep = now
	m.logger.Debug("evicted idle carts", "cached", len(m.stores))
}
