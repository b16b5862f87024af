package session

import (
	"context"
	"sync"

	"coaching-chat/internal/logger"
	"coaching-chat/internal/models"
	"coaching-chat/internal/store"
)

// Manager hosts the live session engines, one per principal. Engines are
// created lazily from resolved identities, adopt any persisted pause marker
// on first use, and are dropped when their session ends or the principal
// logs out.
type Manager struct {
	log     *logger.Logger
	factory BackendFactory
	store   store.Store

	mu       sync.RWMutex
	notifier Notifier
	engines  map[string]*Engine
}

// NewManager creates an empty manager.
func NewManager(log *logger.Logger, factory BackendFactory, s store.Store) *Manager {
	return &Manager{
		log:     log,
		factory: factory,
		store:   s,
		engines: make(map[string]*Engine),
	}
}

// SetNotifier sets the event fan-out for all engines created afterwards.
func (m *Manager) SetNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = n
}

// Engine returns the live engine for the identity, creating one if needed.
// A freshly created engine checks the durable store for an interrupted
// session before serving its first operation.
func (m *Manager) Engine(ctx context.Context, id Identity) *Engine {
	m.mu.RLock()
	eng, ok := m.engines[id.Principal]
	m.mu.RUnlock()
	if ok {
		return eng
	}

	m.mu.Lock()
	if eng, ok := m.engines[id.Principal]; ok {
		m.mu.Unlock()
		return eng
	}
	eng = NewEngine(Config{
		Log:      m.log,
		Backend:  m.factory(id),
		Store:    m.store,
		Notifier: m.notifier,
		Identity: id,
	})
	m.engines[id.Principal] = eng
	m.mu.Unlock()

	eng.AdoptPaused(ctx)
	m.log.Info("engine created", "principal", id.Principal, "access_mode", id.AccessMode)
	return eng
}

// Peek returns the engine for a principal without creating one.
func (m *Manager) Peek(principal string) (*Engine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	eng, ok := m.engines[principal]
	return eng, ok
}

// Drop discards the engine for a principal. Ended is terminal for an engine
// instance, so this is how "start again" gets a fresh not_started machine; it
// is also the logout path. Dropping without pausing loses the in-memory
// conversation.
func (m *Manager) Drop(principal string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.engines[principal]; ok {
		delete(m.engines, principal)
		m.log.Info("engine dropped", "principal", principal)
	}
}

// Count returns the number of live engines.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.engines)
}

// Shutdown pauses every active engine so interrupted sessions can be resumed
// after a restart, then discards all engines.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	engines := m.engines
	m.engines = make(map[string]*Engine)
	m.mu.Unlock()

	for principal, eng := range engines {
		if eng.Status() == models.StatusActive {
			if err := eng.Pause(ctx); err != nil {
				m.log.Warn("failed to pause engine during shutdown", "principal", principal, "err", err)
			}
		}
	}
	m.log.Info("session manager shut down", "engines", len(engines))
}
