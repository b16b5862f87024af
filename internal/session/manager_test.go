package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coaching-chat/internal/logger"
	"coaching-chat/internal/models"
	"coaching-chat/internal/store"
)

func newTestManager(backend Backend, s store.Store) *Manager {
	return NewManager(logger.NewNop(), func(Identity) Backend { return backend }, s)
}

func TestManager_ReusesEnginePerPrincipal(t *testing.T) {
	m := newTestManager(&mockBackend{}, store.NewMemory())
	ctx := context.Background()

	a := m.Engine(ctx, subscriberIdentity())
	b := m.Engine(ctx, subscriberIdentity())
	assert.Same(t, a, b)
	assert.Equal(t, 1, m.Count())

	c := m.Engine(ctx, guestIdentity())
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, m.Count())
}

func TestManager_DropAllowsFreshStart(t *testing.T) {
	m := newTestManager(&mockBackend{startID: 5}, store.NewMemory())
	ctx := context.Background()

	eng := m.Engine(ctx, subscriberIdentity())
	_, err := eng.Start(ctx, StartParams{CoachID: "sarah-mitchell"})
	require.NoError(t, err)
	_, err = eng.End(ctx, false)
	require.NoError(t, err)

	m.Drop("user:u1")
	fresh := m.Engine(ctx, subscriberIdentity())
	assert.NotSame(t, eng, fresh)
	assert.Equal(t, models.StatusNotStarted, fresh.Status())
}

func TestManager_NewEngineAdoptsPausedMarker(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, store.PausedSessionKey("user:u1"), "31"))
	require.NoError(t, s.Set(ctx, store.PausedAtKey("user:u1"), "2026-02-27T18:30:00Z"))

	m := newTestManager(&mockBackend{history: []models.Message{
		{Role: models.RoleUser, Content: "where were we"},
	}}, s)

	eng := m.Engine(ctx, subscriberIdentity())
	assert.Equal(t, models.StatusPaused, eng.Status())
	assert.Equal(t, int64(31), eng.SessionID())
	assert.False(t, eng.PausedAt().IsZero())

	// And the adopted session is resumable.
	_, err := eng.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, eng.Status())
}

func TestManager_ShutdownPausesActiveEngines(t *testing.T) {
	s := store.NewMemory()
	m := newTestManager(&mockBackend{startID: 8}, s)
	ctx := context.Background()

	eng := m.Engine(ctx, subscriberIdentity())
	_, err := eng.Start(ctx, StartParams{CoachID: "sarah-mitchell"})
	require.NoError(t, err)

	m.Shutdown(ctx)

	assert.Equal(t, 0, m.Count())
	id, ok, _ := s.Get(ctx, store.PausedSessionKey("user:u1"))
	assert.True(t, ok, "active session persisted as paused for later resume")
	assert.Equal(t, "8", id)
}
