package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coaching-chat/internal/access"
	"coaching-chat/internal/models"
	"coaching-chat/internal/store"
)

// mockBackend records collaborator calls and returns scripted results.
type mockBackend struct {
	mu sync.Mutex

	startCalls int
	startID    int64
	startErr   error

	sendCalls int
	reply     string
	sendErr   error
	sendHook  func() // runs while the reply request is "in flight"

	guestCalls int
	guestReply string
	guestErr   error

	history []models.Message
	getErr  error

	summary    models.SessionSummary
	summaryErr error

	endCalls   int
	endSummary *models.SessionSummary
	endErr     error
}

func (b *mockBackend) StartSession(_ context.Context, _ models.SessionMode) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.startCalls++
	return b.startID, b.startErr
}

func (b *mockBackend) SendMessage(_ context.Context, _ int64, _ string, _ models.SessionMode, _ string) (string, error) {
	b.mu.Lock()
	b.sendCalls++
	hook := b.sendHook
	b.mu.Unlock()
	if hook != nil {
		hook()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reply, b.sendErr
}

func (b *mockBackend) GuestChat(_ context.Context, _, _, _, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.guestCalls++
	return b.guestReply, b.guestErr
}

func (b *mockBackend) GetSession(_ context.Context, _ int64) ([]models.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history, b.getErr
}

func (b *mockBackend) GenerateSummary(_ context.Context, _ int64) (models.SessionSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.summary, b.summaryErr
}

func (b *mockBackend) EndSession(_ context.Context, _ int64, _ bool) (*models.SessionSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endCalls++
	return b.endSummary, b.endErr
}

func subscriberIdentity() Identity {
	return Identity{
		Principal:  "user:u1",
		UserID:     "u1",
		FirstName:  "Dana",
		AccessMode: access.ModeSubscriber,
	}
}

func guestIdentity() Identity {
	return Identity{
		Principal:   "guest:PASS-123",
		AccessMode:  access.ModeGuest,
		GuestCode:   "PASS-123",
		Fingerprint: "fp-abc",
	}
}

func newTestEngine(t *testing.T, backend Backend, s store.Store, id Identity) *Engine {
	t.Helper()
	var n int
	return NewEngine(Config{
		Backend:  backend,
		Store:    s,
		Identity: id,
		Now:      func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
		NewID: func() string {
			n++
			return "msg-" + strconv.Itoa(n)
		},
	})
}

func TestStart_GuestNeverCallsStartCollaborator(t *testing.T) {
	backend := &mockBackend{startID: 99}
	eng := newTestEngine(t, backend, store.NewMemory(), guestIdentity())

	_, err := eng.Start(context.Background(), StartParams{CoachID: "sarah-mitchell", Mode: models.ModeFull})
	require.NoError(t, err)

	assert.Equal(t, 0, backend.startCalls)
	assert.Equal(t, models.GuestSessionID, eng.SessionID())
	assert.Equal(t, models.StatusActive, eng.Status())
}

func TestStart_SubscriberStoresReturnedID(t *testing.T) {
	backend := &mockBackend{startID: 42}
	eng := newTestEngine(t, backend, store.NewMemory(), subscriberIdentity())

	_, err := eng.Start(context.Background(), StartParams{CoachID: "sarah-mitchell", Mode: models.ModeQuick})
	require.NoError(t, err)

	assert.Equal(t, 1, backend.startCalls)
	assert.Equal(t, int64(42), eng.SessionID())
	assert.Equal(t, models.ModeQuick, eng.Mode())
}

func TestStart_GreetingUsesFirstName(t *testing.T) {
	eng := newTestEngine(t, &mockBackend{startID: 1}, store.NewMemory(), subscriberIdentity())

	greeting, err := eng.Start(context.Background(), StartParams{CoachID: "sarah-mitchell"})
	require.NoError(t, err)

	assert.Equal(t, models.RoleAssistant, greeting.Role)
	assert.Contains(t, greeting.Content, "Dana")

	_, msgs := eng.Snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, greeting.Content, msgs[0].Content)
}

func TestStart_RejectedWhileAlreadyActive(t *testing.T) {
	eng := newTestEngine(t, &mockBackend{startID: 1}, store.NewMemory(), subscriberIdentity())

	_, err := eng.Start(context.Background(), StartParams{CoachID: "sarah-mitchell"})
	require.NoError(t, err)

	_, err = eng.Start(context.Background(), StartParams{CoachID: "marcus-webb"})
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestStart_DeniedAndPendingModesRejected(t *testing.T) {
	for _, mode := range []access.Mode{access.ModeDenied, access.ModePending} {
		eng := newTestEngine(t, &mockBackend{}, store.NewMemory(), Identity{
			Principal:  "user:u2",
			AccessMode: mode,
		})
		_, err := eng.Start(context.Background(), StartParams{CoachID: "sarah-mitchell"})
		assert.ErrorIs(t, err, ErrAccessDenied, "mode %s", mode)
	}
}

func TestStart_CollaboratorFailureStaysNotStarted(t *testing.T) {
	backend := &mockBackend{startErr: errors.New("backend down")}
	eng := newTestEngine(t, backend, store.NewMemory(), subscriberIdentity())

	_, err := eng.Start(context.Background(), StartParams{CoachID: "sarah-mitchell"})
	require.Error(t, err)
	assert.Equal(t, models.StatusNotStarted, eng.Status())
}

func TestSend_EmptyMessageLeavesMessagesUnchanged(t *testing.T) {
	eng := newTestEngine(t, &mockBackend{startID: 1, reply: "ok"}, store.NewMemory(), subscriberIdentity())
	_, err := eng.Start(context.Background(), StartParams{CoachID: "sarah-mitchell"})
	require.NoError(t, err)
	_, before := eng.Snapshot()

	for _, content := range []string{"", "   ", "\n\t"} {
		msg, err := eng.Send(context.Background(), content)
		require.NoError(t, err)
		assert.Nil(t, msg)
	}

	_, after := eng.Snapshot()
	assert.Equal(t, before, after)
}

func TestSend_AppendsUserThenAssistantWithStreamingID(t *testing.T) {
	backend := &mockBackend{startID: 1, reply: "Let's look at that decision together."}
	eng := newTestEngine(t, backend, store.NewMemory(), subscriberIdentity())
	_, err := eng.Start(context.Background(), StartParams{CoachID: "sarah-mitchell"})
	require.NoError(t, err)
	_, before := eng.Snapshot()

	reply, err := eng.Send(context.Background(), "What's the decision?")
	require.NoError(t, err)
	require.NotNil(t, reply)

	_, after := eng.Snapshot()
	require.Len(t, after, len(before)+2)

	userMsg := after[len(after)-2]
	assistantMsg := after[len(after)-1]
	assert.Equal(t, models.RoleUser, userMsg.Role)
	assert.Equal(t, "What's the decision?", userMsg.Content)
	assert.Equal(t, models.RoleAssistant, assistantMsg.Role)
	assert.Equal(t, "Let's look at that decision together.", assistantMsg.Content)
	assert.NotEmpty(t, assistantMsg.ID)
	assert.True(t, assistantMsg.Streaming, "assistant reply should be streaming-eligible")
	assert.False(t, userMsg.Streaming)
}

func TestSend_CollaboratorFailureSubstitutesApology(t *testing.T) {
	backend := &mockBackend{startID: 1, sendErr: errors.New("upstream 500")}
	eng := newTestEngine(t, backend, store.NewMemory(), subscriberIdentity())
	_, err := eng.Start(context.Background(), StartParams{CoachID: "sarah-mitchell"})
	require.NoError(t, err)

	reply, err := eng.Send(context.Background(), "hello?")
	require.NoError(t, err)
	require.NotNil(t, reply)

	_, msgs := eng.Snapshot()
	last := msgs[len(msgs)-1]
	assert.Equal(t, models.RoleAssistant, last.Role)
	assert.Contains(t, last.Content, "couldn't respond")
	assert.False(t, last.Streaming)

	// The user's own message was not lost.
	assert.Equal(t, "hello?", msgs[len(msgs)-2].Content)
}

func TestSend_GuestUsesGuestChatPath(t *testing.T) {
	backend := &mockBackend{guestReply: "Welcome, guest."}
	eng := newTestEngine(t, backend, store.NewMemory(), guestIdentity())
	_, err := eng.Start(context.Background(), StartParams{CoachID: "elena-reyes"})
	require.NoError(t, err)

	_, err = eng.Send(context.Background(), "hi")
	require.NoError(t, err)

	assert.Equal(t, 1, backend.guestCalls)
	assert.Equal(t, 0, backend.sendCalls)
}

func TestSend_BeforeStartIsNoOp(t *testing.T) {
	eng := newTestEngine(t, &mockBackend{}, store.NewMemory(), subscriberIdentity())

	msg, err := eng.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Nil(t, msg)

	_, msgs := eng.Snapshot()
	assert.Empty(t, msgs)
}

func TestSend_StaleReplyDiscardedAfterPause(t *testing.T) {
	backend := &mockBackend{startID: 1, reply: "too late"}
	s := store.NewMemory()
	eng := newTestEngine(t, backend, s, subscriberIdentity())
	_, err := eng.Start(context.Background(), StartParams{CoachID: "sarah-mitchell"})
	require.NoError(t, err)

	paused := make(chan struct{})
	backend.sendHook = func() {
		// Pause the session while the reply request is outstanding.
		require.NoError(t, eng.Pause(context.Background()))
		close(paused)
	}

	reply, err := eng.Send(context.Background(), "slow question")
	require.NoError(t, err)
	<-paused

	assert.Nil(t, reply, "reply that settled after pause must be discarded")
	assert.Equal(t, models.StatusPaused, eng.Status())
	_, msgs := eng.Snapshot()
	assert.Empty(t, msgs, "paused session shows the empty start state")
}

func TestPause_PersistsMarkersAndClearsVisibleMessages(t *testing.T) {
	s := store.NewMemory()
	eng := newTestEngine(t, &mockBackend{startID: 7, reply: "ok"}, s, subscriberIdentity())
	ctx := context.Background()
	_, err := eng.Start(ctx, StartParams{CoachID: "sarah-mitchell"})
	require.NoError(t, err)
	_, err = eng.Send(ctx, "before pausing")
	require.NoError(t, err)

	require.NoError(t, eng.Pause(ctx))

	assert.Equal(t, models.StatusPaused, eng.Status())
	_, msgs := eng.Snapshot()
	assert.Empty(t, msgs)

	id, ok, _ := s.Get(ctx, store.PausedSessionKey("user:u1"))
	assert.True(t, ok)
	assert.Equal(t, "7", id)
	_, ok, _ = s.Get(ctx, store.PausedAtKey("user:u1"))
	assert.True(t, ok)
}

func TestPause_RequiresActive(t *testing.T) {
	eng := newTestEngine(t, &mockBackend{}, store.NewMemory(), subscriberIdentity())
	assert.ErrorIs(t, eng.Pause(context.Background()), ErrNotActive)
}

func TestResume_RestoresFetchedHistoryAndClearsMarkers(t *testing.T) {
	history := []models.Message{
		{Role: models.RoleAssistant, Content: "Welcome."},
		{Role: models.RoleUser, Content: "I keep avoiding the reorg. It's overdue."},
		{Role: models.RoleAssistant, Content: "What's the first step?"},
	}
	backend := &mockBackend{startID: 7, history: history, summaryErr: errors.New("summary service down")}
	s := store.NewMemory()
	eng := newTestEngine(t, backend, s, subscriberIdentity())
	ctx := context.Background()
	_, err := eng.Start(ctx, StartParams{CoachID: "sarah-mitchell"})
	require.NoError(t, err)
	require.NoError(t, eng.Pause(ctx))

	summary, err := eng.Resume(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.StatusActive, eng.Status())
	_, msgs := eng.Snapshot()
	assert.Equal(t, history, msgs)

	// Summary failure fell back to the last user message's first sentence.
	assert.Contains(t, summary, "I keep avoiding the reorg.")

	_, ok, _ := s.Get(ctx, store.PausedSessionKey("user:u1"))
	assert.False(t, ok, "pause marker cleared on successful resume")
	_, ok, _ = s.Get(ctx, store.PausedAtKey("user:u1"))
	assert.False(t, ok)
}

func TestResume_FetchFailureKeepsPausedStateAndMarkers(t *testing.T) {
	backend := &mockBackend{startID: 7, getErr: errors.New("fetch failed")}
	s := store.NewMemory()
	eng := newTestEngine(t, backend, s, subscriberIdentity())
	ctx := context.Background()
	_, err := eng.Start(ctx, StartParams{CoachID: "sarah-mitchell"})
	require.NoError(t, err)
	require.NoError(t, eng.Pause(ctx))

	_, err = eng.Resume(ctx)
	require.Error(t, err)

	assert.Equal(t, models.StatusPaused, eng.Status())
	_, ok, _ := s.Get(ctx, store.PausedSessionKey("user:u1"))
	assert.True(t, ok, "pause marker retained on fetch failure")
}

func TestResume_UsesGeneratedSummaryWhenAvailable(t *testing.T) {
	backend := &mockBackend{
		startID: 7,
		history: []models.Message{{Role: models.RoleUser, Content: "delegation trouble"}},
		summary: models.SessionSummary{Text: "You worked on delegation."},
	}
	eng := newTestEngine(t, backend, store.NewMemory(), subscriberIdentity())
	ctx := context.Background()
	_, err := eng.Start(ctx, StartParams{CoachID: "sarah-mitchell"})
	require.NoError(t, err)
	require.NoError(t, eng.Pause(ctx))

	summary, err := eng.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "You worked on delegation.", summary)
}

func TestResume_WithoutPausedSession(t *testing.T) {
	eng := newTestEngine(t, &mockBackend{}, store.NewMemory(), subscriberIdentity())
	_, err := eng.Resume(context.Background())
	assert.ErrorIs(t, err, ErrNotPaused)
}

func TestEnd_ClearsBothMarkersRegardlessOfSummary(t *testing.T) {
	tests := []struct {
		name    string
		backend *mockBackend
	}{
		{"with summary", &mockBackend{startID: 7, endSummary: &models.SessionSummary{Text: "done"}}},
		{"no summary", &mockBackend{startID: 7}},
		{"end collaborator fails", &mockBackend{startID: 7, endErr: errors.New("mailer down")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := store.NewMemory()
			eng := newTestEngine(t, tt.backend, s, subscriberIdentity())
			ctx := context.Background()
			_, err := eng.Start(ctx, StartParams{CoachID: "sarah-mitchell"})
			require.NoError(t, err)
			require.NoError(t, eng.Pause(ctx))

			_, err = eng.End(ctx, true)
			require.NoError(t, err)

			assert.Equal(t, models.StatusEnded, eng.Status())
			_, ok, _ := s.Get(ctx, store.PausedSessionKey("user:u1"))
			assert.False(t, ok)
			_, ok, _ = s.Get(ctx, store.PausedAtKey("user:u1"))
			assert.False(t, ok)
		})
	}
}

func TestEnd_IsTerminal(t *testing.T) {
	eng := newTestEngine(t, &mockBackend{startID: 7}, store.NewMemory(), subscriberIdentity())
	ctx := context.Background()
	_, err := eng.Start(ctx, StartParams{CoachID: "sarah-mitchell"})
	require.NoError(t, err)
	_, err = eng.End(ctx, false)
	require.NoError(t, err)

	_, err = eng.End(ctx, false)
	assert.ErrorIs(t, err, ErrEnded)
	_, err = eng.Start(ctx, StartParams{CoachID: "sarah-mitchell"})
	assert.ErrorIs(t, err, ErrEnded)
}

func TestEnd_GuestSkipsEndCollaborator(t *testing.T) {
	backend := &mockBackend{}
	eng := newTestEngine(t, backend, store.NewMemory(), guestIdentity())
	ctx := context.Background()
	_, err := eng.Start(ctx, StartParams{CoachID: "elena-reyes"})
	require.NoError(t, err)

	summary, err := eng.End(ctx, false)
	require.NoError(t, err)
	assert.Nil(t, summary)
	assert.Equal(t, 0, backend.endCalls)
}

func TestSetCoach_PreservesHistoryStatusAndMode(t *testing.T) {
	eng := newTestEngine(t, &mockBackend{startID: 1, reply: "ok"}, store.NewMemory(), subscriberIdentity())
	ctx := context.Background()
	_, err := eng.Start(ctx, StartParams{CoachID: "sarah-mitchell", Mode: models.ModeFull})
	require.NoError(t, err)
	_, err = eng.Send(ctx, "first topic")
	require.NoError(t, err)
	_, before := eng.Snapshot()

	require.NoError(t, eng.SetCoach("marcus-webb"))

	assert.Equal(t, "marcus-webb", eng.CoachID())
	assert.Equal(t, models.StatusActive, eng.Status())
	assert.Equal(t, models.ModeFull, eng.Mode())
	_, after := eng.Snapshot()
	assert.Equal(t, before, after)
}

func TestSetCoach_RequiresActive(t *testing.T) {
	eng := newTestEngine(t, &mockBackend{}, store.NewMemory(), subscriberIdentity())
	assert.ErrorIs(t, eng.SetCoach("marcus-webb"), ErrNotActive)
}

func TestGuest_HistoryPersistedPerPassCode(t *testing.T) {
	s := store.NewMemory()
	backend := &mockBackend{guestReply: "noted"}
	eng := newTestEngine(t, backend, s, guestIdentity())
	ctx := context.Background()
	_, err := eng.Start(ctx, StartParams{CoachID: "elena-reyes"})
	require.NoError(t, err)
	_, err = eng.Send(ctx, "remember this")
	require.NoError(t, err)

	raw, ok, _ := s.Get(ctx, store.GuestHistoryKey("PASS-123"))
	require.True(t, ok)
	assert.Contains(t, raw, "remember this")

	// A fresh engine for the same pass code restores the conversation.
	eng2 := newTestEngine(t, backend, s, guestIdentity())
	_, err = eng2.Start(ctx, StartParams{CoachID: "elena-reyes"})
	require.NoError(t, err)
	_, msgs := eng2.Snapshot()
	var contents []string
	for _, m := range msgs {
		contents = append(contents, m.Content)
	}
	assert.Contains(t, contents, "remember this")
}
