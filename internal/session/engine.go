package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"coaching-chat/internal/access"
	"coaching-chat/internal/logger"
	"coaching-chat/internal/logic"
	"coaching-chat/internal/models"
	"coaching-chat/internal/store"
)

var (
	// ErrAccessDenied means the resolved access mode does not permit coaching.
	ErrAccessDenied = errors.New("access mode does not permit coaching")
	// ErrAlreadyStarted guards start re-entrancy: a session may only start
	// from not_started.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrNotActive means the operation requires an active session.
	ErrNotActive = errors.New("session is not active")
	// ErrNotPaused means resume was called without a paused session.
	ErrNotPaused = errors.New("no paused session to resume")
	// ErrEnded means the session instance is terminal.
	ErrEnded = errors.New("session has ended")
	// ErrBusy means the same operation is already in flight on this session.
	ErrBusy = errors.New("operation already in flight")
)

// Config wires an Engine.
type Config struct {
	Log      *logger.Logger
	Backend  Backend
	Store    store.Store
	Notifier Notifier
	Identity Identity

	// Now and NewID are injectable for tests.
	Now   func() time.Time
	NewID func() string
}

// Engine is the per-principal coaching session state machine. One logical
// mutation is in flight at a time; suspension points release the lock around
// collaborator calls and re-check the session epoch before applying results,
// so a reply that lands after a pause or end is discarded rather than applied
// to a session it no longer belongs to.
type Engine struct {
	log      *logger.Logger
	backend  Backend
	store    store.Store
	notifier Notifier
	identity Identity
	now      func() time.Time
	newID    func() string

	mu        sync.Mutex
	sessionID int64
	coachID   string
	status    models.SessionStatus
	mode      models.SessionMode
	messages  []models.Message
	pausedAt  time.Time
	epoch     uint64

	starting bool
	sending  bool
	resuming bool
	ending   bool
}

// NewEngine creates an engine in the not_started state.
func NewEngine(cfg Config) *Engine {
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Engine{
		log:      log.With("principal", cfg.Identity.Principal),
		backend:  cfg.Backend,
		store:    cfg.Store,
		notifier: cfg.Notifier,
		identity: cfg.Identity,
		now:      now,
		newID:    newID,
		status:   models.StatusNotStarted,
	}
}

// AdoptPaused checks the durable store for a pause marker left by an earlier
// engine instance and, if found, moves to paused so the session can be
// resumed. Called once, before the engine serves its first operation.
func (e *Engine) AdoptPaused(ctx context.Context) {
	if e.store == nil {
		return
	}
	raw, ok, err := e.store.Get(ctx, store.PausedSessionKey(e.identity.Principal))
	if err != nil || !ok {
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != models.StatusNotStarted {
		return
	}
	e.sessionID = id
	e.status = models.StatusPaused
	if at, ok, err := e.store.Get(ctx, store.PausedAtKey(e.identity.Principal)); err == nil && ok {
		if ts, err := time.Parse(time.RFC3339, at); err == nil {
			e.pausedAt = ts
		}
	}
	e.log.Info("adopted paused session", "session_id", id, "paused_at", e.pausedAt)
}

// StartParams selects the coach and depth for a new session.
type StartParams struct {
	CoachID string
	Mode    models.SessionMode
}

// Start moves not_started -> active. Guest sessions never create a
// server-side record and use the sentinel session id; other modes call the
// start collaborator and store the returned id. On entry the greeting is
// appended and the mode is frozen for the session's lifetime.
func (e *Engine) Start(ctx context.Context, p StartParams) (models.Message, error) {
	if !e.identity.AccessMode.CanSend() {
		return models.Message{}, ErrAccessDenied
	}
	if p.Mode == "" {
		p.Mode = models.ModeFull
	}

	e.mu.Lock()
	switch e.status {
	case models.StatusNotStarted:
	case models.StatusEnded:
		e.mu.Unlock()
		return models.Message{}, ErrEnded
	default:
		e.mu.Unlock()
		return models.Message{}, ErrAlreadyStarted
	}
	if e.starting {
		e.mu.Unlock()
		return models.Message{}, ErrBusy
	}
	e.starting = true
	epoch := e.epoch
	guest := e.isGuest()
	e.mu.Unlock()

	var sessionID int64 = models.GuestSessionID
	var restored []models.Message
	var err error
	if guest {
		restored = e.loadGuestHistory(ctx)
	} else {
		sessionID, err = e.backend.StartSession(ctx, p.Mode)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.starting = false
	if err != nil {
		return models.Message{}, fmt.Errorf("start session: %w", err)
	}
	if e.epoch != epoch || e.status != models.StatusNotStarted {
		return models.Message{}, ErrAlreadyStarted
	}

	e.sessionID = sessionID
	e.coachID = p.CoachID
	e.mode = p.Mode
	e.status = models.StatusActive
	e.messages = restored

	greeting := models.Message{
		ID:        e.newID(),
		Role:      models.RoleAssistant,
		Content:   logic.Greeting(e.identity.FirstName),
		CreatedAt: e.now(),
	}
	e.messages = append(e.messages, greeting)
	e.notifyMessage(greeting)

	e.log.Info("session started",
		"session_id", e.sessionID, "coach_id", e.coachID, "mode", e.mode, "access_mode", e.identity.AccessMode)
	return greeting, nil
}

// Send appends the user message optimistically, dispatches the reply request
// tagged with the current coach, and appends the reply (or a fixed apology on
// collaborator failure). Sending outside active, or sending empty/whitespace
// content, is a silent no-op; nil, nil is returned for both.
func (e *Engine) Send(ctx context.Context, content string) (*models.Message, error) {
	trimmed, ok := logic.ValidateMessage(content)
	if !ok {
		return nil, nil
	}

	e.mu.Lock()
	if e.status != models.StatusActive {
		e.mu.Unlock()
		return nil, nil
	}
	if e.sending {
		e.mu.Unlock()
		return nil, ErrBusy
	}
	e.sending = true

	userMsg := models.Message{
		ID:        e.newID(),
		Role:      models.RoleUser,
		Content:   trimmed,
		CreatedAt: e.now(),
	}
	e.messages = append(e.messages, userMsg)
	e.notifyMessage(userMsg)

	epoch := e.epoch
	sessionID := e.sessionID
	mode := e.mode
	coachID := e.coachID
	guest := e.isGuest()
	e.mu.Unlock()

	e.log.Debug("dispatching reply request",
		"session_id", sessionID, "coach_id", coachID, "content", logic.TruncateForLog(trimmed, 100))

	var replyText string
	var err error
	if guest {
		replyText, err = e.backend.GuestChat(ctx, e.identity.GuestCode, trimmed, e.identity.Fingerprint, coachID)
	} else {
		replyText, err = e.backend.SendMessage(ctx, sessionID, trimmed, mode, coachID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.sending = false

	// Stale-response guard: the session was paused, ended, or otherwise moved
	// on while the request was in flight. Discard the result.
	if e.epoch != epoch {
		e.log.Debug("discarding stale reply", "session_id", sessionID)
		return nil, nil
	}

	reply := models.Message{
		ID:        e.newID(),
		Role:      models.RoleAssistant,
		CreatedAt: e.now(),
	}
	if err != nil {
		e.log.Warn("reply collaborator failed, substituting apology", "session_id", sessionID, "err", err)
		reply.Content = logic.ApologyMessage
	} else {
		reply.Content = replyText
		reply.Streaming = true
	}
	e.messages = append(e.messages, reply)
	e.notifyMessage(reply)

	if guest {
		e.saveGuestHistoryLocked(ctx)
	}
	return &reply, nil
}

// SetCoach switches the coach mid-session without touching messages, status,
// or mode.
func (e *Engine) SetCoach(coachID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != models.StatusActive {
		return ErrNotActive
	}
	e.log.Info("coach switched", "from", e.coachID, "to", coachID)
	e.coachID = coachID
	return nil
}

// Pause moves active -> paused: the pause marker is persisted, the visible
// conversation is cleared, and any in-flight reply is invalidated. The
// session remains resumable.
func (e *Engine) Pause(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != models.StatusActive {
		return ErrNotActive
	}

	e.pausedAt = e.now()
	if e.store != nil {
		if err := e.store.Set(ctx, store.PausedSessionKey(e.identity.Principal), strconv.FormatInt(e.sessionID, 10)); err != nil {
			return fmt.Errorf("persist pause marker: %w", err)
		}
		if err := e.store.Set(ctx, store.PausedAtKey(e.identity.Principal), e.pausedAt.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("persist pause timestamp: %w", err)
		}
	}
	if e.isGuest() {
		e.saveGuestHistoryLocked(ctx)
	}

	e.messages = nil
	e.status = models.StatusPaused
	e.epoch++
	e.log.Info("session paused", "session_id", e.sessionID, "paused_at", e.pausedAt)
	return nil
}

// Resume moves paused -> active: history is reloaded from the session-fetch
// collaborator (or guest storage), the pause marker is cleared only once
// resumption succeeds, and a summary of the prior conversation is produced,
// falling back to a locally derived one so summary failure never blocks
// resuming. A fetch failure aborts the resume and leaves the session paused.
func (e *Engine) Resume(ctx context.Context) (string, error) {
	e.mu.Lock()
	if e.status != models.StatusPaused {
		e.mu.Unlock()
		return "", ErrNotPaused
	}
	if e.resuming {
		e.mu.Unlock()
		return "", ErrBusy
	}
	e.resuming = true
	sessionID := e.sessionID
	guest := e.isGuest()
	e.mu.Unlock()

	var history []models.Message
	var err error
	if guest {
		history = e.loadGuestHistory(ctx)
	} else {
		history, err = e.backend.GetSession(ctx, sessionID)
	}

	e.mu.Lock()
	e.resuming = false
	if err != nil {
		e.mu.Unlock()
		// Pause markers stay in place so resume can be retried.
		return "", fmt.Errorf("fetch session history: %w", err)
	}
	if e.status != models.StatusPaused {
		e.mu.Unlock()
		return "", ErrNotPaused
	}

	e.messages = history
	e.status = models.StatusActive
	e.clearPauseMarkers(ctx)
	lastUser := lastUserContent(history)
	e.log.Info("session resumed", "session_id", sessionID, "messages", len(history))
	e.mu.Unlock()

	if guest {
		return logic.FallbackSummary(lastUser), nil
	}
	summary, err := e.backend.GenerateSummary(ctx, sessionID)
	if err != nil || summaryText(summary) == "" {
		if err != nil {
			e.log.Warn("summary generation failed, deriving fallback", "session_id", sessionID, "err", err)
		}
		return logic.FallbackSummary(lastUser), nil
	}
	return summaryText(summary), nil
}

// End moves active|paused -> ended, invokes the end-session collaborator for
// server-backed sessions, and clears the persisted pause markers regardless
// of whether a summary came back. Ended is terminal: coaching again means a
// fresh engine.
func (e *Engine) End(ctx context.Context, sendEmail bool) (*models.SessionSummary, error) {
	e.mu.Lock()
	switch e.status {
	case models.StatusActive, models.StatusPaused:
	case models.StatusEnded:
		e.mu.Unlock()
		return nil, ErrEnded
	default:
		e.mu.Unlock()
		return nil, ErrNotActive
	}
	if e.ending {
		e.mu.Unlock()
		return nil, ErrBusy
	}
	e.ending = true
	sessionID := e.sessionID
	guest := e.isGuest()
	e.mu.Unlock()

	var summary *models.SessionSummary
	if !guest {
		var err error
		summary, err = e.backend.EndSession(ctx, sessionID, sendEmail)
		if err != nil {
			// Ending must not dead-end on a collaborator failure; the session
			// still ends locally, just without a summary.
			e.log.Warn("end-session collaborator failed", "session_id", sessionID, "err", err)
			summary = nil
		}
	}

	e.mu.Lock()
	e.ending = false
	e.status = models.StatusEnded
	e.epoch++
	e.clearPauseMarkers(ctx)
	e.mu.Unlock()

	e.notifyEnded(summary)
	e.log.Info("session ended", "session_id", sessionID, "has_summary", summary != nil)
	return summary, nil
}

// Snapshot returns the visible conversation state.
func (e *Engine) Snapshot() (models.SessionStatus, []models.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	msgs := make([]models.Message, len(e.messages))
	copy(msgs, e.messages)
	return e.status, msgs
}

// Status returns the lifecycle state.
func (e *Engine) Status() models.SessionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// SessionID returns the server-side id, or the guest sentinel.
func (e *Engine) SessionID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// CoachID returns the currently selected coach.
func (e *Engine) CoachID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coachID
}

// Mode returns the coaching depth fixed at start.
func (e *Engine) Mode() models.SessionMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// PausedAt returns when the session was paused, if it is paused.
func (e *Engine) PausedAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pausedAt
}

// Identity returns the identity this engine acts for.
func (e *Engine) Identity() Identity {
	return e.identity
}

func (e *Engine) isGuest() bool {
	return e.identity.GuestCode != "" && e.identity.AccessMode == access.ModeGuest
}

func (e *Engine) clearPauseMarkers(ctx context.Context) {
	if e.store == nil {
		return
	}
	if err := e.store.Remove(ctx, store.PausedSessionKey(e.identity.Principal)); err != nil {
		e.log.Warn("failed to clear pause marker", "err", err)
	}
	if err := e.store.Remove(ctx, store.PausedAtKey(e.identity.Principal)); err != nil {
		e.log.Warn("failed to clear pause timestamp", "err", err)
	}
}

func (e *Engine) loadGuestHistory(ctx context.Context) []models.Message {
	if e.store == nil {
		return nil
	}
	raw, ok, err := e.store.Get(ctx, store.GuestHistoryKey(e.identity.GuestCode))
	if err != nil || !ok {
		return nil
	}
	var msgs []models.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		return nil
	}
	return msgs
}

// saveGuestHistoryLocked persists the guest conversation under the pass code.
// Caller holds e.mu.
func (e *Engine) saveGuestHistoryLocked(ctx context.Context) {
	if e.store == nil {
		return
	}
	raw, err := json.Marshal(e.messages)
	if err != nil {
		return
	}
	if err := e.store.Set(ctx, store.GuestHistoryKey(e.identity.GuestCode), string(raw)); err != nil {
		e.log.Warn("failed to persist guest history", "err", err)
	}
}

func (e *Engine) notifyMessage(msg models.Message) {
	if e.notifier != nil {
		e.notifier.MessageAppended(e.identity.Principal, msg)
	}
}

func (e *Engine) notifyEnded(summary *models.SessionSummary) {
	if e.notifier != nil {
		e.notifier.SessionEnded(e.identity.Principal, summary)
	}
}

func lastUserContent(msgs []models.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == models.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

func summaryText(s models.SessionSummary) string {
	if s.Text != "" {
		return s.Text
	}
	if len(s.KeyThemes) > 0 {
		return "Key themes from last time: " + strings.Join(s.KeyThemes, ", ")
	}
	return ""
}
