package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"coaching-chat/internal/coach"
	"coaching-chat/internal/logger"
	"coaching-chat/internal/models"
	"coaching-chat/internal/session"
	"coaching-chat/internal/store"
)

// Persistence is the slice of the database layer the coaching service uses.
type Persistence interface {
	CreateSession(userID string, sessionType models.SessionMode) (*models.SessionRecord, error)
	EndSession(id int64) error
	AppendMessage(sessionID int64, role models.Role, content string) (*models.Message, error)
	GetMessages(sessionID int64) ([]models.Message, error)
}

// Completer produces an assistant reply for a system prompt plus history.
type Completer interface {
	Complete(ctx context.Context, system string, history []models.Message) (string, error)
}

const quickModeNote = "This is a quick check-in, not a full session. Keep replies to two or three sentences and ask one question at a time."

const guestNote = "The client is on a trial pass. Give them a genuinely useful taste of coaching, and do not mention the trial."

const summaryInstruction = `Summarize this coaching conversation for the client's next session. Respond with JSON only, in the shape {"key_themes": [..], "commitments": [..], "text": "one-paragraph recap"}.`

// Service wires the database, the model client, and the coach registry into
// the collaborator contracts the session engine consumes.
type Service struct {
	db    Persistence
	llm   Completer
	store store.Store
	log   *logger.Logger
}

func New(db Persistence, llm Completer, st store.Store, log *logger.Logger) *Service {
	return &Service{db: db, llm: llm, store: st, log: log}
}

// BackendFor returns the engine backend bound to one identity.
func (s *Service) BackendFor(identity session.Identity) session.Backend {
	return &boundBackend{svc: s, identity: identity}
}

// Factory adapts BackendFor to the engine's factory contract.
func (s *Service) Factory() session.BackendFactory {
	return func(identity session.Identity) session.Backend {
		return s.BackendFor(identity)
	}
}

type boundBackend struct {
	svc      *Service
	identity session.Identity
}

func (b *boundBackend) StartSession(ctx context.Context, sessionType models.SessionMode) (int64, error) {
	rec, err := b.svc.db.CreateSession(b.identity.UserID, sessionType)
	if err != nil {
		return 0, fmt.Errorf("create session: %w", err)
	}
	b.svc.log.Info("session started", "session_id", rec.ID, "user_id", b.identity.UserID, "type", sessionType)
	return rec.ID, nil
}

func (b *boundBackend) SendMessage(ctx context.Context, sessionID int64, message string, sessionType models.SessionMode, coachID string) (string, error) {
	history, err := b.svc.db.GetMessages(sessionID)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}

	if _, err := b.svc.db.AppendMessage(sessionID, models.RoleUser, message); err != nil {
		return "", fmt.Errorf("store user message: %w", err)
	}
	history = append(history, models.Message{Role: models.RoleUser, Content: message})

	system := coach.Prompt(coachID)
	if sessionType == models.ModeQuick {
		system += "\n\n" + quickModeNote
	}

	reply, err := b.svc.llm.Complete(ctx, system, history)
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}

	if _, err := b.svc.db.AppendMessage(sessionID, models.RoleAssistant, reply); err != nil {
		return "", fmt.Errorf("store assistant message: %w", err)
	}

	return reply, nil
}

func (b *boundBackend) GuestChat(ctx context.Context, guestPassCode, message, fingerprint, coachID string) (string, error) {
	history := b.svc.loadGuestHistory(ctx, guestPassCode)
	history = append(history, models.Message{Role: models.RoleUser, Content: message})

	system := coach.Prompt(coachID) + "\n\n" + guestNote

	reply, err := b.svc.llm.Complete(ctx, system, history)
	if err != nil {
		return "", fmt.Errorf("guest completion: %w", err)
	}

	return reply, nil
}

func (b *boundBackend) GetSession(ctx context.Context, sessionID int64) ([]models.Message, error) {
	return b.svc.db.GetMessages(sessionID)
}

func (b *boundBackend) GenerateSummary(ctx context.Context, sessionID int64) (models.SessionSummary, error) {
	history, err := b.svc.db.GetMessages(sessionID)
	if err != nil {
		return models.SessionSummary{}, fmt.Errorf("load history: %w", err)
	}
	if len(history) == 0 {
		return models.SessionSummary{}, nil
	}

	raw, err := b.svc.llm.Complete(ctx, summaryInstruction, history)
	if err != nil {
		return models.SessionSummary{}, fmt.Errorf("summary completion: %w", err)
	}

	return parseSummary(raw), nil
}

func (b *boundBackend) EndSession(ctx context.Context, sessionID int64, sendEmail bool) (*models.SessionSummary, error) {
	summary, err := b.GenerateSummary(ctx, sessionID)
	if err != nil {
		b.svc.log.Warn("summary generation failed at session end", "session_id", sessionID, "error", err)
	}

	if err := b.svc.db.EndSession(sessionID); err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}

	if sendEmail {
		// Summary email delivery is handled by a separate pipeline; record
		// the request so it can pick the session up.
		b.svc.log.Info("summary email requested", "session_id", sessionID, "user_id", b.identity.UserID)
	}

	b.svc.log.Info("session ended", "session_id", sessionID, "user_id", b.identity.UserID)
	if summary.Text == "" && len(summary.KeyThemes) == 0 {
		return nil, nil
	}
	return &summary, nil
}

func (s *Service) loadGuestHistory(ctx context.Context, code string) []models.Message {
	blob, found, err := s.store.Get(ctx, store.GuestHistoryKey(code))
	if err != nil || !found {
		return nil
	}
	var history []models.Message
	if err := json.Unmarshal([]byte(blob), &history); err != nil {
		s.log.Warn("corrupt guest history blob", "code", code, "error", err)
		return nil
	}
	return history
}

// parseSummary decodes the model's JSON summary, tolerating code fences and
// falling back to the raw text when the shape is wrong.
func parseSummary(raw string) models.SessionSummary {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var summary models.SessionSummary
	if err := json.Unmarshal([]byte(trimmed), &summary); err != nil {
		return models.SessionSummary{Text: raw}
	}
	return summary
}
