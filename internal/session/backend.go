package session

import (
	"context"

	"coaching-chat/internal/access"
	"coaching-chat/internal/models"
)

// Backend is the set of collaborator contracts the session engine consumes.
// The engine never cares how these are implemented; the production
// implementation lives in the service layer and tests use mocks.
type Backend interface {
	// StartSession creates a server-side session record and returns its id.
	// Never called for guest sessions.
	StartSession(ctx context.Context, sessionType models.SessionMode) (int64, error)

	// SendMessage dispatches a subscriber/admin chat turn and returns the
	// assistant reply text.
	SendMessage(ctx context.Context, sessionID int64, message string, sessionType models.SessionMode, coachID string) (string, error)

	// GuestChat dispatches a guest chat turn, identified by pass code and
	// device fingerprint instead of a server-side session.
	GuestChat(ctx context.Context, guestPassCode, message, fingerprint, coachID string) (string, error)

	// GetSession returns the full message history for a session.
	GetSession(ctx context.Context, sessionID int64) ([]models.Message, error)

	// GenerateSummary produces a summary of the conversation so far.
	GenerateSummary(ctx context.Context, sessionID int64) (models.SessionSummary, error)

	// EndSession marks the session ended and optionally triggers an emailed
	// summary; returns the final summary if one was produced.
	EndSession(ctx context.Context, sessionID int64, sendEmail bool) (*models.SessionSummary, error)
}

// Notifier receives engine events for fan-out to connected clients.
// Implementations must not block.
type Notifier interface {
	MessageAppended(principal string, msg models.Message)
	SessionEnded(principal string, summary *models.SessionSummary)
}

// Identity describes who an engine acts for, with access already resolved.
type Identity struct {
	// Principal is the storage/broadcast namespace: the user id for
	// authenticated users, the pass code for guests.
	Principal   string
	UserID      string
	FirstName   string
	AccessMode  access.Mode
	GuestCode   string
	Fingerprint string
}

// BackendFactory builds the collaborator backend bound to one identity.
type BackendFactory func(Identity) Backend
