package models

import "time"

// GuestSessionID is the sentinel session id for guest conversations,
// which are never persisted server-side.
const GuestSessionID int64 = -1

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SessionStatus is the lifecycle state of a coaching session
type SessionStatus string

const (
	StatusNotStarted SessionStatus = "not_started"
	StatusActive     SessionStatus = "active"
	StatusPaused     SessionStatus = "paused"
	StatusEnded      SessionStatus = "ended"
)

// SessionMode is the coaching depth, fixed once a session becomes active
type SessionMode string

const (
	ModeFull  SessionMode = "full"
	ModeQuick SessionMode = "quick"
)

// Message is a single turn in a coaching conversation
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Streaming bool      `json:"streaming,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// SessionRecord is a server-side coaching session row
type SessionRecord struct {
	ID          int64         `json:"id"`
	UserID      string        `json:"user_id"`
	SessionType SessionMode   `json:"session_type"`
	Status      SessionStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     *time.Time    `json:"ended_at,omitempty"`
}

// GuestPass is a shareable code granting coaching access without a subscription
type GuestPass struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	MaxUses   int       `json:"max_uses"`
	Uses      int       `json:"uses"`
}

// Profile holds the user-facing account facts the coaching surface reads
type Profile struct {
	UserID                 string `json:"user_id"`
	PreferredName          string `json:"preferred_name,omitempty"`
	Role                   string `json:"role,omitempty"`
	HasCompletedOnboarding bool   `json:"has_completed_onboarding"`
}

// Subscription is the billing state read as a fact; Stripe mechanics live elsewhere
type Subscription struct {
	UserID               string    `json:"user_id"`
	Status               string    `json:"status"`
	CurrentPeriodEnd     time.Time `json:"current_period_end"`
	StripeCustomerID     string    `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string    `json:"stripe_subscription_id,omitempty"`
}

// SessionSummary is the structured output of summary generation
type SessionSummary struct {
	KeyThemes   []string `json:"key_themes,omitempty"`
	Commitments []string `json:"commitments,omitempty"`
	Text        string   `json:"text,omitempty"`
}
