package store

import (
	"context"
	"fmt"
)

// Store is the durable key-value capability backing client-side persisted
// state: pause markers, onboarding progress, welcome flags, guest history.
// Writes are last-write-wins; each key is only ever written by one logical
// session at a time, so no transactional guarantees are offered.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes the value for key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes the key; removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// Keys are namespaced per logical entity so concurrent guest identities on
// the same deployment never cross-contaminate.

// PausedSessionKey holds the paused session id for a principal.
func PausedSessionKey(principal string) string {
	return "paused_session:" + principal
}

// PausedAtKey holds the pause timestamp for a principal.
func PausedAtKey(principal string) string {
	return "paused_at:" + principal
}

// OnboardingKey holds the onboarding progress blob for a principal and feature.
func OnboardingKey(principal, feature string) string {
	return fmt.Sprintf("onboarding:%s:%s", principal, feature)
}

// WelcomeShownKey flags that the guest welcome was shown for a pass code.
func WelcomeShownKey(guestCode string) string {
	return "welcome_shown:" + guestCode
}

// GuestHistoryKey holds the guest conversation history for a pass code.
func GuestHistoryKey(guestCode string) string {
	return "guest_history:" + guestCode
}
