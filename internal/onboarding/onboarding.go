package onboarding

import (
	"context"
	"encoding/json"
	"fmt"

	"coaching-chat/internal/store"
)

// Progress is the guest/new-user onboarding state, persisted per feature so
// independent flows never clobber each other.
type Progress struct {
	Step           int      `json:"step"`
	SelectedCoach  string   `json:"selected_coach,omitempty"`
	SelectedGender string   `json:"selected_gender,omitempty"`
	Goals          []string `json:"goals,omitempty"`
}

// Flow reads and writes onboarding progress through the durable store.
type Flow struct {
	store store.Store
}

// NewFlow creates a flow over the given store.
func NewFlow(s store.Store) *Flow {
	return &Flow{store: s}
}

// Load returns the saved progress for a principal and feature, or a fresh
// zero-step progress if none was saved yet.
func (f *Flow) Load(ctx context.Context, principal, feature string) (Progress, error) {
	raw, ok, err := f.store.Get(ctx, store.OnboardingKey(principal, feature))
	if err != nil {
		return Progress{}, fmt.Errorf("load onboarding progress: %w", err)
	}
	if !ok {
		return Progress{}, nil
	}

	var p Progress
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		// A corrupt blob restarts the flow rather than wedging it.
		return Progress{}, nil
	}
	return p, nil
}

// Save persists progress after a step transition.
func (f *Flow) Save(ctx context.Context, principal, feature string, p Progress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal onboarding progress: %w", err)
	}
	if err := f.store.Set(ctx, store.OnboardingKey(principal, feature), string(raw)); err != nil {
		return fmt.Errorf("save onboarding progress: %w", err)
	}
	return nil
}

// Clear removes saved progress on completion or explicit skip.
func (f *Flow) Clear(ctx context.Context, principal, feature string) error {
	if err := f.store.Remove(ctx, store.OnboardingKey(principal, feature)); err != nil {
		return fmt.Errorf("clear onboarding progress: %w", err)
	}
	return nil
}
