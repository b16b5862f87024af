package guestpass

import (
	"database/sql"
	"errors"
	"time"

	"coaching-chat/internal/access"
	"coaching-chat/internal/logger"
	"coaching-chat/internal/models"
)

// Validation reasons reported to callers when a pass is rejected.
const (
	ReasonNotFound  = "not_found"
	ReasonExpired   = "expired"
	ReasonExhausted = "exhausted"
)

// PassStore is the persistence surface the checker needs.
type PassStore interface {
	GetGuestPass(code string) (*models.GuestPass, error)
	RecordGuestPassUse(code string) error
}

// Checker validates guest pass codes against the pass store.
type Checker struct {
	store PassStore
	log   *logger.Logger
	now   func() time.Time
}

func NewChecker(store PassStore, log *logger.Logger) *Checker {
	return &Checker{store: store, log: log, now: time.Now}
}

// Check reports whether a pass is currently usable without consuming a use.
// The result is always populated; infrastructure failures surface as an error
// so the caller can keep the access decision pending instead of denying.
func (c *Checker) Check(code string) (*access.Validation, error) {
	pass, err := c.store.GetGuestPass(code)
	if errors.Is(err, sql.ErrNoRows) {
		return &access.Validation{Valid: false, Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return nil, err
	}

	if c.now().After(pass.ExpiresAt) {
		return &access.Validation{Valid: false, Reason: ReasonExpired}, nil
	}
	if pass.MaxUses > 0 && pass.Uses >= pass.MaxUses {
		return &access.Validation{Valid: false, Reason: ReasonExhausted}, nil
	}

	return &access.Validation{Valid: true}, nil
}

// Validate checks a pass code and records a use when it is valid. This is the
// redemption path; per-request access checks use Check so they do not burn
// uses.
func (c *Checker) Validate(code string) (*access.Validation, error) {
	v, err := c.Check(code)
	if err != nil || !v.Valid {
		return v, err
	}

	if err := c.store.RecordGuestPassUse(code); err != nil {
		// Counter update failure does not invalidate the pass.
		c.log.Warn("failed to record guest pass use", "code", code, "error", err)
	}
	return v, nil
}
