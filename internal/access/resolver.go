package access

// Mode is the resolved permission level governing what a user may do on the
// coaching surface. Exactly one mode holds for any set of facts.
type Mode string

const (
	ModeAdmin      Mode = "admin"
	ModeGuest      Mode = "guest"
	ModeSubscriber Mode = "subscriber"
	ModePending    Mode = "pending"
	ModeDenied     Mode = "denied"
)

// Validation is the outcome of guest-pass validation. A nil *Validation in
// Facts means validation is still in flight, which must not be mistaken for an
// invalid pass.
type Validation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Facts are the read-only inputs to mode resolution, each sourced from an
// external collaborator (auth, guest-pass validation, billing).
type Facts struct {
	IsAuthenticated     bool
	UserRole            string
	HasGuestPassCode    bool
	GuestPassValidation *Validation
	SubscriptionStatus  string
}

// Resolve computes the single access mode for the given facts.
//
// Precedence, first match wins:
//  1. admin role bypasses subscription and guest-pass checks
//  2. a guest-pass code whose validation has not settled resolves to pending;
//     the caller must wait, not redirect, so a slow validation never bounces a
//     valid guest
//  3. a validated guest pass grants guest access
//  4. an authenticated user with an active or trialing subscription
//  5. everything else is denied and belongs on the upsell surface
//
// Resolution is pure: the same facts always yield the same mode.
func Resolve(f Facts) Mode {
	switch {
	case f.UserRole == "admin":
		return ModeAdmin
	case f.HasGuestPassCode && f.GuestPassValidation == nil:
		return ModePending
	case f.HasGuestPassCode && f.GuestPassValidation.Valid:
		return ModeGuest
	case f.IsAuthenticated && (f.SubscriptionStatus == "active" || f.SubscriptionStatus == "trialing"):
		return ModeSubscriber
	default:
		return ModeDenied
	}
}

// CanSend reports whether the mode permits sending coaching messages.
// Pending and denied never do.
func (m Mode) CanSend() bool {
	switch m {
	case ModeAdmin, ModeGuest, ModeSubscriber:
		return true
	default:
		return false
	}
}
