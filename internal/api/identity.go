package api

import (
	"context"
	"encoding/json"
	"net/http"

	"coaching-chat/internal/access"
	"coaching-chat/internal/auth"
	"coaching-chat/internal/guestpass"
	"coaching-chat/internal/logger"
	"coaching-chat/internal/logic"
	"coaching-chat/internal/models"
	"coaching-chat/internal/session"
	"coaching-chat/internal/store"
)

// Request headers carrying guest identity.
const (
	guestPassHeader   = "X-Guest-Pass"
	fingerprintHeader = "X-Device-Fingerprint"
)

// AccountReader is the slice of the database the resolver reads.
type AccountReader interface {
	GetProfile(userID string) (*models.Profile, error)
	GetSubscription(userID string) (*models.Subscription, error)
}

// PassChecker reports guest pass validity without consuming a use.
type PassChecker interface {
	Check(code string) (*access.Validation, error)
}

// IdentityResolver turns a request into a resolved identity: who is asking,
// and what their access mode allows.
type IdentityResolver struct {
	accounts AccountReader
	passes   PassChecker
	store    store.Store
	log      *logger.Logger
}

func NewIdentityResolver(accounts AccountReader, passes PassChecker, st store.Store, log *logger.Logger) *IdentityResolver {
	return &IdentityResolver{accounts: accounts, passes: passes, store: st, log: log}
}

// Resolve gathers access facts from the request and resolves them to an
// identity. It never fails: infrastructure errors leave the corresponding
// fact unknown, which the access precedence rules treat conservatively.
func (ir *IdentityResolver) Resolve(r *http.Request) session.Identity {
	ctx := r.Context()
	facts := access.Facts{}
	identity := session.Identity{}

	if claims := auth.FromContext(ctx); claims != nil {
		facts.IsAuthenticated = true
		facts.UserRole = claims.Role
		identity.UserID = claims.UserID()
		identity.FirstName = claims.FirstName
		identity.Principal = "user:" + claims.UserID()

		if identity.FirstName == "" {
			if profile, err := ir.accounts.GetProfile(claims.UserID()); err == nil && profile != nil {
				identity.FirstName = profile.PreferredName
			}
		}
		if sub, err := ir.accounts.GetSubscription(claims.UserID()); err != nil {
			ir.log.Warn("subscription lookup failed", "user_id", claims.UserID(), "error", err)
		} else if sub != nil {
			facts.SubscriptionStatus = sub.Status
		}
	}

	if code := r.Header.Get(guestPassHeader); code != "" {
		facts.HasGuestPassCode = true
		identity.GuestCode = code
		identity.Fingerprint = logic.NormalizeFingerprint(r.Header.Get(fingerprintHeader))

		if v, err := ir.passes.Check(code); err != nil {
			// Leave validation nil: the pass is still being checked, so the
			// request resolves to pending rather than denied.
			ir.log.Warn("guest pass check failed", "error", err)
		} else {
			facts.GuestPassValidation = v
			ir.maybePurgeExpired(ctx, code, v)
		}
	}

	identity.AccessMode = access.Resolve(facts)
	if identity.Principal == "" && identity.AccessMode == access.ModeGuest {
		identity.Principal = "guest:" + identity.GuestCode
	}
	return identity
}

// maybePurgeExpired drops stored guest history once its pass has expired, so
// a recycled code never leaks a previous visitor's conversation.
func (ir *IdentityResolver) maybePurgeExpired(ctx context.Context, code string, v *access.Validation) {
	if v == nil || v.Valid || v.Reason != guestpass.ReasonExpired {
		return
	}
	if err := ir.store.Remove(ctx, store.GuestHistoryKey(code)); err != nil {
		ir.log.Warn("failed to purge expired guest history", "error", err)
	}
}

// RequireCoachingAccess writes the gating response for identities that cannot
// send and reports whether the request may proceed. A pending validation is a
// conflict the client should retry; everything else unauthorized is a payment
// wall.
func RequireCoachingAccess(w http.ResponseWriter, identity session.Identity) bool {
	switch identity.AccessMode {
	case access.ModePending:
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": "access validation in progress, retry shortly",
		})
		return false
	case access.ModeDenied:
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":        "an active subscription or guest pass is required",
			"upgrade_path": "/api/subscription",
		})
		return false
	default:
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
