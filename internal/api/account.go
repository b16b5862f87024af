package api

import (
	"encoding/json"
	"net/http"

	"coaching-chat/internal/auth"
	"coaching-chat/internal/logger"
	"coaching-chat/internal/models"
)

// AccountStore is the slice of the database the account handlers use.
type AccountStore interface {
	GetProfile(userID string) (*models.Profile, error)
	UpsertProfile(p models.Profile) error
	GetSubscription(userID string) (*models.Subscription, error)
}

// AccountHandler serves profile and subscription facts for the signed-in user.
type AccountHandler struct {
	store AccountStore
	log   *logger.Logger
}

func NewAccountHandler(store AccountStore, log *logger.Logger) *AccountHandler {
	return &AccountHandler{store: store, log: log}
}

// GetSubscription handles GET /api/subscription
func (h *AccountHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	claims := auth.FromContext(r.Context())
	if claims == nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	sub, err := h.store.GetSubscription(claims.UserID())
	if err != nil {
		h.log.Error("subscription lookup failed", "user_id", claims.UserID(), "error", err)
		http.Error(w, "Failed to load subscription", http.StatusInternalServerError)
		return
	}
	if sub == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "none"})
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// GetProfile handles GET /api/profile
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.FromContext(r.Context())
	if claims == nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	profile, err := h.store.GetProfile(claims.UserID())
	if err != nil {
		h.log.Error("profile lookup failed", "user_id", claims.UserID(), "error", err)
		http.Error(w, "Failed to load profile", http.StatusInternalServerError)
		return
	}
	if profile == nil {
		profile = &models.Profile{UserID: claims.UserID(), PreferredName: claims.FirstName, Role: claims.Role}
	}
	writeJSON(w, http.StatusOK, profile)
}

// UpdateProfileRequest is the body for PUT /api/profile
type UpdateProfileRequest struct {
	PreferredName          string `json:"preferred_name"`
	HasCompletedOnboarding bool   `json:"has_completed_onboarding"`
}

// UpdateProfile handles PUT /api/profile
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.FromContext(r.Context())
	if claims == nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	profile := models.Profile{
		UserID:                 claims.UserID(),
		PreferredName:          req.PreferredName,
		Role:                   claims.Role,
		HasCompletedOnboarding: req.HasCompletedOnboarding,
	}
	if profile.Role == "" {
		profile.Role = "user"
	}
	if err := h.store.UpsertProfile(profile); err != nil {
		h.log.Error("profile update failed", "user_id", claims.UserID(), "error", err)
		http.Error(w, "Failed to update profile", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
