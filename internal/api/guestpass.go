package api

import (
	"encoding/json"
	"net/http"

	"coaching-chat/internal/access"
	"coaching-chat/internal/logger"
	"coaching-chat/internal/store"
)

// PassValidator redeems guest pass codes.
type PassValidator interface {
	Validate(code string) (*access.Validation, error)
}

// GuestPassHandler handles guest pass redemption.
type GuestPassHandler struct {
	validator PassValidator
	kv        store.Store
	log       *logger.Logger
}

func NewGuestPassHandler(validator PassValidator, kv store.Store, log *logger.Logger) *GuestPassHandler {
	return &GuestPassHandler{validator: validator, kv: kv, log: log}
}

// ValidateRequest is the body for POST /api/guest-pass/validate
type ValidateRequest struct {
	Code string `json:"code"`
}

// ValidateResponse reports the pass outcome. FirstVisit is true the first
// time a pass code is successfully redeemed, so the client shows the guest
// welcome exactly once.
type ValidateResponse struct {
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
	FirstVisit bool   `json:"first_visit,omitempty"`
}

// Validate handles POST /api/guest-pass/validate
func (h *GuestPassHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Code == "" {
		http.Error(w, "code is required", http.StatusBadRequest)
		return
	}

	v, err := h.validator.Validate(req.Code)
	if err != nil {
		h.log.Error("guest pass validation failed", "error", err)
		http.Error(w, "Validation unavailable, try again", http.StatusServiceUnavailable)
		return
	}

	resp := ValidateResponse{Valid: v.Valid, Reason: v.Reason}
	if v.Valid && h.kv != nil {
		_, shown, err := h.kv.Get(r.Context(), store.WelcomeShownKey(req.Code))
		if err == nil && !shown {
			resp.FirstVisit = true
			if err := h.kv.Set(r.Context(), store.WelcomeShownKey(req.Code), "1"); err != nil {
				h.log.Warn("failed to persist welcome flag", "err", err)
			}
		}
	}

	h.log.Info("guest pass validated", "valid", resp.Valid, "reason", resp.Reason, "first_visit", resp.FirstVisit)
	writeJSON(w, http.StatusOK, resp)
}
