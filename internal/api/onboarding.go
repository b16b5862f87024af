package api

import (
	"encoding/json"
	"net/http"

	"coaching-chat/internal/logger"
	"coaching-chat/internal/onboarding"
)

// OnboardingHandler serves per-feature onboarding progress.
type OnboardingHandler struct {
	flow     *onboarding.Flow
	resolver *IdentityResolver
	log      *logger.Logger
}

func NewOnboardingHandler(flow *onboarding.Flow, resolver *IdentityResolver, log *logger.Logger) *OnboardingHandler {
	return &OnboardingHandler{flow: flow, resolver: resolver, log: log}
}

func (h *OnboardingHandler) principal(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity := h.resolver.Resolve(r)
	if identity.Principal == "" {
		http.Error(w, "Authentication or a guest pass is required", http.StatusUnauthorized)
		return "", false
	}
	return identity.Principal, true
}

// Get handles GET /api/onboarding/{feature}
func (h *OnboardingHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	progress, err := h.flow.Load(r.Context(), principal, r.PathValue("feature"))
	if err != nil {
		h.log.Error("onboarding load failed", "principal", principal, "error", err)
		http.Error(w, "Failed to load onboarding progress", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// Put handles PUT /api/onboarding/{feature}
func (h *OnboardingHandler) Put(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var progress onboarding.Progress
	if err := json.NewDecoder(r.Body).Decode(&progress); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.flow.Save(r.Context(), principal, r.PathValue("feature"), progress); err != nil {
		h.log.Error("onboarding save failed", "principal", principal, "error", err)
		http.Error(w, "Failed to save onboarding progress", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// Delete handles DELETE /api/onboarding/{feature}
func (h *OnboardingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.flow.Clear(r.Context(), principal, r.PathValue("feature")); err != nil {
		h.log.Error("onboarding clear failed", "principal", principal, "error", err)
		http.Error(w, "Failed to clear onboarding progress", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
