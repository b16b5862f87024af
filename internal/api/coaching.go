package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"coaching-chat/internal/logger"
	"coaching-chat/internal/models"
	"coaching-chat/internal/session"
	"coaching-chat/internal/stream"
)

// CoachingHandler drives the per-principal session engines.
type CoachingHandler struct {
	manager     *session.Manager
	resolver    *IdentityResolver
	revealer    *stream.Revealer
	broadcaster *EventBroadcaster
	log         *logger.Logger
}

func NewCoachingHandler(manager *session.Manager, resolver *IdentityResolver, revealer *stream.Revealer, broadcaster *EventBroadcaster, log *logger.Logger) *CoachingHandler {
	return &CoachingHandler{
		manager:     manager,
		resolver:    resolver,
		revealer:    revealer,
		broadcaster: broadcaster,
		log:         log,
	}
}

// StartRequest is the body for POST /api/coaching/start
type StartRequest struct {
	CoachID string `json:"coach_id"`
	Mode    string `json:"mode,omitempty"`
}

// SessionResponse reports the engine state after an operation
type SessionResponse struct {
	SessionID int64                `json:"session_id"`
	Status    models.SessionStatus `json:"status"`
	CoachID   string               `json:"coach_id,omitempty"`
	Mode      models.SessionMode   `json:"mode,omitempty"`
	Messages  []models.Message     `json:"messages,omitempty"`
	Summary   string               `json:"summary,omitempty"`
}

// Start handles POST /api/coaching/start
func (h *CoachingHandler) Start(w http.ResponseWriter, r *http.Request) {
	identity := h.resolver.Resolve(r)
	if !RequireCoachingAccess(w, identity) {
		return
	}

	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CoachID == "" {
		http.Error(w, "coach_id is required", http.StatusBadRequest)
		return
	}

	eng := h.manager.Engine(r.Context(), identity)
	if _, err := eng.Start(r.Context(), session.StartParams{
		CoachID: req.CoachID,
		Mode:    models.SessionMode(req.Mode),
	}); err != nil {
		h.writeEngineError(w, err)
		return
	}

	status, messages := eng.Snapshot()
	writeJSON(w, http.StatusCreated, SessionResponse{
		SessionID: eng.SessionID(),
		Status:    status,
		CoachID:   eng.CoachID(),
		Mode:      eng.Mode(),
		Messages:  messages,
	})
}

// MessageRequest is the body for POST /api/coaching/message
type MessageRequest struct {
	Content string `json:"content"`
}

// MessageResponse carries the assistant reply, if one was produced
type MessageResponse struct {
	Reply *models.Message `json:"reply,omitempty"`
}

// Message handles POST /api/coaching/message
func (h *CoachingHandler) Message(w http.ResponseWriter, r *http.Request) {
	identity := h.resolver.Resolve(r)
	if !RequireCoachingAccess(w, identity) {
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	eng := h.manager.Engine(r.Context(), identity)
	reply, err := eng.Send(r.Context(), req.Content)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	if reply != nil && reply.Streaming {
		// The reveal outlives this request; detach it from the request's
		// cancellation.
		h.revealer.Reveal(context.WithoutCancel(r.Context()), reply.ID, reply.Content, h.broadcaster.ChunkSink(identity.Principal))
	}

	writeJSON(w, http.StatusOK, MessageResponse{Reply: reply})
}

// Pause handles POST /api/coaching/pause
func (h *CoachingHandler) Pause(w http.ResponseWriter, r *http.Request) {
	identity := h.resolver.Resolve(r)
	if !RequireCoachingAccess(w, identity) {
		return
	}

	eng := h.manager.Engine(r.Context(), identity)
	if err := eng.Pause(r.Context()); err != nil {
		h.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{
		SessionID: eng.SessionID(),
		Status:    models.StatusPaused,
	})
}

// Resume handles POST /api/coaching/resume
func (h *CoachingHandler) Resume(w http.ResponseWriter, r *http.Request) {
	identity := h.resolver.Resolve(r)
	if !RequireCoachingAccess(w, identity) {
		return
	}

	eng := h.manager.Engine(r.Context(), identity)
	summary, err := eng.Resume(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	status, messages := eng.Snapshot()
	writeJSON(w, http.StatusOK, SessionResponse{
		SessionID: eng.SessionID(),
		Status:    status,
		CoachID:   eng.CoachID(),
		Messages:  messages,
		Summary:   summary,
	})
}

// EndRequest is the body for POST /api/coaching/end
type EndRequest struct {
	SendEmail bool `json:"send_email,omitempty"`
}

// EndResponse reports the final summary, when one was produced
type EndResponse struct {
	Status  models.SessionStatus   `json:"status"`
	Summary *models.SessionSummary `json:"summary,omitempty"`
}

// End handles POST /api/coaching/end
func (h *CoachingHandler) End(w http.ResponseWriter, r *http.Request) {
	identity := h.resolver.Resolve(r)
	if !RequireCoachingAccess(w, identity) {
		return
	}

	var req EndRequest
	if r.Body != nil {
		// Body is optional for end.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	eng := h.manager.Engine(r.Context(), identity)
	summary, err := eng.End(r.Context(), req.SendEmail)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	// A fresh start after ending needs a fresh engine.
	h.manager.Drop(identity.Principal)

	writeJSON(w, http.StatusOK, EndResponse{
		Status:  models.StatusEnded,
		Summary: summary,
	})
}

// CoachRequest is the body for POST /api/coaching/coach
type CoachRequest struct {
	CoachID string `json:"coach_id"`
}

// SwitchCoach handles POST /api/coaching/coach
func (h *CoachingHandler) SwitchCoach(w http.ResponseWriter, r *http.Request) {
	identity := h.resolver.Resolve(r)
	if !RequireCoachingAccess(w, identity) {
		return
	}

	var req CoachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CoachID == "" {
		http.Error(w, "coach_id is required", http.StatusBadRequest)
		return
	}

	eng := h.manager.Engine(r.Context(), identity)
	if err := eng.SetCoach(req.CoachID); err != nil {
		h.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{
		SessionID: eng.SessionID(),
		Status:    models.StatusActive,
		CoachID:   eng.CoachID(),
	})
}

// SkipRequest is the body for POST /api/coaching/reveal/skip
type SkipRequest struct {
	MessageID string `json:"message_id,omitempty"`
}

// SkipReveal handles POST /api/coaching/reveal/skip. An empty message id
// flushes every in-flight reveal.
func (h *CoachingHandler) SkipReveal(w http.ResponseWriter, r *http.Request) {
	identity := h.resolver.Resolve(r)
	if !RequireCoachingAccess(w, identity) {
		return
	}

	var req SkipRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if req.MessageID == "" {
		h.revealer.SkipAll()
	} else {
		h.revealer.Skip(req.MessageID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSession handles GET /api/coaching/session
func (h *CoachingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	identity := h.resolver.Resolve(r)
	if !RequireCoachingAccess(w, identity) {
		return
	}

	eng, ok := h.manager.Peek(identity.Principal)
	if !ok {
		writeJSON(w, http.StatusOK, SessionResponse{
			SessionID: 0,
			Status:    models.StatusNotStarted,
		})
		return
	}

	status, messages := eng.Snapshot()
	writeJSON(w, http.StatusOK, SessionResponse{
		SessionID: eng.SessionID(),
		Status:    status,
		CoachID:   eng.CoachID(),
		Mode:      eng.Mode(),
		Messages:  messages,
	})
}

// writeEngineError maps engine sentinels onto HTTP statuses.
func (h *CoachingHandler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrAccessDenied):
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"error": "an active subscription or guest pass is required",
		})
	case errors.Is(err, session.ErrAlreadyStarted):
		http.Error(w, "Session already started", http.StatusConflict)
	case errors.Is(err, session.ErrNotActive):
		http.Error(w, "No active session", http.StatusConflict)
	case errors.Is(err, session.ErrNotPaused):
		http.Error(w, "No paused session to resume", http.StatusConflict)
	case errors.Is(err, session.ErrEnded):
		http.Error(w, "Session has ended", http.StatusGone)
	case errors.Is(err, session.ErrBusy):
		http.Error(w, "Operation already in progress", http.StatusTooManyRequests)
	default:
		h.log.Error("coaching operation failed", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
