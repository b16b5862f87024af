package api

import (
	"net/http"

	"coaching-chat/internal/coach"
)

// CoachResponse is one registry entry in API responses.
type CoachResponse struct {
	ID                 string   `json:"id"`
	DisplayName        string   `json:"display_name"`
	VoiceDescription   string   `json:"voice_description"`
	SignatureQuestions []string `json:"signature_questions,omitempty"`
}

// CoachHandler serves the coach registry.
type CoachHandler struct{}

func NewCoachHandler() *CoachHandler {
	return &CoachHandler{}
}

// List handles GET /api/coaches
func (h *CoachHandler) List(w http.ResponseWriter, r *http.Request) {
	personalities := coach.All()
	response := make([]CoachResponse, len(personalities))
	for i, p := range personalities {
		response[i] = CoachResponse{
			ID:                 p.ID,
			DisplayName:        p.DisplayName,
			VoiceDescription:   p.VoiceDescription,
			SignatureQuestions: p.SignatureQuestions,
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// Get handles GET /api/coaches/{id}
func (h *CoachHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := coach.Lookup(r.PathValue("id"))
	if !ok {
		http.Error(w, "Coach not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, CoachResponse{
		ID:                 p.ID,
		DisplayName:        p.DisplayName,
		VoiceDescription:   p.VoiceDescription,
		SignatureQuestions: p.SignatureQuestions,
	})
}
