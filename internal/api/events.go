package api

import (
	"net/http"

	"coaching-chat/internal/logger"
)

// EventsHandler serves the per-principal SSE stream.
type EventsHandler struct {
	broadcaster *EventBroadcaster
	resolver    *IdentityResolver
	log         *logger.Logger
}

func NewEventsHandler(broadcaster *EventBroadcaster, resolver *IdentityResolver, log *logger.Logger) *EventsHandler {
	return &EventsHandler{broadcaster: broadcaster, resolver: resolver, log: log}
}

// HandleEvents handles GET /api/coaching/events
func (h *EventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	identity := h.resolver.Resolve(r)
	if !RequireCoachingAccess(w, identity) {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	eventCh := h.broadcaster.Subscribe(identity.Principal)
	defer h.broadcaster.Unsubscribe(identity.Principal, eventCh)

	if _, err := w.Write([]byte("event: connected\ndata: {}\n\n")); err != nil {
		return
	}
	flusher.Flush()

	h.log.Info("sse client connected", "principal", identity.Principal)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.log.Info("sse client disconnected", "principal", identity.Principal)
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			data, err := FormatSSE(event)
			if err != nil {
				h.log.Warn("failed to format sse event", "error", err)
				continue
			}
			if _, err := w.Write(data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
