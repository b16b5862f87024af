package api

import (
	"encoding/json"
	"sync"

	"coaching-chat/internal/logger"
	"coaching-chat/internal/models"
	"coaching-chat/internal/stream"
)

// Event is a Server-Sent Event.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// EventBroadcaster manages SSE clients and fans engine events out to them,
// keyed by principal so each user (or guest pass) only sees their own session.
type EventBroadcaster struct {
	log *logger.Logger

	mu      sync.RWMutex
	clients map[string]map[chan Event]struct{}
}

// NewEventBroadcaster creates an empty broadcaster.
func NewEventBroadcaster(log *logger.Logger) *EventBroadcaster {
	return &EventBroadcaster{
		log:     log,
		clients: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a client for a principal's events.
func (b *EventBroadcaster) Subscribe(principal string) chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 16)

	if b.clients[principal] == nil {
		b.clients[principal] = make(map[chan Event]struct{})
	}
	b.clients[principal][ch] = struct{}{}

	b.log.Debug("sse client subscribed", "principal", principal, "total_clients", len(b.clients[principal]))
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *EventBroadcaster) Unsubscribe(principal string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, ok := b.clients[principal]; ok {
		if _, ok := clients[ch]; ok {
			delete(clients, ch)
			close(ch)
		}
		if len(clients) == 0 {
			delete(b.clients, principal)
		}
	}

	b.log.Debug("sse client unsubscribed", "principal", principal)
}

// Broadcast sends an event to every client watching the principal.
func (b *EventBroadcaster) Broadcast(principal string, event Event) {
	b.mu.RLock()
	clients := b.clients[principal]
	b.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	for ch := range clients {
		select {
		case ch <- event:
		default:
			// Client channel is full; drop rather than block the engine.
			b.log.Warn("sse client channel full, dropping event", "principal", principal, "type", event.Type)
		}
	}
}

// MessageAppended implements session.Notifier.
func (b *EventBroadcaster) MessageAppended(principal string, msg models.Message) {
	b.Broadcast(principal, Event{Type: "message", Data: msg})
}

// SessionEnded implements session.Notifier.
func (b *EventBroadcaster) SessionEnded(principal string, summary *models.SessionSummary) {
	data := map[string]any{}
	if summary != nil {
		data["summary"] = summary
	}
	b.Broadcast(principal, Event{Type: "session_ended", Data: data})
}

// ChunkSink returns a reveal sink that broadcasts chunks to the principal.
func (b *EventBroadcaster) ChunkSink(principal string) stream.Sink {
	return func(chunk stream.Chunk) {
		b.Broadcast(principal, Event{Type: "reveal_chunk", Data: chunk})
	}
}

// ClientCount returns the number of clients subscribed for a principal.
func (b *EventBroadcaster) ClientCount(principal string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[principal])
}

// TotalClientCount returns the client count across all principals.
func (b *EventBroadcaster) TotalClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, clients := range b.clients {
		total += len(clients)
	}
	return total
}

// FormatSSE renders an event in SSE wire format.
func FormatSSE(event Event) ([]byte, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte("event: " + event.Type + "\ndata: " + string(data) + "\n\n"), nil
}
