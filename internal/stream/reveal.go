package stream

import (
	"context"
	"strings"
	"sync"
	"time"

	"coaching-chat/internal/logger"
)

// DefaultInterval is the pacing between revealed words.
const DefaultInterval = 40 * time.Millisecond

// Chunk is one step of a progressive reveal. Final carries no text and marks
// the reveal as finished.
type Chunk struct {
	MessageID string `json:"message_id"`
	Text      string `json:"text,omitempty"`
	Final     bool   `json:"final,omitempty"`
}

// Sink receives reveal chunks as they are paced out.
type Sink func(Chunk)

// Revealer paces already-received reply text out to a sink word by word.
// This is a presentation affordance only: the full text exists before the
// reveal starts, and skipping or cancelling never touches the stored message.
type Revealer struct {
	log      *logger.Logger
	interval time.Duration

	mu     sync.Mutex
	active map[string]*reveal
}

type reveal struct {
	skip   chan struct{}
	cancel chan struct{}
	once   sync.Once
}

// NewRevealer creates a revealer with the given pacing interval.
// A non-positive interval falls back to DefaultInterval.
func NewRevealer(log *logger.Logger, interval time.Duration) *Revealer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Revealer{
		log:      log,
		interval: interval,
		active:   make(map[string]*reveal),
	}
}

// Reveal starts pacing text out to sink, keyed by message id, and returns
// immediately. Starting a reveal for a message id that is already revealing
// cancels the previous reveal first.
func (r *Revealer) Reveal(ctx context.Context, messageID, text string, sink Sink) {
	r.Cancel(messageID)

	rv := &reveal{
		skip:   make(chan struct{}),
		cancel: make(chan struct{}),
	}

	r.mu.Lock()
	r.active[messageID] = rv
	r.mu.Unlock()

	go r.run(ctx, messageID, text, sink, rv)
}

func (r *Revealer) run(ctx context.Context, messageID, text string, sink Sink, rv *reveal) {
	defer r.remove(messageID, rv)

	words := strings.Fields(text)
	r.log.Debug("reveal started", "message_id", messageID, "words", len(words))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for i, word := range words {
		select {
		case <-ctx.Done():
			return
		case <-rv.cancel:
			r.log.Debug("reveal cancelled", "message_id", messageID)
			return
		case <-rv.skip:
			// Flush everything not yet revealed in a single chunk.
			sink(Chunk{MessageID: messageID, Text: strings.Join(words[i:], " ")})
			sink(Chunk{MessageID: messageID, Final: true})
			r.log.Debug("reveal skipped", "message_id", messageID, "flushed_words", len(words)-i)
			return
		case <-ticker.C:
			chunk := word
			if i > 0 {
				chunk = " " + word
			}
			sink(Chunk{MessageID: messageID, Text: chunk})
		}
	}

	sink(Chunk{MessageID: messageID, Final: true})
	r.log.Debug("reveal completed", "message_id", messageID)
}

// Skip flushes the remainder of an in-flight reveal at once.
// Skipping an unknown message id is a no-op.
func (r *Revealer) Skip(messageID string) {
	r.mu.Lock()
	rv, ok := r.active[messageID]
	r.mu.Unlock()
	if !ok {
		return
	}
	rv.once.Do(func() { close(rv.skip) })
}

// Cancel stops an in-flight reveal without flushing the remainder.
func (r *Revealer) Cancel(messageID string) {
	r.mu.Lock()
	rv, ok := r.active[messageID]
	delete(r.active, messageID)
	r.mu.Unlock()
	if !ok {
		return
	}
	close(rv.cancel)
}

// SkipAll flushes every in-flight reveal.
func (r *Revealer) SkipAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.Skip(id)
	}
}

// ActiveCount returns the number of reveals currently in flight.
func (r *Revealer) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

func (r *Revealer) remove(messageID string, rv *reveal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.active[messageID]; ok && cur == rv {
		delete(r.active, messageID)
	}
}
