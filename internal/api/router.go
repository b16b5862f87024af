package api

import (
	"net/http"
	"strings"
	"time"

	"coaching-chat/internal/auth"
	"coaching-chat/internal/logger"
	"coaching-chat/internal/onboarding"
	"coaching-chat/internal/session"
	"coaching-chat/internal/store"
	"coaching-chat/internal/stream"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher for SSE support
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// RouterConfig collects the collaborators the HTTP surface needs.
type RouterConfig struct {
	Log         *logger.Logger
	Manager     *session.Manager
	Resolver    *IdentityResolver
	Revealer    *stream.Revealer
	Broadcaster *EventBroadcaster
	Accounts    AccountStore
	Passes      PassValidator
	Flow        *onboarding.Flow
	Verifier    *auth.Verifier
	KV          store.Store
}

// Router holds the HTTP multiplexer and dependencies
type Router struct {
	mux             *http.ServeMux
	log             *logger.Logger
	verifier        *auth.Verifier
	coachHandler    *CoachHandler
	coachingHandler *CoachingHandler
	eventsHandler   *EventsHandler
	passHandler     *GuestPassHandler
	accountHandler  *AccountHandler
	onboardHandler  *OnboardingHandler
	broadcaster     *EventBroadcaster
}

// NewRouter creates a router with all routes configured
func NewRouter(cfg RouterConfig) *Router {
	r := &Router{
		mux:             http.NewServeMux(),
		log:             cfg.Log,
		verifier:        cfg.Verifier,
		coachHandler:    NewCoachHandler(),
		coachingHandler: NewCoachingHandler(cfg.Manager, cfg.Resolver, cfg.Revealer, cfg.Broadcaster, cfg.Log),
		eventsHandler:   NewEventsHandler(cfg.Broadcaster, cfg.Resolver, cfg.Log),
		passHandler:     NewGuestPassHandler(cfg.Passes, cfg.KV, cfg.Log),
		accountHandler:  NewAccountHandler(cfg.Accounts, cfg.Log),
		onboardHandler:  NewOnboardingHandler(cfg.Flow, cfg.Resolver, cfg.Log),
		broadcaster:     cfg.Broadcaster,
	}
	r.setupRoutes()
	return r
}

// setupRoutes configures all HTTP routes
func (r *Router) setupRoutes() {
	// Health check
	r.mux.HandleFunc("GET /health", HealthHandler)

	// Coach registry
	r.mux.HandleFunc("GET /api/coaches", r.coachHandler.List)
	r.mux.HandleFunc("GET /api/coaches/{id}", r.coachHandler.Get)

	// Guest pass redemption
	r.mux.HandleFunc("POST /api/guest-pass/validate", r.passHandler.Validate)

	// Coaching session lifecycle
	r.mux.HandleFunc("POST /api/coaching/start", r.coachingHandler.Start)
	r.mux.HandleFunc("POST /api/coaching/message", r.coachingHandler.Message)
	r.mux.HandleFunc("POST /api/coaching/pause", r.coachingHandler.Pause)
	r.mux.HandleFunc("POST /api/coaching/resume", r.coachingHandler.Resume)
	r.mux.HandleFunc("POST /api/coaching/end", r.coachingHandler.End)
	r.mux.HandleFunc("POST /api/coaching/coach", r.coachingHandler.SwitchCoach)
	r.mux.HandleFunc("POST /api/coaching/reveal/skip", r.coachingHandler.SkipReveal)
	r.mux.HandleFunc("GET /api/coaching/session", r.coachingHandler.GetSession)

	// SSE events route
	r.mux.HandleFunc("GET /api/coaching/events", r.eventsHandler.HandleEvents)

	// Account surface
	r.mux.HandleFunc("GET /api/subscription", r.accountHandler.GetSubscription)
	r.mux.HandleFunc("GET /api/profile", r.accountHandler.GetProfile)
	r.mux.HandleFunc("PUT /api/profile", r.accountHandler.UpdateProfile)

	// Onboarding progress
	r.mux.HandleFunc("GET /api/onboarding/{feature}", r.onboardHandler.Get)
	r.mux.HandleFunc("PUT /api/onboarding/{feature}", r.onboardHandler.Put)
	r.mux.HandleFunc("DELETE /api/onboarding/{feature}", r.onboardHandler.Delete)
}

// ServeHTTP implements the http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()

	// CORS headers for development
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+guestPassHeader+", "+fingerprintHeader)

	if req.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	// Skip logging for health checks and the SSE stream
	shouldLog := strings.HasPrefix(req.URL.Path, "/api/") && !strings.HasSuffix(req.URL.Path, "/events")

	wrapped := newResponseWriter(w)
	handler := http.Handler(r.mux)
	if r.verifier != nil {
		handler = r.verifier.Middleware(handler)
	}
	handler.ServeHTTP(wrapped, req)

	if shouldLog {
		r.log.Info("request completed",
			"method", req.Method, "path", req.URL.Path, "status", wrapped.statusCode, "duration", time.Since(start))
	}
}

// Broadcaster returns the event broadcaster
func (r *Router) Broadcaster() *EventBroadcaster {
	return r.broadcaster
}
