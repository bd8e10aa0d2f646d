// Package handler exposes the consent state machine over HTTP. Each visitor
// gets one supervised controller, resolved through the session registry by
// the identity cookie.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"consentd/internal/consent"
	"consentd/internal/consent/service"
	"consentd/internal/consent/supervisor"
	"consentd/internal/platform/metrics"
	"consentd/internal/platform/middleware"
	"consentd/internal/platform/ratelimit"
	"consentd/internal/visitor"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/platform/httputil"
)

// Session is the supervised controller surface the handler drives. It is
// satisfied by *supervisor.Supervisor.
type Session interface {
	Initialize(ctx context.Context) error
	AcceptAll(ctx context.Context) error
	RejectAll(ctx context.Context) error
	Customize(ctx context.Context, cats consent.Categories) error
	ApplySystemPreference(ctx context.Context, cats consent.Categories) error
	Withdraw(ctx context.Context) error
	Retry(ctx context.Context) error
	EmergencyAcceptEssential(ctx context.Context) error
	OpenModal(explicit bool) bool
	CloseModal()
	Snapshot(ctx context.Context) supervisor.Snapshot
	Close()
}

// Sessions resolves a visitor to their live session. Teardown stays with
// the registry's idle eviction; handlers only ever acquire.
type Sessions interface {
	Acquire(visitorID string) service.Session
}

// Handler handles consent endpoints.
type Handler struct {
	logger   *slog.Logger
	sessions Sessions
	metrics  *metrics.Metrics
	tokens   *visitor.TokenService
	limiter  ratelimit.Limiter
}

// Option configures a Handler.
type Option func(*Handler)

// WithRateLimit caps consent mutations per visitor using the given limiter.
func WithRateLimit(limiter ratelimit.Limiter) Option {
	return func(h *Handler) {
		h.limiter = limiter
	}
}

// New creates a new consent Handler.
func New(sessions Sessions, tokens *visitor.TokenService, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Handler {
	h := &Handler{
		logger:   logger,
		sessions: sessions,
		metrics:  m,
		tokens:   tokens,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the consent routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	consentRouter := chi.NewRouter()
	consentRouter.Use(middleware.Recovery(h.logger))
	consentRouter.Use(middleware.RequestID)
	consentRouter.Use(middleware.Logger(h.logger))
	consentRouter.Use(middleware.Timeout(30 * time.Second))
	consentRouter.Use(middleware.ContentTypeJSON)
	consentRouter.Use(middleware.Latency(h.metrics))
	consentRouter.Use(middleware.SuppressCrawlers(h.metrics))
	consentRouter.Use(middleware.Identify(h.tokens))

	consentRouter.Get("/v1/consent", h.handleGetConsent)

	// Mutations are rate limited; the snapshot read stays unthrottled so a
	// throttled visitor can still see the current state.
	consentRouter.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(middleware.RateLimit(h.limiter, h.logger))
		}
		r.Delete("/v1/consent", h.handleWithdraw)
		r.Post("/v1/consent/accept-all", h.handleAcceptAll)
		r.Post("/v1/consent/reject-all", h.handleRejectAll)
		r.Post("/v1/consent/customize", h.handleCustomize)
		r.Post("/v1/consent/modal/open", h.handleOpenModal)
		r.Post("/v1/consent/modal/close", h.handleCloseModal)
		r.Post("/v1/consent/retry", h.handleRetry)
		r.Post("/v1/consent/emergency-accept", h.handleEmergencyAccept)
	})

	r.Mount("/", consentRouter)
}

// session resolves the visitor's supervised session from the registry.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (Session, bool) {
	visitorID := middleware.GetVisitorID(r.Context())
	if visitorID == "" {
		// The identify middleware always sets a visitor ID; reaching this
		// point means the route was wired without it.
		h.logger.ErrorContext(r.Context(), "visitor ID missing from context",
			"request_id", middleware.GetRequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "visitor context error"))
		return nil, false
	}

	session, ok := h.sessions.Acquire(visitorID).(Session)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "session type error"))
		return nil, false
	}
	return session, true
}

// handleGetConsent initializes on first touch and returns the full snapshot.
// A Global Privacy Control signal on the request is applied before the
// snapshot is taken; an explicit prior choice suppresses it.
func (h *Handler) handleGetConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	// Initialization errors are reflected in the snapshot's tier; the
	// request itself still succeeds so the client can render the fallback.
	if err := session.Initialize(ctx); err != nil {
		h.logger.WarnContext(ctx, "consent initialization failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	} else if gpcSignal(r) {
		if err := session.ApplySystemPreference(ctx, consent.Categories{}); err != nil {
			h.logger.WarnContext(ctx, "privacy signal not applied",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
	}

	httputil.WriteJSON(w, http.StatusOK, session.Snapshot(ctx))
}

func (h *Handler) handleAcceptAll(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, s Session) error {
		return s.AcceptAll(ctx)
	})
}

func (h *Handler) handleRejectAll(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, s Session) error {
		return s.RejectAll(ctx)
	})
}

// customizeRequest is the body for per-category selection. Essential is not
// accepted from clients; it is always on.
type customizeRequest struct {
	Functional bool `json:"functional"`
	Analytics  bool `json:"analytics"`
	Marketing  bool `json:"marketing"`
}

func (h *Handler) handleCustomize(w http.ResponseWriter, r *http.Request) {
	var req customizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	h.decide(w, r, func(ctx context.Context, s Session) error {
		return s.Customize(ctx, consent.Categories{
			Functional: req.Functional,
			Analytics:  req.Analytics,
			Marketing:  req.Marketing,
		})
	})
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, s Session) error {
		return s.Withdraw(ctx)
	})
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, s Session) error {
		return s.Retry(ctx)
	})
}

func (h *Handler) handleEmergencyAccept(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, s Session) error {
		return s.EmergencyAcceptEssential(ctx)
	})
}

// decide runs one consent operation and returns the resulting snapshot.
// Failures return the domain error status but still include the snapshot so
// clients render the correct fallback tier without a second round trip.
func (h *Handler) decide(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, s Session) error) {
	ctx := r.Context()
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := op(ctx, session); err != nil {
		h.logger.WarnContext(ctx, "consent operation failed",
			"request_id", middleware.GetRequestID(ctx),
			"path", r.URL.Path,
			"error", err.Error(),
		)
		snapshot := session.Snapshot(ctx)
		httputil.WriteJSON(w, httputil.CodeToHTTPStatus(dErrors.CodeOf(err)), struct {
			supervisor.Snapshot
			Error string `json:"error"`
		}{Snapshot: snapshot, Error: string(dErrors.CodeOf(err))})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, session.Snapshot(ctx))
}

// openModalRequest names the entry point. "settings" is an explicit request
// to customize and opens the modal even after a decision was made; "banner"
// only works while the banner is showing.
type openModalRequest struct {
	Source string `json:"source"`
}

func (h *Handler) handleOpenModal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req openModalRequest
	if r.Body != nil {
		// An empty body means the banner entry point.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	session.OpenModal(req.Source == "settings")
	httputil.WriteJSON(w, http.StatusOK, session.Snapshot(ctx))
}

func (h *Handler) handleCloseModal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	session.CloseModal()
	httputil.WriteJSON(w, http.StatusOK, session.Snapshot(ctx))
}

// gpcSignal reports whether the request carries a Global Privacy Control or
// legacy Do Not Track signal.
func gpcSignal(r *http.Request) bool {
	return r.Header.Get("Sec-GPC") == "1" || r.Header.Get("DNT") == "1"
}
