package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/primo-luminous/wise-attitude-sub000/cmd/identity"
	"github.com/primo-luminous/wise-attitude-sub000/cmd/internal/auth/session"
)

// RequestIDHeader carries the per-request id set by the server middleware.
const RequestIDHeader = "X-Request-Id"

// Sessions is the subset of *session.Service used by the HTTP layer.
type Sessions interface {
	CreateSession(ctx context.Context, now time.Time, employeeID string, rememberMe bool) (session.Issued, error)
	Validate(ctx context.Context, now time.Time, tok string) (session.Result, error)
	DeleteSession(ctx context.Context, now time.Time, tok string) error
	RefreshSession(ctx context.Context, now time.Time, tok string) (bool, error)
	Status(ctx context.Context, now time.Time, tok string) (session.Status, error)
}

// Authenticator checks login credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (identity.Employee, error)
}

// Handler wires HTTP auth endpoints to the session service.
type Handler struct {
	log *slog.Logger
	cfg Config

	sessions Sessions
	auth     Authenticator
	audit    AuditSink
	clock    func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithAuditSink overrides the default no-op audit sink.
func WithAuditSink(sink AuditSink) HandlerOption {
	return func(h *Handler) {
		if sink != nil {
			h.audit = sink
		}
	}
}

// WithClock overrides the wall clock. Tests only.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, sessions Sessions, auth Authenticator, opts ...HandlerOption) (*Handler, error) {
	if sessions == nil {
		return nil, errors.New("auth: nil session service")
	}
	if auth == nil {
		return nil, errors.New("auth: nil authenticator")
	}
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		log:      log,
		cfg:      cfg.withDefaults(),
		sessions: sessions,
		auth:     auth,
		audit:    NoopAuditSink{},
		clock:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/logout", h.handleLogout)
	mux.HandleFunc("/auth/session", h.handleSessionStatus)
	mux.HandleFunc("/auth/session/refresh", h.handleSessionRefresh)
	mux.Handle("/me", h.RequireSession(http.HandlerFunc(h.handleMe)))
}

// ---- handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	email := identity.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "email and password are required")
		return
	}

	ctx := r.Context()
	now := h.clock()
	ev := h.auditEvent(r, now)
	ev.Detail = map[string]any{"email": email, "remember_me": req.RememberMe}

	emp, err := h.auth.Authenticate(ctx, email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials), errors.Is(err, identity.ErrNotActive):
			ev.Action = "auth.login.failed"
			ev.Detail["reason"] = loginFailureReason(err)
			h.audit.Record(ctx, ev)
			h.log.Info("auth.login.failed", "reason", ev.Detail["reason"])
			writeError(w, http.StatusUnauthorized, codeInvalidCredentials, "invalid email or password")
		default:
			h.log.Error("auth.login.authenticate.fail", "err", err)
			writeInternal(w)
		}
		return
	}

	issued, err := h.sessions.CreateSession(ctx, now, emp.ID, req.RememberMe)
	if err != nil {
		h.log.Error("auth.login.create_session.fail", "err", err, "employee_id", emp.ID)
		writeInternal(w)
		return
	}

	ev.Action = "auth.login.success"
	ev.EmployeeID = emp.ID
	ev.SessionID = issued.SessionID
	h.audit.Record(ctx, ev)
	h.log.Info("auth.login.success", "employee_id", emp.ID, "session_id", issued.SessionID)

	h.setSessionCookie(w, issued.Token, issued.ExpiresAt)
	writeJSON(w, http.StatusOK, loginResponse{
		Session: sessionResponse{
			SessionID:  issued.SessionID,
			ExpiresAt:  issued.ExpiresAt,
			RememberMe: issued.RememberMe,
		},
		Employee: toEmployeeResponse(emp),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	now := h.clock()
	if tok := h.SessionToken(r); tok != "" {
		if err := h.sessions.DeleteSession(ctx, now, tok); err != nil {
			h.log.Error("auth.logout.fail", "err", err)
			writeInternal(w)
			return
		}
		ev := h.auditEvent(r, now)
		ev.Action = "auth.logout"
		h.audit.Record(ctx, ev)
	}

	h.expireSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	st, err := h.sessions.Status(r.Context(), h.clock(), h.SessionToken(r))
	if err != nil {
		h.log.Error("auth.session.status.fail", "err", err)
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(st))
}

func (h *Handler) handleSessionRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	tok := h.SessionToken(r)
	if tok == "" {
		writeSignInAgain(w)
		return
	}

	ctx := r.Context()
	now := h.clock()
	ok, err := h.sessions.RefreshSession(ctx, now, tok)
	if err != nil {
		h.log.Error("auth.session.refresh.fail", "err", err)
		writeSignInAgain(w)
		return
	}
	if !ok {
		writeSignInAgain(w)
		return
	}

	st, err := h.sessions.Status(ctx, now, tok)
	if err != nil || !st.Active {
		if err != nil {
			h.log.Error("auth.session.refresh.status.fail", "err", err)
		}
		writeSignInAgain(w)
		return
	}

	ev := h.auditEvent(r, now)
	ev.Action = "auth.session.refresh"
	ev.Detail = map[string]any{"expires_at": st.ExpiresAt}
	h.audit.Record(ctx, ev)

	writeJSON(w, http.StatusOK, refreshResponse{Refreshed: true, ExpiresAt: st.ExpiresAt})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeSignInAgain(w)
		return
	}
	writeJSON(w, http.StatusOK, toMeResponse(id))
}

// ---- helpers ----

func (h *Handler) auditEvent(r *http.Request, now time.Time) AuditEvent {
	return AuditEvent{
		IP:        clientIP(r, h.cfg.TrustProxy),
		UserAgent: strings.TrimSpace(r.UserAgent()),
		RequestID: strings.TrimSpace(r.Header.Get(RequestIDHeader)),
		At:        now,
	}
}

func loginFailureReason(err error) string {
	if errors.Is(err, identity.ErrNotActive) {
		return "not_active"
	}
	return "invalid_credentials"
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for _, p := range parts {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
