package authapi

import (
	"net/http"
	"strings"

	"github.com/primo-luminous/wise-attitude-sub000/cmd/internal/auth/session"
)

// RequireSession validates the presented session before calling next and
// stores the resulting Identity in the request context.
//
// Every failure looks the same to the client, storage errors included: HTML
// navigations are redirected to the login page and API calls get a 401.
// The failure kind is only logged.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := h.SessionToken(r)
		if tok == "" {
			h.unauthenticated(w, r)
			return
		}

		res, err := h.sessions.Validate(r.Context(), h.clock(), tok)
		if err != nil {
			h.log.Error("auth.require_session.fail", "err", err, "path", r.URL.Path)
			h.unauthenticated(w, r)
			return
		}
		if !res.OK() {
			h.log.Info("auth.require_session.reject", "failure", res.Failure.String(), "path", r.URL.Path)
			if res.Failure != session.FailureNone {
				h.expireSessionCookie(w)
			}
			h.unauthenticated(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), *res.Identity)))
	})
}

func (h *Handler) unauthenticated(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		http.Redirect(w, r, h.cfg.LoginPath, http.StatusSeeOther)
		return
	}
	writeSignInAgain(w)
}

// wantsHTML reports whether r is a browser navigation rather than an API call.
func wantsHTML(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Accept")), "text/html")
}
