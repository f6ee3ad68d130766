package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/model"
)

// contextKey is an unexported type so no other package can read or shadow
// the session stored in a request context.
type contextKey string

const sessionKey contextKey = "session"

// Policy names the two routes the guards redirect to.
type Policy struct {
	// EntryRoute is where unauthenticated visitors of private routes go.
	EntryRoute string
	// HomeRoute is where authenticated visitors of public-only routes go.
	HomeRoute string
}

// DefaultPolicy sends logged-out visitors to sign-in and signed-in visitors
// to the dashboard.
var DefaultPolicy = Policy{EntryRoute: "/signin", HomeRoute: "/dashboard"}

// SessionLoader looks sessions up by ID. *session.Store implements it.
type SessionLoader interface {
	Get(ctx context.Context, id string) (*model.Session, error)
}

// LoadSession resolves the "sid" cookie into a session and stores it in the
// request context. It never rejects a request: a missing, forged, expired, or
// unknown cookie simply means "logged out", and a stale cookie is cleared.
//
// It runs on every request, before the guards, so the guards never see a
// half-initialised state: by the time they run, the session is either fully
// loaded from storage or definitely absent.
func LoadSession(tokens *TokenService, sessions SessionLoader, cookies Cookies, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sessionID, err := tokens.Validate(cookie.Value)
			if err != nil {
				logger.Debug("discarding session cookie", slog.String("error", err.Error()))
				cookies.ClearSession(w)
				next.ServeHTTP(w, r)
				return
			}

			sess, err := sessions.Get(r.Context(), sessionID)
			if err != nil {
				if !errors.Is(err, apperror.ErrNotFound) {
					logger.Error("loading session",
						slog.String("sessionID", sessionID),
						slog.String("error", err.Error()),
					)
				} else {
					cookies.ClearSession(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession guards a private subtree. Unauthenticated requests never
// reach the wrapped handler: browsers are redirected to policy.EntryRoute,
// API and WebSocket clients get a 401.
//
// Because chi applies middleware to everything mounted below a Group or
// Route, guarding the dashboard subrouter guards every nested child at any
// depth.
func RequireSession(policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if SessionFromContext(r.Context()).IsAuthenticated() {
				next.ServeHTTP(w, r)
				return
			}

			if wantsJSON(r) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"sign in required"}` + "\n"))
				return
			}
			http.Redirect(w, r, policy.EntryRoute, http.StatusSeeOther)
		})
	}
}

// PublicOnly guards routes that only make sense while logged out (landing,
// sign-in, sign-up). Authenticated requests are redirected to policy.HomeRoute.
func PublicOnly(policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if SessionFromContext(r.Context()).IsAuthenticated() {
				http.Redirect(w, r, policy.HomeRoute, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext returns the session LoadSession stored, or nil when the
// request is anonymous. The nil result is safe to call IsAuthenticated on.
func SessionFromContext(ctx context.Context) *model.Session {
	sess, _ := ctx.Value(sessionKey).(*model.Session)
	return sess
}

// WithSession returns ctx carrying sess. Used by tests and by handlers that
// sign in and continue in the same request.
func WithSession(ctx context.Context, sess *model.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// wantsJSON reports whether the caller is a script rather than a page load.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api" {
		return true
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
