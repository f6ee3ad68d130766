package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/model"
)

// fakeSessions is an in-memory SessionLoader.
type fakeSessions map[string]*model.Session

func (f fakeSessions) Get(_ context.Context, id string) (*model.Session, error) {
	if s, ok := f[id]; ok {
		return s, nil
	}
	return nil, apperror.NotFound("session", id)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// okHandler records that it ran and which session it saw.
type okHandler struct {
	called bool
	seen   *model.Session
}

func (h *okHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.seen = SessionFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func signedCookie(t *testing.T, ts *TokenService, sessionID string) *http.Cookie {
	t.Helper()
	v, err := ts.Generate(sessionID)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return &http.Cookie{Name: SessionCookieName, Value: v}
}

// =========================================================================
// LoadSession TESTS
// =========================================================================

func TestLoadSession(t *testing.T) {
	ts := testTokens(t)
	sessions := fakeSessions{
		"s1": {ID: "s1", AuthToken: "tok", UserEmail: "dev@example.com"},
	}
	expired, _ := ts.GenerateWithDuration("s1", -time.Second)

	tests := []struct {
		name        string
		cookie      *http.Cookie
		wantSession bool
		wantCleared bool
	}{
		{"no cookie", nil, false, false},
		{"valid cookie", signedCookie(t, ts, "s1"), true, false},
		{"garbage cookie", &http.Cookie{Name: SessionCookieName, Value: "garbage"}, false, true},
		{"expired cookie", &http.Cookie{Name: SessionCookieName, Value: expired}, false, true},
		{"unknown session", signedCookie(t, ts, "gone"), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &okHandler{}
			h := LoadSession(ts, sessions, Cookies{}, discardLogger())(next)

			req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if !next.called {
				t.Fatal("LoadSession must never block a request")
			}
			if got := next.seen.IsAuthenticated(); got != tt.wantSession {
				t.Errorf("authenticated = %v, want %v", got, tt.wantSession)
			}
			cleared := false
			for _, c := range rr.Result().Cookies() {
				if c.Name == SessionCookieName && c.MaxAge < 0 {
					cleared = true
				}
			}
			if cleared != tt.wantCleared {
				t.Errorf("cookie cleared = %v, want %v", cleared, tt.wantCleared)
			}
		})
	}
}

// =========================================================================
// GUARD TESTS
// =========================================================================

func TestRequireSession(t *testing.T) {
	authed := &model.Session{ID: "s1", AuthToken: "tok", UserEmail: "dev@example.com"}

	tests := []struct {
		name         string
		path         string
		header       map[string]string
		session      *model.Session
		wantCalled   bool
		wantStatus   int
		wantLocation string
	}{
		{"authenticated passes", "/dashboard", nil, authed, true, http.StatusOK, ""},
		{"anonymous page redirects", "/dashboard/repo/acme", nil, nil, false, http.StatusSeeOther, "/signin"},
		{"token-less session redirects", "/dashboard", nil, &model.Session{UserEmail: "dev@example.com"}, false, http.StatusSeeOther, "/signin"},
		{"anonymous api gets 401", "/api/status", nil, nil, false, http.StatusUnauthorized, ""},
		{"anonymous websocket gets 401", "/dashboard/live/status", map[string]string{"Upgrade": "websocket"}, nil, false, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &okHandler{}
			h := RequireSession(DefaultPolicy)(next)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if tt.session != nil {
				req = req.WithContext(WithSession(req.Context(), tt.session))
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if next.called != tt.wantCalled {
				t.Errorf("protected handler called = %v, want %v", next.called, tt.wantCalled)
			}
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantLocation != "" && rr.Header().Get("Location") != tt.wantLocation {
				t.Errorf("Location = %q, want %q", rr.Header().Get("Location"), tt.wantLocation)
			}
		})
	}
}

func TestPublicOnly(t *testing.T) {
	authed := &model.Session{ID: "s1", AuthToken: "tok", UserEmail: "dev@example.com"}

	t.Run("authenticated is sent home", func(t *testing.T) {
		next := &okHandler{}
		req := httptest.NewRequest(http.MethodGet, "/signin", nil)
		req = req.WithContext(WithSession(req.Context(), authed))
		rr := httptest.NewRecorder()

		PublicOnly(DefaultPolicy)(next).ServeHTTP(rr, req)

		if next.called {
			t.Error("public-only handler must not run for a signed-in visitor")
		}
		if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/dashboard" {
			t.Errorf("got %d → %q, want 303 → /dashboard", rr.Code, rr.Header().Get("Location"))
		}
	})

	t.Run("anonymous passes", func(t *testing.T) {
		next := &okHandler{}
		rr := httptest.NewRecorder()

		PublicOnly(DefaultPolicy)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/signin", nil))

		if !next.called {
			t.Error("public-only handler should run for an anonymous visitor")
		}
	})
}

func TestSessionFromContext_Anonymous(t *testing.T) {
	if sess := SessionFromContext(context.Background()); sess != nil {
		t.Errorf("SessionFromContext() = %+v, want nil", sess)
	}
}
