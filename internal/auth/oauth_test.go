package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestGitHubAuthorizer_AuthURL(t *testing.T) {
	a := NewGitHubAuthorizer("client-123", "http://localhost:8080/signup")

	state, raw := a.AuthURL()
	if state == "" {
		t.Fatal("AuthURL() returned an empty state")
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("AuthURL() returned an invalid URL: %v", err)
	}
	if u.Host != "github.com" {
		t.Errorf("host = %q, want github.com", u.Host)
	}
	q := u.Query()
	if q.Get("client_id") != "client-123" {
		t.Errorf("client_id = %q, want client-123", q.Get("client_id"))
	}
	if q.Get("redirect_uri") != "http://localhost:8080/signup" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	if q.Get("state") != state {
		t.Errorf("state = %q, want %q", q.Get("state"), state)
	}
	if q.Get("scope") != "user:email" {
		t.Errorf("scope = %q, want user:email", q.Get("scope"))
	}
}

func TestGitHubAuthorizer_Enabled(t *testing.T) {
	var nilAuthorizer *GitHubAuthorizer
	if nilAuthorizer.Enabled() {
		t.Error("nil authorizer must not be enabled")
	}
	if NewGitHubAuthorizer("", "http://x/signup").Enabled() {
		t.Error("authorizer without client id must not be enabled")
	}
}

func TestCookies_ConsumeState(t *testing.T) {
	c := Cookies{}

	tests := []struct {
		name   string
		cookie string
		query  string
		want   bool
	}{
		{"matching", "abc", "abc", true},
		{"mismatch", "abc", "xyz", false},
		{"no cookie", "", "abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/signup?code=c&state="+tt.query, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: stateCookieName, Value: tt.cookie})
			}
			rr := httptest.NewRecorder()

			if got := c.ConsumeState(rr, req); got != tt.want {
				t.Errorf("ConsumeState() = %v, want %v", got, tt.want)
			}

			// The state cookie is single-use: it is cleared whatever the outcome.
			cleared := false
			for _, ck := range rr.Result().Cookies() {
				if ck.Name == stateCookieName && ck.MaxAge < 0 {
					cleared = true
				}
			}
			if !cleared {
				t.Error("ConsumeState() did not clear the state cookie")
			}
		})
	}
}
