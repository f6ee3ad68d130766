package auth

import (
	"net/http"
	"time"
)

// SessionCookieName is the cookie holding the signed session ID.
const SessionCookieName = "sid"

// stateCookieName holds the OAuth state between the redirect to GitHub and
// the return to /signup.
const stateCookieName = "oauth_state"

// Cookies sets and clears the cookies this package owns.
//
// Every cookie is HttpOnly (scripts cannot read it) and SameSite=Lax (not
// sent on cross-site POSTs). Secure should be true whenever the site is
// served over HTTPS; it is off by default for local development.
type Cookies struct {
	Secure bool
}

// SetSession stores the signed session value for ttl.
func (c Cookies) SetSession(w http.ResponseWriter, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSession tells the browser to delete the session cookie.
func (c Cookies) ClearSession(w http.ResponseWriter) {
	c.clear(w, SessionCookieName)
}

// SetState stores a single-use OAuth state value for ten minutes.
func (c Cookies) SetState(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ConsumeState reports whether r carries state in both the query and the
// state cookie, and clears the cookie either way.
func (c Cookies) ConsumeState(w http.ResponseWriter, r *http.Request) bool {
	cookie, err := r.Cookie(stateCookieName)
	c.clear(w, stateCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	return r.URL.Query().Get("state") == cookie.Value
}

func (c Cookies) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
