package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/auth"
	"github.com/sakif/sonarhub/internal/service"
)

// AuthHandler serves the public pages and the flows that open or close a
// session.
//
// HANDLER RESPONSIBILITIES:
//   - Landing, SignInPage/SignIn        → email + password sign-in
//   - SignUp, GitHubLogin               → "Sign up with GitHub" and its return trip
//   - SetPasswordPage/SetPassword       → first password of a GitHub account
//   - ForgotPasswordPage/ForgotPassword → two-step reset (email, then token + password)
//   - Logout                            → end the session
type AuthHandler struct {
	*Base
	accounts *service.AuthService
	github   *auth.GitHubAuthorizer
	cookies  auth.Cookies
	ttl      time.Duration
}

// NewAuthHandler creates an AuthHandler. ttl is the session cookie lifetime.
func NewAuthHandler(base *Base, accounts *service.AuthService, github *auth.GitHubAuthorizer, cookies auth.Cookies, ttl time.Duration) *AuthHandler {
	return &AuthHandler{
		Base:     base,
		accounts: accounts,
		github:   github,
		cookies:  cookies,
		ttl:      ttl,
	}
}

// formData is what the auth forms render with.
type formData struct {
	Email string
	Err   string
	// Field names the input the error is about.
	Field string
	// Step is the forgot-password step: "email", "reset" or "done".
	Step          string
	GitHubEnabled bool
}

func formError(err error) formData {
	fd := formData{Err: apperror.Message(err)}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		fd.Field = appErr.Field
	}
	return fd
}

// formStatus is the status a failed form is redisplayed with.
func formStatus(err error) int {
	status, _ := statusOf(err)
	if status == http.StatusBadRequest {
		return http.StatusUnprocessableEntity
	}
	return status
}

// Landing serves GET /. Signed-in visitors never get here (PublicOnly).
func (h *AuthHandler) Landing(w http.ResponseWriter, r *http.Request) {
	h.Render.Render(w, r, http.StatusOK, "landing.html", Page{Title: "SonarHub"})
}

// SignInPage serves GET /signin.
func (h *AuthHandler) SignInPage(w http.ResponseWriter, r *http.Request) {
	h.Render.Render(w, r, http.StatusOK, "signin.html", Page{Title: "Sign in to SonarHub", Data: formData{}})
}

// SignIn handles POST /signin.
//
// FLOW:
//  1. Forward the credentials to the backend's signIn mutation
//  2. Persist the session (token + email) before anything else happens
//  3. Set the signed session cookie
//  4. Redirect to the dashboard
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	email := r.PostFormValue("email")

	res, err := h.accounts.SignIn(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		fd := formError(err)
		fd.Email = email
		if !isExpected(err) && !errors.Is(err, apperror.ErrUnauthorized) {
			h.Logger.Error("sign-in failed", slog.String("error", err.Error()))
		}
		h.Render.Render(w, r, formStatus(err), "signin.html", Page{Title: "Sign in to SonarHub", Data: fd})
		return
	}

	h.cookies.SetSession(w, res.Cookie, h.ttl)
	http.Redirect(w, r, auth.DefaultPolicy.HomeRoute, http.StatusSeeOther)
}

// SignUp serves GET /signup. GitHub sends the visitor back here with ?code=
// after authorization; without a code it shows the sign-up button.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		h.Logger.Info("GitHub authorization denied", slog.String("error", errParam))
		h.Toasts.Error(visitor(r), "GitHub authorization was cancelled")
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.Render.Render(w, r, http.StatusOK, "signup.html", Page{
			Title: "Sign up to SonarHub",
			Data:  formData{GitHubEnabled: h.github.Enabled()},
		})
		return
	}

	// CSRF check: the state GitHub echoes back must match our cookie.
	if !h.cookies.ConsumeState(w, r) {
		h.Logger.Warn("sign-up: OAuth state mismatch")
		h.Toasts.Error(visitor(r), "Sign-up link expired, please try again")
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	res, err := h.accounts.LoginWithGitHub(r.Context(), code)
	if err != nil {
		h.Logger.Error("sign-up: GitHub authentication failed", slog.String("error", err.Error()))
		h.Render.Render(w, r, formStatus(err), "signup.html", Page{
			Title: "Sign up to SonarHub",
			Data:  formData{Err: apperror.Message(err), GitHubEnabled: h.github.Enabled()},
		})
		return
	}

	h.cookies.SetSession(w, res.Cookie, h.ttl)
	if !res.HasPassword {
		http.Redirect(w, r, "/set-password", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, auth.DefaultPolicy.HomeRoute, http.StatusSeeOther)
}

// GitHubLogin handles GET /signup/github: store a state cookie and send the
// browser to GitHub's authorization page.
func (h *AuthHandler) GitHubLogin(w http.ResponseWriter, r *http.Request) {
	if !h.github.Enabled() {
		h.Toasts.Error(visitor(r), "GitHub sign-up is not configured")
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}
	state, authURL := h.github.AuthURL()
	h.cookies.SetState(w, state)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// SetPasswordPage serves GET /set-password. The email is prefilled when the
// visitor is signed in.
func (h *AuthHandler) SetPasswordPage(w http.ResponseWriter, r *http.Request) {
	fd := formData{}
	if sess := auth.SessionFromContext(r.Context()); sess.IsAuthenticated() {
		fd.Email = sess.UserEmail
	}
	h.Render.Render(w, r, http.StatusOK, "set_password.html", Page{Title: "Set Password", Data: fd})
}

// SetPassword handles POST /set-password. On success the backend also sends
// the password-change email, and the visitor goes to sign-in.
func (h *AuthHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	email := r.PostFormValue("email")

	msg, err := h.accounts.SetPassword(r.Context(), email, r.PostFormValue("password"), r.PostFormValue("confirm"))
	if err != nil {
		fd := formError(err)
		fd.Email = email
		h.Render.Render(w, r, formStatus(err), "set_password.html", Page{Title: "Set Password", Data: fd})
		return
	}

	h.Toasts.Success(visitor(r), msg, "")
	http.Redirect(w, r, auth.DefaultPolicy.EntryRoute, http.StatusSeeOther)
}

// ForgotPasswordPage serves GET /forgot-password?step=email|reset|done.
func (h *AuthHandler) ForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	step := r.URL.Query().Get("step")
	switch step {
	case "reset", "done":
	default:
		step = "email"
	}
	h.Render.Render(w, r, http.StatusOK, "forgot_password.html", Page{
		Title: "Forgot Password",
		Data:  formData{Step: step, Email: r.URL.Query().Get("email")},
	})
}

// ForgotPassword handles both steps of POST /forgot-password.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))

	if r.PostFormValue("step") == "reset" {
		msg, err := h.accounts.ResetPassword(r.Context(), r.PostFormValue("token"),
			r.PostFormValue("password"), r.PostFormValue("confirm"))
		if err != nil {
			fd := formError(err)
			fd.Step, fd.Email = "reset", email
			h.Render.Render(w, r, formStatus(err), "forgot_password.html", Page{Title: "Set New Password", Data: fd})
			return
		}
		// The toast sends the visitor to sign-in once it closes.
		h.Toasts.Success(visitor(r), msg, auth.DefaultPolicy.EntryRoute)
		http.Redirect(w, r, "/forgot-password?step=done", http.StatusSeeOther)
		return
	}

	msg, err := h.accounts.ForgotPassword(r.Context(), email)
	if err != nil {
		fd := formError(err)
		fd.Step, fd.Email = "email", email
		h.Render.Render(w, r, formStatus(err), "forgot_password.html", Page{Title: "Forgot Password", Data: fd})
		return
	}
	if msg != "" {
		h.Toasts.Info(visitor(r), msg)
	}
	http.Redirect(w, r, "/forgot-password?step=reset&email="+url.QueryEscape(email), http.StatusSeeOther)
}

// Logout handles POST /logout: drop the session everywhere, clear the
// cookie, and return to sign-in.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := auth.SessionFromContext(r.Context()); sess != nil {
		if err := h.accounts.Logout(r.Context(), sess.ID); err != nil {
			h.Logger.Error("logout failed", slog.String("error", err.Error()))
		}
	}
	h.cookies.ClearSession(w)
	http.Redirect(w, r, auth.DefaultPolicy.EntryRoute, http.StatusSeeOther)
}

// Session serves GET /api/session: the signed-in state for scripts.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"isAuthenticated": sess.IsAuthenticated(),
		"email":           sessionEmail(sess),
	})
}
