// Account and sign-in flows.
//
// AuthService orchestrates everything that creates or ends a session:
//
//	AuthHandler (HTTP) → AuthService → gateway (signIn, githubAuth, ...)
//	                                 ↘ session.Store (persist the session)
//	                                 ↘ TokenService (sign the session cookie)
//
// The backend owns accounts and passwords. This server never sees a password
// hash; it forwards credentials and keeps only the bearer token the backend
// hands back.

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/auth"
	"github.com/sakif/sonarhub/internal/model"
)

// AccountBackend is the slice of the backend the account flows call.
type AccountBackend interface {
	SignIn(ctx context.Context, email, password string) (string, error)
	GitHubAuth(ctx context.Context, code string) (*model.AuthPayload, error)
	SetPassword(ctx context.Context, email, password string) (string, error)
	SendPasswordChangeEmail(ctx context.Context, email string) (string, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) (string, error)
}

// Sessions is the session store as the account flows see it.
// *session.Store implements it.
type Sessions interface {
	SignIn(ctx context.Context, token, email string) (*model.Session, error)
	Logout(ctx context.Context, id string) error
}

// AuthService handles sign-in, sign-up and password flows.
type AuthService struct {
	backend  AccountBackend
	sessions Sessions
	tokens   *auth.TokenService
	logger   *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(backend AccountBackend, sessions Sessions, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		backend:  backend,
		sessions: sessions,
		tokens:   tokens,
		logger:   logger,
	}
}

// AuthResult bundles the new session and the signed cookie value, so the
// handler can set the cookie and redirect in one step.
type AuthResult struct {
	Session *model.Session
	Cookie  string
	// HasPassword is false for accounts created through GitHub that have
	// not set a password yet.
	HasPassword bool
}

// SignIn exchanges email and password for a backend token and opens a
// session for it.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	token, err := s.backend.SignIn(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: signing in: %w", err)
	}
	if token == "" {
		return nil, apperror.Unauthorized("Invalid credentials. Please try again.")
	}

	res, err := s.open(ctx, token, email)
	if err != nil {
		return nil, err
	}
	res.HasPassword = true
	return res, nil
}

// LoginWithGitHub completes the GitHub sign-up: the backend exchanges the
// OAuth code, creates or finds the account, and returns its token.
func (s *AuthService) LoginWithGitHub(ctx context.Context, code string) (*AuthResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperror.ValidationFailed("code", "missing GitHub authorization code")
	}

	payload, err := s.backend.GitHubAuth(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("service/auth: GitHub sign-up: %w", err)
	}
	if !payload.IsAuthenticated || payload.Token == "" {
		return nil, apperror.Unauthorized("GitHub authentication failed")
	}
	if payload.Email == "" {
		return nil, apperror.Unauthorized("GitHub account has no verified email")
	}

	res, err := s.open(ctx, payload.Token, payload.Email)
	if err != nil {
		return nil, err
	}
	res.HasPassword = payload.HasPassword

	s.logger.Info("user authenticated via GitHub",
		slog.String("sessionID", res.Session.ID),
		slog.Bool("hasPassword", payload.HasPassword),
	)
	return res, nil
}

// open persists a session and signs its cookie.
func (s *AuthService) open(ctx context.Context, token, email string) (*AuthResult, error) {
	sess, err := s.sessions.SignIn(ctx, token, email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: opening session: %w", err)
	}
	cookie, err := s.tokens.Generate(sess.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: signing session %s: %w", sess.ID, err)
	}
	return &AuthResult{Session: sess, Cookie: cookie}, nil
}

// Logout ends the session. Unknown IDs are not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Logout(ctx, sessionID); err != nil {
		return fmt.Errorf("service/auth: logging out %s: %w", sessionID, err)
	}
	return nil
}

// SetPassword sets the first password of a GitHub-created account and then
// sends the password-change notification. A failed notification is logged,
// not returned: the password is already set.
func (s *AuthService) SetPassword(ctx context.Context, email, password, confirm string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", apperror.ValidationFailed("email", "email is required")
	}
	if err := checkNewPassword(password, confirm); err != nil {
		return "", err
	}

	msg, err := s.backend.SetPassword(ctx, email, password)
	if err != nil {
		return "", fmt.Errorf("service/auth: setting password: %w", err)
	}
	if msg == "" {
		return "", apperror.Upstream("Something went wrong. Please try again.", errRejected)
	}

	if _, err := s.backend.SendPasswordChangeEmail(ctx, email); err != nil {
		s.logger.Warn("password change email failed",
			slog.String("error", err.Error()),
		)
	}
	return msg, nil
}

// ForgotPassword asks the backend to email a reset token. The returned
// message is the backend's, shown as-is.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", apperror.ValidationFailed("email", "email is required")
	}
	msg, err := s.backend.ForgotPassword(ctx, email)
	if err != nil {
		return "", fmt.Errorf("service/auth: requesting reset: %w", err)
	}
	return msg, nil
}

// ResetPassword sets a new password with the emailed reset token.
func (s *AuthService) ResetPassword(ctx context.Context, token, password, confirm string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperror.ValidationFailed("token", "reset token is required")
	}
	if err := checkNewPassword(password, confirm); err != nil {
		return "", err
	}
	msg, err := s.backend.ResetPassword(ctx, token, password)
	if err != nil {
		return "", fmt.Errorf("service/auth: resetting password: %w", err)
	}
	return msg, nil
}

func checkNewPassword(password, confirm string) error {
	if password == "" {
		return apperror.ValidationFailed("password", "password is required")
	}
	if password != confirm {
		return apperror.ValidationFailed("confirm", "Passwords do not match.")
	}
	return nil
}
