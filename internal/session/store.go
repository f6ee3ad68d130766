// Package session is the single source of truth for "is this browser signed
// in, and as whom".
//
// The store sits in front of a repository.SessionRepository. Writes go to
// storage first and only then to the in-memory cache, so a crash between the
// two can never leave the cache claiming a session that was not persisted.
// Reads go through the cache; a miss falls back to storage, which is how a
// process restart (or a page reload landing on a fresh instance) restores the
// signed-in state.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/model"
	"github.com/sakif/sonarhub/internal/repository"
)

// Forgetter drops derived per-user state when a session ends.
// The identity resolver implements it.
type Forgetter interface {
	Forget(ctx context.Context, email string)
}

// Store holds signed-in sessions.
type Store struct {
	repo   repository.SessionRepository
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*model.Session

	forget []Forgetter
}

// New creates a Store. Sessions are loaded lazily on first Get.
func New(repo repository.SessionRepository, logger *slog.Logger) *Store {
	return &Store{
		repo:     repo,
		logger:   logger,
		sessions: make(map[string]*model.Session),
	}
}

// OnLogout registers f to be told about every logout.
func (s *Store) OnLogout(f Forgetter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forget = append(s.forget, f)
}

// SignIn records a successful sign-in. Token and email are required together;
// a sign-in response missing either is rejected and nothing is stored.
func (s *Store) SignIn(ctx context.Context, token, email string) (*model.Session, error) {
	token = strings.TrimSpace(token)
	email = strings.TrimSpace(email)
	if token == "" {
		return nil, apperror.ValidationFailed("token", "sign-in response did not include a token")
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	sess := &model.Session{AuthToken: token, UserEmail: email}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("session: signing in %s: %w", email, err)
	}
	s.sessions[sess.ID] = sess

	s.logger.Info("session started",
		slog.String("sessionID", sess.ID),
		slog.String("email", email),
	)
	return copySession(sess), nil
}

// Get returns the session with id. Unknown ids are apperror.ErrNotFound,
// which callers treat as "logged out".
func (s *Store) Get(ctx context.Context, id string) (*model.Session, error) {
	if id == "" {
		return nil, apperror.NotFound("session", id)
	}

	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return copySession(sess), nil
	}

	// Miss: read storage under the write lock so a concurrent Logout cannot
	// delete the row between our read and the cache insert.
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return copySession(sess), nil
	}

	sess, err := s.repo.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("session: loading %s: %w", id, err)
	}
	s.sessions[id] = sess

	return copySession(sess), nil
}

// Logout clears the session with id from storage and cache, then tells every
// registered Forgetter. Logging out an unknown or already cleared session is
// a no-op.
func (s *Store) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	s.mu.Lock()
	email := ""
	if sess, ok := s.sessions[id]; ok {
		email = sess.UserEmail
	} else if sess, err := s.repo.GetSession(ctx, id); err == nil {
		email = sess.UserEmail
	}

	if err := s.repo.DeleteSession(ctx, id); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("session: logging out %s: %w", id, err)
	}
	delete(s.sessions, id)
	forget := append([]Forgetter(nil), s.forget...)
	s.mu.Unlock()

	if email != "" {
		for _, f := range forget {
			f.Forget(ctx, email)
		}
	}

	s.logger.Info("session ended", slog.String("sessionID", id))
	return nil
}

// Prune removes sessions older than ttl from storage and cache.
func (s *Store) Prune(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.repo.DeleteSessionsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("session: pruning: %w", err)
	}
	for id, sess := range s.sessions {
		if sess.CreatedAt.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
	return n, nil
}

func copySession(s *model.Session) *model.Session {
	c := *s
	return &c
}
