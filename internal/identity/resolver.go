// Package identity maps a signed-in email to the GitHub username every
// repository-scoped backend query is keyed by.
//
// Resolution is a hard gate: dependent services take the username as an
// argument, so nothing repository-scoped can be dispatched until Resolve
// has succeeded.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/gateway"
	"github.com/sakif/sonarhub/internal/model"
	"github.com/sakif/sonarhub/internal/repository"
)

// UserLookup is the backend call Resolve depends on.
type UserLookup interface {
	UserByEmail(ctx context.Context, email string) (*model.User, error)
}

// Resolver resolves and caches email → GitHub username mappings.
//
// Lookups go: memory → storage → backend. Concurrent resolutions of the same
// email share one in-flight backend request.
type Resolver struct {
	users  UserLookup
	store  repository.IdentityRepository
	logger *slog.Logger

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]*model.Identity
	// gen counts Forget calls per email. A load that started before a
	// Forget must not write its result back.
	gen map[string]uint64
}

// NewResolver creates a Resolver. store may be nil, in which case mappings
// live only in memory.
func NewResolver(users UserLookup, store repository.IdentityRepository, logger *slog.Logger) *Resolver {
	return &Resolver{
		users:  users,
		store:  store,
		logger: logger,
		cache:  make(map[string]*model.Identity),
		gen:    make(map[string]uint64),
	}
}

// Resolve returns the GitHub username for the signed-in session.
//
//   - no session or no email: apperror.ErrPrerequisite, and no query is made;
//   - lookup failure or empty username: apperror.ErrIdentityUnavailable.
func (r *Resolver) Resolve(ctx context.Context, sess *model.Session) (string, error) {
	id, err := r.ResolveIdentity(ctx, sess)
	if err != nil {
		return "", err
	}
	return id.GitHubUsername, nil
}

// ResolveIdentity is Resolve returning the full mapping (display name too).
func (r *Resolver) ResolveIdentity(ctx context.Context, sess *model.Session) (*model.Identity, error) {
	if sess == nil || strings.TrimSpace(sess.UserEmail) == "" {
		return nil, apperror.Prerequisite("session email")
	}
	email := sess.UserEmail

	if id, ok := r.cached(email); ok {
		return id, nil
	}

	// The shared lookup must not die with whichever request happened to
	// start it; the HTTP client timeout still bounds it.
	v, err, shared := r.group.Do(email, func() (any, error) {
		return r.load(context.WithoutCancel(ctx), sess)
	})
	if shared {
		r.logger.Debug("identity lookup shared", slog.String("email", email))
	}
	if err != nil {
		return nil, err
	}
	id := v.(*model.Identity)
	copied := *id
	return &copied, nil
}

// Forget drops the mapping for email from memory and storage. Called when
// the owning session logs out.
func (r *Resolver) Forget(ctx context.Context, email string) {
	r.mu.Lock()
	delete(r.cache, email)
	r.gen[email]++
	r.mu.Unlock()
	r.group.Forget(email)

	if r.store != nil {
		if err := r.store.DeleteIdentity(ctx, email); err != nil {
			r.logger.Warn("forgetting identity",
				slog.String("email", email),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (r *Resolver) cached(email string) (*model.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.cache[email]
	if !ok {
		return nil, false
	}
	copied := *id
	return &copied, true
}

// load runs once per email at a time (inside the singleflight group).
func (r *Resolver) load(ctx context.Context, sess *model.Session) (*model.Identity, error) {
	email := sess.UserEmail
	gen := r.generation(email)

	if r.store != nil {
		id, err := r.store.GetIdentity(ctx, email)
		switch {
		case err == nil:
			r.remember(id, gen)
			return id, nil
		case !errors.Is(err, apperror.ErrNotFound):
			r.logger.Warn("reading stored identity",
				slog.String("email", email),
				slog.String("error", err.Error()),
			)
		}
	}

	user, err := r.users.UserByEmail(gateway.WithToken(ctx, sess.AuthToken), email)
	if err != nil {
		r.logger.Warn("identity lookup failed",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		// The cause stays in the log only. A backend "not found" must not
		// read as ErrNotAnalyzed further up.
		return nil, apperror.IdentityUnavailable(email)
	}
	if strings.TrimSpace(user.Username) == "" {
		return nil, apperror.IdentityUnavailable(email)
	}

	id := &model.Identity{Email: email, GitHubUsername: user.Username, Name: user.Name}
	if r.store != nil && r.generation(email) == gen {
		if err := r.store.UpsertIdentity(ctx, id); err != nil {
			r.logger.Warn("storing identity",
				slog.String("email", email),
				slog.String("error", err.Error()),
			)
		}
		// Forget may have run between the check and the write.
		if r.generation(email) != gen {
			if err := r.store.DeleteIdentity(ctx, email); err != nil {
				r.logger.Warn("dropping forgotten identity",
					slog.String("email", email),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	r.remember(id, gen)

	r.logger.Info("identity resolved",
		slog.String("email", email),
		slog.String("username", id.GitHubUsername),
	)
	return id, nil
}

func (r *Resolver) generation(email string) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gen[email]
}

// remember caches id unless the email was forgotten after gen was read.
func (r *Resolver) remember(id *model.Identity, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen[id.Email] != gen {
		return
	}
	r.cache[id.Email] = id
}
