// Package repository declares the storage interfaces the rest of the app
// depends on. Concrete implementations live in sub-packages (sqlite).
package repository

import (
	"context"
	"time"

	"github.com/sakif/sonarhub/internal/model"
)

// SessionRepository persists sign-in sessions. The auth token and the email
// of a session are always written and removed together.
type SessionRepository interface {
	CreateSession(ctx context.Context, sess *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	// DeleteSessionsBefore removes sessions created before cutoff and
	// returns how many rows were removed.
	DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// IdentityRepository persists resolved email → GitHub username mappings.
type IdentityRepository interface {
	UpsertIdentity(ctx context.Context, id *model.Identity) error
	GetIdentity(ctx context.Context, email string) (*model.Identity, error)
	DeleteIdentity(ctx context.Context, email string) error
}
