package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/model"
	"github.com/sakif/sonarhub/internal/repository"
)

// compile-time check that *DB implements repository.IdentityRepository
var _ repository.IdentityRepository = (*DB)(nil)

// UpsertIdentity inserts or refreshes the mapping for id.Email.
//
// ON CONFLICT DO UPDATE keeps the row (and its primary key) in place, unlike
// INSERT OR REPLACE which deletes and re-inserts.
func (db *DB) UpsertIdentity(ctx context.Context, id *model.Identity) error {
	if id.Email == "" || id.GitHubUsername == "" {
		return apperror.ValidationFailed("identity", "email and GitHub username are required")
	}
	id.UpdatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO identities (email, github_username, name, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
			github_username = excluded.github_username,
			name            = excluded.name,
			updated_at      = excluded.updated_at`,
		id.Email,
		id.GitHubUsername,
		id.Name,
		id.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting identity %s: %w", id.Email, err)
	}
	return nil
}

// GetIdentity loads the mapping for email. A missing row is apperror.ErrNotFound.
func (db *DB) GetIdentity(ctx context.Context, email string) (*model.Identity, error) {
	var id model.Identity
	err := db.conn.QueryRowContext(ctx,
		`SELECT email, github_username, name, updated_at FROM identities WHERE email = ?`, email,
	).Scan(&id.Email, &id.GitHubUsername, &id.Name, &id.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("identity", email)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting identity %s: %w", email, err)
	}
	return &id, nil
}

// DeleteIdentity forgets the mapping for email. Idempotent.
func (db *DB) DeleteIdentity(ctx context.Context, email string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM identities WHERE email = ?`, email); err != nil {
		return fmt.Errorf("sqlite: deleting identity %s: %w", email, err)
	}
	return nil
}
