package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/model"
	"github.com/sakif/sonarhub/internal/repository"
)

// compile-time check that *DB implements repository.SessionRepository
var _ repository.SessionRepository = (*DB)(nil)

// CreateSession inserts a new session. ID and CreatedAt are assigned here
// when the caller left them empty.
//
// WHY xid?
// xids are 20 characters, URL-safe, and sortable by creation time, which
// keeps the created_at index and the primary key in the same order.
func (db *DB) CreateSession(ctx context.Context, sess *model.Session) error {
	if sess.AuthToken == "" || sess.UserEmail == "" {
		return apperror.ValidationFailed("session", "auth token and email are required together")
	}
	if sess.ID == "" {
		sess.ID = xid.New().String()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, auth_token, user_email, created_at)
		 VALUES (?, ?, ?, ?)`,
		sess.ID,
		sess.AuthToken,
		sess.UserEmail,
		sess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting session for %s: %w", sess.UserEmail, err)
	}
	return nil
}

// GetSession loads one session. A missing row is apperror.ErrNotFound.
func (db *DB) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var sess model.Session
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, auth_token, user_email, created_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.AuthToken, &sess.UserEmail, &sess.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("session", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting session %s: %w", id, err)
	}
	return &sess, nil
}

// DeleteSession removes a session. Deleting a session that does not exist
// is not an error; logout must be idempotent.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting session %s: %w", id, err)
	}
	return nil
}

// DeleteSessionsBefore removes every session created before cutoff.
func (db *DB) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("sqlite: pruning sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: pruning sessions: %w", err)
	}
	return n, nil
}
