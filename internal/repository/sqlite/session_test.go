package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/model"
)

// newTestDB opens a fresh in-memory database and closes it when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(MemoryPath)
	if err != nil {
		t.Fatalf("New(:memory:) error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// =========================================================================
// SESSION TESTS
// =========================================================================

func TestCreateSession_AssignsIDAndTimestamp(t *testing.T) {
	db := newTestDB(t)

	sess := &model.Session{AuthToken: "tok-123", UserEmail: "dev@example.com"}
	if err := db.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if sess.ID == "" {
		t.Error("CreateSession() did not set ID")
	}
	if sess.CreatedAt.IsZero() {
		t.Error("CreateSession() did not set CreatedAt")
	}
}

func TestCreateSession_RequiresTokenAndEmailTogether(t *testing.T) {
	db := newTestDB(t)

	tests := []struct {
		name string
		sess *model.Session
	}{
		{"missing token", &model.Session{UserEmail: "dev@example.com"}},
		{"missing email", &model.Session{AuthToken: "tok"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.CreateSession(context.Background(), tt.sess)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("CreateSession() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestGetSession_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	sess := &model.Session{AuthToken: "tok-abc", UserEmail: "dev@example.com"}
	if err := db.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	got, err := db.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.AuthToken != "tok-abc" || got.UserEmail != "dev@example.com" {
		t.Errorf("GetSession() = %+v, want token tok-abc and email dev@example.com", got)
	}
	if !got.IsAuthenticated() {
		t.Error("restored session should be authenticated")
	}
}

func TestGetSession_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetSession(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetSession() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteSession_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	sess := &model.Session{AuthToken: "tok", UserEmail: "dev@example.com"}
	if err := db.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := db.DeleteSession(ctx, sess.ID); err != nil {
			t.Fatalf("DeleteSession() call %d error = %v", i+1, err)
		}
	}

	if _, err := db.GetSession(ctx, sess.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetSession() after delete error = %v, want ErrNotFound", err)
	}
}

func TestDeleteSessionsBefore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	old := &model.Session{AuthToken: "old", UserEmail: "a@example.com", CreatedAt: time.Now().UTC().Add(-48 * time.Hour)}
	fresh := &model.Session{AuthToken: "fresh", UserEmail: "b@example.com"}
	for _, s := range []*model.Session{old, fresh} {
		if err := db.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
	}

	n, err := db.DeleteSessionsBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteSessionsBefore() error = %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteSessionsBefore() removed %d rows, want 1", n)
	}

	if _, err := db.GetSession(ctx, fresh.ID); err != nil {
		t.Errorf("fresh session should survive pruning, got %v", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)

	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}
}
