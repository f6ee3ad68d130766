package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/model"
)

func TestUpsertIdentity_InsertThenUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := &model.Identity{Email: "dev@example.com", GitHubUsername: "devuser", Name: "Dev"}
	if err := db.UpsertIdentity(ctx, first); err != nil {
		t.Fatalf("UpsertIdentity() insert error = %v", err)
	}

	renamed := &model.Identity{Email: "dev@example.com", GitHubUsername: "devuser2", Name: "Dev Two"}
	if err := db.UpsertIdentity(ctx, renamed); err != nil {
		t.Fatalf("UpsertIdentity() update error = %v", err)
	}

	got, err := db.GetIdentity(ctx, "dev@example.com")
	if err != nil {
		t.Fatalf("GetIdentity() error = %v", err)
	}
	if got.GitHubUsername != "devuser2" {
		t.Errorf("GitHubUsername = %q, want %q", got.GitHubUsername, "devuser2")
	}
	if got.Name != "Dev Two" {
		t.Errorf("Name = %q, want %q", got.Name, "Dev Two")
	}
}

func TestUpsertIdentity_RejectsEmptyUsername(t *testing.T) {
	db := newTestDB(t)

	err := db.UpsertIdentity(context.Background(), &model.Identity{Email: "dev@example.com"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("UpsertIdentity() error = %v, want ErrValidation", err)
	}
}

func TestDeleteIdentity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.UpsertIdentity(ctx, &model.Identity{Email: "dev@example.com", GitHubUsername: "devuser"}); err != nil {
		t.Fatalf("UpsertIdentity() error = %v", err)
	}
	if err := db.DeleteIdentity(ctx, "dev@example.com"); err != nil {
		t.Fatalf("DeleteIdentity() error = %v", err)
	}

	_, err := db.GetIdentity(ctx, "dev@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetIdentity() after delete error = %v, want ErrNotFound", err)
	}
}
