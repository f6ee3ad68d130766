package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sakif/sonarhub/internal/apperror"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"not found", errors.New("Repository not found"), apperror.ErrNotAnalyzed},
		{"report missing", errors.New("Report parameter is missing"), apperror.ErrNotAnalyzed},
		{"unauthenticated", errors.New("user is unauthenticated"), apperror.ErrUnauthorized},
		{"status 403", errors.New(`non-200 OK status code: 403 Forbidden body: ""`), apperror.ErrUnauthorized},
		{"status 404", errors.New(`non-200 OK status code: 404 Not Found body: ""`), apperror.ErrUpstream},
		{"dial failure", errors.New("dial tcp 127.0.0.1:4000: connect: connection refused"), apperror.ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("Classify(nil) = %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassify_KeepsContextCancellation(t *testing.T) {
	err := Classify(fmt.Errorf("Post: %w", context.Canceled))

	if !errors.Is(err, context.Canceled) {
		t.Error("classified error should still match context.Canceled")
	}
	if !errors.Is(err, apperror.ErrUpstream) {
		t.Error("classified error should match ErrUpstream")
	}
}

func TestTokenFromContext(t *testing.T) {
	if got := TokenFromContext(context.Background()); got != "" {
		t.Errorf("TokenFromContext(empty) = %q, want empty", got)
	}
	if got := TokenFromContext(WithToken(context.Background(), "tok")); got != "tok" {
		t.Errorf("TokenFromContext() = %q, want tok", got)
	}
}
