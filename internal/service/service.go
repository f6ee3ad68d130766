// Package service contains the business logic between the HTTP handlers and
// the backend clients.
//
//	Handler (HTTP)  → Service (rules, orchestration) → gateway / github (GraphQL)
//
// Services accept primitives and a Scope, never *http.Request, and return
// apperror values the handlers translate. Each service depends on the narrow
// slice of the backend it calls, so tests pass small hand-written fakes.
package service

import (
	"context"
	"fmt"

	"github.com/sakif/sonarhub/internal/gateway"
	"github.com/sakif/sonarhub/internal/model"
)

// Identifier resolves the GitHub username of a session.
// *identity.Resolver implements it.
type Identifier interface {
	Resolve(ctx context.Context, sess *model.Session) (string, error)
}

// Scope is who a repository-scoped call is made for: the session's bearer
// token and its resolved GitHub username. The only way to build one with a
// username is Identify, so no repository-scoped query can run before the
// identity gate has passed.
type Scope struct {
	token    string
	username string
}

// Identify resolves sess into a Scope. It fails with the resolver's error
// (apperror.ErrPrerequisite, apperror.ErrIdentityUnavailable) untouched.
func Identify(ctx context.Context, ids Identifier, sess *model.Session) (Scope, error) {
	username, err := ids.Resolve(ctx, sess)
	if err != nil {
		return Scope{}, err
	}
	return Scope{token: sess.AuthToken, username: username}, nil
}

// NewScope builds a Scope from known values. Tests and callers that already
// hold a resolved username use it.
func NewScope(token, username string) Scope {
	return Scope{token: token, username: username}
}

// Username is the resolved GitHub username.
func (s Scope) Username() string { return s.username }

// Context returns ctx authenticated as the session.
func (s Scope) Context(ctx context.Context) context.Context {
	return gateway.WithToken(ctx, s.token)
}

// key builds a Tracker key under the scope's username.
func (s Scope) key(action string, parts ...string) string {
	k := fmt.Sprintf("%s:%s", action, s.username)
	for _, p := range parts {
		k += "/" + p
	}
	return k
}
