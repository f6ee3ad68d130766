// Package apperror defines the error taxonomy shared by every layer.
//
// Services and clients wrap one of the sentinels below (directly or through an
// *AppError); handlers decide how to render it with errors.Is / errors.As.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// ErrUnauthorized means the backend rejected the session token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotAnalyzed is the "resource not yet analyzed" condition. Views offer
	// "Analyze Now" for it instead of a generic retry.
	ErrNotAnalyzed = errors.New("not analyzed")

	// ErrIdentityUnavailable means the session email did not resolve to a
	// GitHub username.
	ErrIdentityUnavailable = errors.New("GitHub username not available")

	// ErrPrerequisite means a gating value (session email, username) is not
	// known yet. It is a neutral waiting state, not a failure.
	ErrPrerequisite = errors.New("prerequisite not ready")

	// ErrUpstream covers transport failures and GraphQL error payloads.
	ErrUpstream = errors.New("upstream error")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized wraps ErrUnauthorized with the backend's message.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// NotAnalyzed reports that the backend has no analysis for the resource yet.
// The backend's raw message is kept so views can show it next to the
// "Analyze Now" action.
func NotAnalyzed(message string) *AppError {
	return &AppError{
		Err:     ErrNotAnalyzed,
		Message: message,
	}
}

// IdentityUnavailable reports that email could not be mapped to a username.
func IdentityUnavailable(email string) *AppError {
	return &AppError{
		Err:     ErrIdentityUnavailable,
		Message: fmt.Sprintf("GitHub username not available for %s", email),
	}
}

// Prerequisite reports which gating value is still missing.
func Prerequisite(what string) *AppError {
	return &AppError{
		Err:     ErrPrerequisite,
		Message: fmt.Sprintf("waiting for %s", what),
	}
}

// Upstream wraps a transport or GraphQL failure. Message is the raw upstream
// message; views display it verbatim next to a Retry action.
func Upstream(message string, err error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrUpstream, err),
		Message: message,
	}
}

// Message returns the human-readable message of err: the AppError message if
// one is in the chain, otherwise err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
