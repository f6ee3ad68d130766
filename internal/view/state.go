// Package view turns the result of a data fetch into the one state a screen
// renders.
//
// Every data-bound screen goes through State, so the rules are the same
// everywhere: a missing prerequisite is a neutral wait, "not analyzed yet"
// offers Analyze Now, any other failure shows the raw message with Retry,
// zero rows is a positive empty state, and only real data is Populated.
package view

import (
	"errors"

	"github.com/sakif/sonarhub/internal/apperror"
)

// Phase is what a data-bound screen is showing.
type Phase int

const (
	// Waiting means a prerequisite (session email, GitHub username) is not
	// known yet. No query was issued.
	Waiting Phase = iota
	// Loading means a query is in flight. Live feeds send it as their first
	// frame; page loads block until the data is there.
	Loading
	// Error means the query failed.
	Error
	// Empty means the query succeeded with nothing to show.
	Empty
	// Populated means there is data to render.
	Populated
)

func (p Phase) String() string {
	switch p {
	case Waiting:
		return "waiting"
	case Loading:
		return "loading"
	case Error:
		return "error"
	case Empty:
		return "empty"
	case Populated:
		return "populated"
	default:
		return "unknown"
	}
}

// Actions a screen offers next to an error.
const (
	ActionAnalyze = "analyze"
	ActionRetry   = "retry"
)

// State is the render state of one data-bound region.
type State[T any] struct {
	Phase Phase
	Data  T
	// Err is the raw error message, shown verbatim.
	Err string
	// NotAnalyzed marks the "not analyzed yet" error, which offers
	// "Analyze Now" instead of "Retry".
	NotAnalyzed bool
	// Status is a transient mutation status ("Analysis in progress"). It is
	// kept apart from Err so a busy trigger never looks like a failure.
	Status string
}

// From builds the state for a single value. isEmpty decides whether a
// successful value has anything to render; nil means "never empty".
func From[T any](data T, err error, isEmpty func(T) bool) State[T] {
	if err != nil {
		return Failed[T](err)
	}
	if isEmpty != nil && isEmpty(data) {
		return State[T]{Phase: Empty, Data: data}
	}
	return State[T]{Phase: Populated, Data: data}
}

// FromSlice builds the state for a list. Zero rows is Empty.
func FromSlice[E any](rows []E, err error) State[[]E] {
	return From(rows, err, func(r []E) bool { return len(r) == 0 })
}

// Failed builds the state for err. A missing prerequisite is Waiting, not
// Error.
func Failed[T any](err error) State[T] {
	if errors.Is(err, apperror.ErrPrerequisite) {
		return State[T]{Phase: Waiting}
	}
	return State[T]{
		Phase:       Error,
		Err:         apperror.Message(err),
		NotAnalyzed: errors.Is(err, apperror.ErrNotAnalyzed) && !errors.Is(err, apperror.ErrIdentityUnavailable),
	}
}

// Pending is the state of a region whose data is still being fetched.
func Pending[T any]() State[T] {
	return State[T]{Phase: Loading}
}

// WithStatus returns s carrying a transient mutation status.
func (s State[T]) WithStatus(status string) State[T] {
	s.Status = status
	return s
}

// Action is the button an error offers: ActionAnalyze, ActionRetry, or ""
// when the state is not an error.
func (s State[T]) Action() string {
	switch {
	case s.Phase != Error:
		return ""
	case s.NotAnalyzed:
		return ActionAnalyze
	default:
		return ActionRetry
	}
}

func (s State[T]) IsWaiting() bool   { return s.Phase == Waiting }
func (s State[T]) IsLoading() bool   { return s.Phase == Loading }
func (s State[T]) IsError() bool     { return s.Phase == Error }
func (s State[T]) IsEmpty() bool     { return s.Phase == Empty }
func (s State[T]) IsPopulated() bool { return s.Phase == Populated }
