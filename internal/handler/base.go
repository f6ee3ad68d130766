package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/auth"
	"github.com/sakif/sonarhub/internal/model"
	"github.com/sakif/sonarhub/internal/notify"
	"github.com/sakif/sonarhub/internal/service"
)

// Base is what every dashboard handler shares: rendering, toasts, and the
// identity gate.
type Base struct {
	Render *Renderer
	Toasts *notify.Center
	IDs    service.Identifier
	Logger *slog.Logger
}

// scope passes the identity gate for the signed-in session. Its error is a
// view-state error (prerequisite, identity unavailable), not a failure to
// log.
func (b *Base) scope(r *http.Request) (service.Scope, error) {
	return service.Identify(r.Context(), b.IDs, auth.SessionFromContext(r.Context()))
}

// visitor is the toast key of the request.
func visitor(r *http.Request) string {
	return notify.VisitorFromContext(r.Context())
}

// finish reports the outcome of a mutation and redirects back to the page
// that shows its data, so that page queries the backend again exactly once.
// A busy trigger is reported as info, not as an error.
func (b *Base) finish(w http.ResponseWriter, r *http.Request, msg string, err error, back string) {
	switch {
	case err == nil:
		b.Toasts.Success(visitor(r), msg, "")
	case errors.Is(err, apperror.ErrConflict):
		b.Toasts.Info(visitor(r), service.StatusBusy)
	default:
		if !isExpected(err) {
			b.Logger.Error("mutation failed",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
		}
		b.Toasts.Error(visitor(r), apperror.Message(err))
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// isExpected reports whether err is a domain outcome rather than a fault.
func isExpected(err error) bool {
	return errors.Is(err, apperror.ErrValidation) ||
		errors.Is(err, apperror.ErrNotAnalyzed) ||
		errors.Is(err, apperror.ErrPrerequisite) ||
		errors.Is(err, apperror.ErrIdentityUnavailable)
}

// logFetch logs a failed display query unless it is an expected state.
func (b *Base) logFetch(r *http.Request, err error) {
	if err != nil && !isExpected(err) {
		b.Logger.Warn("fetch failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

// prID parses the {prId} route parameter.
func prID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "prId"))
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("prId", "invalid pull request id")
	}
	return id, nil
}

func sessionEmail(s *model.Session) string {
	if s == nil {
		return ""
	}
	return s.UserEmail
}
