package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/sakif/sonarhub/internal/apperror"
)

// Messages the backend uses when a resource has not been analyzed yet.
var notAnalyzedMarkers = []string{
	"not found",
	"report parameter is missing",
}

var unauthorizedMarkers = []string{
	"unauthorized",
	"unauthenticated",
}

// Classify maps a raw client error onto the apperror taxonomy:
//
//	GraphQL "not found" / "report parameter is missing" → ErrNotAnalyzed
//	GraphQL "unauthorized" / HTTP 401, 403              → ErrUnauthorized
//	anything else                                       → ErrUpstream
//
// The raw message is always kept as the AppError message. Context
// cancellation stays visible to errors.Is.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperror.Upstream(msg, err)
	}

	// Transport-level failure: classify by HTTP status only. A 404 here means
	// a wrong endpoint, not a missing analysis.
	if strings.HasPrefix(msg, "non-200 OK status code") {
		if strings.Contains(msg, "401") || strings.Contains(msg, "403") {
			return apperror.Unauthorized(msg)
		}
		return apperror.Upstream(msg, err)
	}

	lower := strings.ToLower(msg)
	for _, m := range notAnalyzedMarkers {
		if strings.Contains(lower, m) {
			return apperror.NotAnalyzed(msg)
		}
	}
	for _, m := range unauthorizedMarkers {
		if strings.Contains(lower, m) {
			return apperror.Unauthorized(msg)
		}
	}
	return apperror.Upstream(msg, err)
}
