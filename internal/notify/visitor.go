package notify

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// VisitorCookieName is the cookie carrying the visitor key.
const VisitorCookieName = "vid"

type visitorKey struct{}

// Visitor ensures every request has a visitor key: the "vid" cookie when it
// holds a valid UUID, a fresh UUID (and cookie) otherwise.
func Visitor(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(VisitorCookieName); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     VisitorCookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   365 * 24 * 60 * 60,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(WithVisitor(r.Context(), id)))
		})
	}
}

// WithVisitor returns ctx carrying the visitor key.
func WithVisitor(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, visitorKey{}, id)
}

// VisitorFromContext returns the visitor key, or "" outside Visitor.
func VisitorFromContext(ctx context.Context) string {
	id, _ := ctx.Value(visitorKey{}).(string)
	return id
}
