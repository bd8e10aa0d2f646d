package middleware

import (
	"context"
	"net/http"
	"time"

	"consentd/internal/visitor"
)

type visitorIDKey struct{}

// WithVisitorID returns a context carrying the visitor ID, as Identify
// would set it.
func WithVisitorID(ctx context.Context, visitorID string) context.Context {
	return context.WithValue(ctx, visitorIDKey{}, visitorID)
}

// GetVisitorID retrieves the visitor ID placed in context by Identify.
func GetVisitorID(ctx context.Context) string {
	if id, ok := ctx.Value(visitorIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Identify resolves the visitor identity cookie, minting a fresh one when
// the cookie is absent, expired, or tampered with. Every request past this
// middleware carries a visitor ID in context.
func Identify(tokens *visitor.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			visitorID := ""
			if cookie, err := r.Cookie(visitor.CookieName); err == nil {
				if id, err := tokens.Validate(cookie.Value); err == nil {
					visitorID = id
				}
			}

			if visitorID == "" {
				id, token, err := tokens.Mint()
				if err != nil {
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				visitorID = id
				http.SetCookie(w, &http.Cookie{
					Name:     visitor.CookieName,
					Value:    token,
					Path:     "/",
					Expires:  time.Now().Add(visitor.DefaultTokenTTL),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(WithVisitorID(r.Context(), visitorID)))
		})
	}
}
