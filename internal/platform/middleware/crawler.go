package middleware

import (
	"net/http"

	"github.com/mssola/useragent"

	"consentd/internal/platform/metrics"
)

// SuppressCrawlers short-circuits consent endpoints for bots and crawlers.
// Crawlers never see a banner, so granting them the minimal no-op response
// keeps their sessions out of the registry entirely.
func SuppressCrawlers(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ua := useragent.New(r.Header.Get("User-Agent"))
			if ua.Bot() {
				if m != nil {
					m.BotsSuppressed.Inc()
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"initialized":false,"show_banner":false,"show_modal":false,"tier":"primary"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
