package middleware

import (
	"net/http"

	"github.com/challengeclub/competition-server-go/internal/config"
)

// BodyLimit caps request bodies at config.MaxWebhookBodyBytes. Oversized
// requests are refused up front when the client declares a length, and cut
// off mid-read otherwise.
func BodyLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > config.MaxWebhookBodyBytes {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": "Request body too large",
			})
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, config.MaxWebhookBodyBytes)
		next.ServeHTTP(w, r)
	})
}
