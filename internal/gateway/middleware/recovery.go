// Package middleware is the bridge's handler chain: Recovery wraps
// Logging wraps CORS wraps RateLimit wraps the router.
package middleware

import (
	"net/http"
	"runtime/debug"

	"burlymcp/internal/gateway/handlers"
	"burlymcp/pkg/envelope"
	"burlymcp/pkg/logger"
)

// Recovery catches panics below it. On /mcp the answer is still a 200
// envelope; anywhere else a plain 500. The panic value and stack stay
// in the server-side log only.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error().
					Interface("panic", rec).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered in handler")

				if r.URL.Path == "/mcp" {
					handlers.WriteEnvelope(w, envelope.Fail("Internal server error", "", nil, envelope.Metrics{ExitCode: 1}))
					return
				}
				handlers.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "An unexpected error occurred"})
			}
		}()

		next.ServeHTTP(w, r)
	})
}
