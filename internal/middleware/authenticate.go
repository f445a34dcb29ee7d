package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"NetSentryAPI/internal/auth"
)

// Authenticate validates the REST bearer credential with the same gate
// used for realtime handshakes and stores the identity on the request
// context for handlers.
func Authenticate(gate *auth.Gate, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := gate.Authenticate(r)
			if err != nil {
				log.Debug("request rejected by gate",
					zap.String("path", r.URL.Path), zap.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error": "unauthorized"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}
