package rest

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/catalogsync/internal/session"
	"github.com/abgdnv/catalogsync/pkg/web"
)

// RequireSession answers 401 unless the gate reports a current session.
// The session's user id is attached to the request context for logging.
func RequireSession(gate session.Gate, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := gate.CurrentSession(r.Context())
			if !ok {
				logger.WarnContext(r.Context(), "Request without session rejected", "path", r.URL.Path)
				web.RespondError(w, logger, http.StatusUnauthorized, "Sign in required")
				return
			}
			next.ServeHTTP(w, r.WithContext(web.WithUserID(r.Context(), s.UserID)))
		})
	}
}
