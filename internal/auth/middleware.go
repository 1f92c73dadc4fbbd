package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ayiooo/shortlink/internal/httpx"
)

// Authenticate attaches the caller's identity to the request context when a
// valid session token is presented, either in the session cookie or as a
// bearer token. Requests without a valid token continue anonymously.
func Authenticate(sessions *Sessions, logger *slog.Logger) httpx.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r, sessions.CookieName())
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := sessions.Verify(token)
			if err != nil {
				logger.DebugContext(r.Context(), "ignoring invalid session token",
					"request_id", httpx.GetRequestID(r.Context()),
					"error", err.Error(),
				)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireUser rejects requests that carry no identity with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFrom(r.Context()); !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "sign in required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
