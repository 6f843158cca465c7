package api

import (
	"context"
	"net/http"
	"time"

	"github.com/et-mohedano/demo-delegados/pkg/session"
)

type contextKey string

const bindingContextKey contextKey = "binding"

// requestLogger logs incoming HTTP requests.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		s.log.WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("remote", r.RemoteAddr).
			WithField("duration", time.Since(start)).
			Debug("Request handled")
	})
}

// requireAuth validates the session cookie against the active session and
// injects the binding into the request context. A cookie from a session that
// was since replaced is rejected like any other stale token.
func (s *server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized,
				errorResponse{"authentication required"})

			return
		}

		binding, ok := s.deps.Sessions.ActiveByToken(cookie.Value)
		if !ok {
			writeJSON(w, http.StatusUnauthorized,
				errorResponse{"invalid or replaced session"})

			return
		}

		ctx := context.WithValue(r.Context(), bindingContextKey, binding)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bindingFromContext returns the session binding injected by requireAuth.
func bindingFromContext(ctx context.Context) (session.Binding, bool) {
	b, ok := ctx.Value(bindingContextKey).(session.Binding)

	return b, ok
}
