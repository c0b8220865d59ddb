package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Jotasiete7/wurm-analytics-journal/internal/auth"
)

// SessionCookie carries the opaque admin session id issued at login.
const SessionCookie = "journal_admin_session"

// Context keys set for downstream handlers.
const (
	ContextResolver = "auth_resolver"
	ContextUserID   = "user_id"
	ContextRole     = "role"
)

// WithSession looks up the caller's admin session in the registry and
// injects the resolver plus a state snapshot into the request context.
// Requests without a valid session cookie are rejected with 401; role
// enforcement is left to RequireRole so the /session endpoint can serve
// any signed-in state.
func WithSession(registry *auth.Registry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(SessionCookie)
			if err != nil || ck.Value == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing session"})
			}
			resolver, ok := registry.Get(ck.Value)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired session"})
			}

			st := resolver.State()
			if st.Session == nil || st.User == nil {
				// Signed out under us (revoked refresh, explicit sign-out elsewhere).
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session no longer active"})
			}

			c.Set(ContextResolver, resolver)
			c.Set(ContextUserID, st.User.ID)
			c.Set(ContextRole, string(st.Role))
			return next(c)
		}
	}
}

// ResolverFrom extracts the session's resolver injected by WithSession.
func ResolverFrom(c echo.Context) (*auth.Resolver, bool) {
	r, ok := c.Get(ContextResolver).(*auth.Resolver)
	return r, ok
}
