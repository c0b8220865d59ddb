package middleware

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context

    "github.com/Jotasiete7/wurm-analytics-journal/internal/auth"
)

// RequireRole returns a middleware function that enforces that the
// authenticated caller holds one of the specified roles.  It assumes
// WithSession already stored the resolved role in the context under
// ContextRole.  The role read here is the resolver's live resolution;
// thanks to the downgrade-prevention invariant a transient role-store
// failure cannot strip an editor's access mid-session.
func RequireRole(roles ...auth.Role) echo.MiddlewareFunc {
    allowed := make(map[auth.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            v, _ := c.Get(ContextRole).(string)
            role, ok := auth.ParseRole(v)
            if !ok || !allowed[role] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
