package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/Jotasiete7/wurm-analytics-journal/internal/auth"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/handler"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/middleware"
)

// RegisterRoutes registers routes that carry no domain logic.  Currently it
// exposes only a health check used by load balancers and monitors.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the reader-facing endpoints.  Feed and article
// reads go through the response cache; the engagement writes (view, vote)
// bypass it and the vote endpoint is rate limited per caller IP.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler,
	cache echo.MiddlewareFunc, limit echo.MiddlewareFunc) {
	// Cached, localized reads.
	e.GET("/v1/articles", p.List, cache)
	e.GET("/v1/articles/:slug", p.Get, cache)

	// Live counters; cheap enough to always hit the database.
	e.GET("/v1/articles/:id/stats", p.Stats)

	// Anonymous engagement.  Views are fire-and-forget; votes are throttled
	// because each one costs a transaction.
	e.POST("/v1/articles/:id/view", p.View)
	e.POST("/v1/articles/:id/vote", p.Vote, limit)
}

// RegisterAdmin registers the editorial API.  Login and logout manage the
// session cookie themselves; everything else sits behind the session
// middleware, and the content-changing routes additionally require a
// privileged role.  /session deliberately allows any signed-in state so the
// admin UI can render a "no editor access" page instead of a blank 403.
func RegisterAdmin(e *echo.Echo, a *handler.AuthHandler, adm *handler.AdminHandler,
	registry *auth.Registry, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/admin")
	g.POST("/login", a.Login, limit)
	// Logout stays outside the session middleware so a stale cookie can
	// still be cleared.
	g.POST("/logout", a.Logout)

	s := g.Group("", middleware.WithSession(registry))
	s.GET("/session", a.Session)

	edit := s.Group("", middleware.RequireRole(auth.RoleEditor, auth.RoleAdmin))
	edit.GET("/articles", adm.List)
	edit.POST("/articles", adm.Create)
	edit.PUT("/articles/:id", adm.Update)
	edit.DELETE("/articles/:id", adm.Delete)
	edit.GET("/analytics", adm.Analytics)
}
