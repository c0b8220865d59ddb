package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Jotasiete7/wurm-analytics-journal/internal/auth"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/config"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/i18n"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/identity"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/middleware"
)

// AuthHandler bundles dependencies for the admin auth endpoints.  Each
// successful login creates one browsing context: a session-scoped identity
// transport, an auth resolver consuming its events, and a registry entry
// tied to the session cookie.
type AuthHandler struct {
	Cfg      config.Config
	Client   *identity.Client
	Roles    auth.RoleStore
	Cache    auth.RoleCache
	Sessions *auth.Registry
	T        *i18n.Translator
}

func NewAuthHandler(cfg config.Config, client *identity.Client, roles auth.RoleStore,
	cache auth.RoleCache, sessions *auth.Registry, t *i18n.Translator) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Client: client, Roles: roles, Cache: cache, Sessions: sessions, T: t}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResp struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Loading bool   `json:"loading"`
}

// Login runs the two-stage sign-in state machine:
//
//	Idle -> Attempting(primary) -> Success
//	                            -> Attempting(fallback) on timeout/failure -> Success | Fatal
//
// The primary path is the resolver's transport sign-in, raced against the
// configured login budget.  The primary client path has been observed to
// stall indefinitely under some network conditions, so on timeout or error
// the handler performs the low-level token exchange itself and hands the
// resulting pair to the resolver.  Only a failed fallback is fatal to the
// attempt; the user may resubmit.
func (h *AuthHandler) Login(c echo.Context) error {
	lang := i18n.FromContext(c)

	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": h.T.T(lang, "error.invalid_body")})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	transport := identity.NewTransport(h.Client)
	resolver := auth.NewResolver(transport, h.Roles, h.Cache,
		auth.WithResolveTimeout(h.Cfg.RoleResolveTimeout))

	runCtx, cancelRun := context.WithCancel(context.Background())
	go resolver.Run(runCtx)
	teardown := func() {
		cancelRun()
		transport.Close()
	}

	ctx := c.Request().Context()

	// Attempting(primary): race the transport sign-in against the budget.
	// On timeout the in-flight attempt is abandoned, not cancelled; if it
	// eventually succeeds its event is merely redundant.
	primaryErr := make(chan error, 1)
	go func() { primaryErr <- resolver.SignIn(ctx, req.Email, req.Password) }()

	timer := time.NewTimer(h.Cfg.LoginTimeout)
	var needFallback bool
	select {
	case err := <-primaryErr:
		needFallback = err != nil
	case <-timer.C:
		needFallback = true
	}
	timer.Stop()

	if needFallback {
		// Attempting(fallback): direct credential exchange against the
		// provider's token endpoint, then adopt the pair.
		fbCtx, cancelFb := context.WithTimeout(ctx, h.Cfg.LoginTimeout)
		sess, err := h.Client.PasswordGrant(fbCtx, req.Email, req.Password)
		cancelFb()
		if err != nil {
			teardown()
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"error":  h.T.T(lang, "error.login_failed"),
				"detail": err.Error(),
			})
		}
		if err := resolver.SignInWithToken(ctx, sess.AccessToken, sess.RefreshToken); err != nil {
			teardown()
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"error":  h.T.T(lang, "error.login_failed"),
				"detail": err.Error(),
			})
		}
	}

	// Give the role resolution a chance to settle so the response carries
	// the resolved role; the budget covers the resolver's own race.
	waitCtx, cancelWait := context.WithTimeout(ctx, h.Cfg.RoleResolveTimeout+time.Second)
	_ = resolver.WaitReady(waitCtx)
	cancelWait()

	id, err := h.Sessions.Put(resolver, teardown)
	if err != nil {
		teardown()
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session allocation failed"})
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.Cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, snapshotResp(resolver))
}

// Logout tears down the admin session: provider sign-out, registry removal
// and cookie expiry.  Always succeeds from the client's point of view.
func (h *AuthHandler) Logout(c echo.Context) error {
	if ck, err := c.Cookie(middleware.SessionCookie); err == nil && ck.Value != "" {
		if resolver, ok := h.Sessions.Get(ck.Value); ok {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			resolver.SignOut(ctx)
			cancel()
			h.Sessions.Remove(ck.Value)
		}
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.NoContent(http.StatusNoContent)
}

// Session returns the caller's resolved auth state (protected route; the
// session middleware injects the resolver).
func (h *AuthHandler) Session(c echo.Context) error {
	resolver, ok := middleware.ResolverFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing session"})
	}
	return c.JSON(http.StatusOK, snapshotResp(resolver))
}

func snapshotResp(r *auth.Resolver) sessionResp {
	st := r.State()
	resp := sessionResp{Role: string(st.Role), Loading: st.Loading}
	if st.User != nil {
		resp.UserID = st.User.ID
		resp.Email = st.User.Email
	}
	return resp
}
