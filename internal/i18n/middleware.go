package i18n

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CookieName stores the reader's persisted language preference.
const CookieName = "journal_lang"

// contextKey is where the resolved language lives on the echo context.
const contextKey = "lang"

// Middleware resolves the request language with the precedence
// query parameter > cookie > Accept-Language > default, and persists an
// explicit query choice back to the cookie so the preference survives
// navigation (the language switcher just links to ?lang=).
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			lang := ""

			if q := c.QueryParam("lang"); Supported(q) {
				lang = q
				c.SetCookie(&http.Cookie{
					Name:     CookieName,
					Value:    q,
					Path:     "/",
					MaxAge:   365 * 24 * 3600,
					SameSite: http.SameSiteLaxMode,
				})
			}
			if lang == "" {
				if ck, err := c.Cookie(CookieName); err == nil && Supported(ck.Value) {
					lang = ck.Value
				}
			}
			if lang == "" {
				lang = fromAcceptLanguage(c.Request().Header.Get("Accept-Language"))
			}
			if lang == "" {
				lang = DefaultLang
			}

			c.Set(contextKey, lang)
			return next(c)
		}
	}
}

// FromContext returns the language resolved by Middleware, or the default
// when the middleware did not run (e.g. in isolated handler tests).
func FromContext(c echo.Context) string {
	if v, ok := c.Get(contextKey).(string); ok && Supported(v) {
		return v
	}
	return DefaultLang
}

// fromAcceptLanguage picks the first supported primary subtag.  Quality
// values are ignored: the header arrives ordered by preference in practice
// and only two languages compete.
func fromAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		primary := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if Supported(primary) {
			return primary
		}
	}
	return ""
}
