package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogsLoadAndTranslate(t *testing.T) {
	tr, err := New()
	require.NoError(t, err)

	assert.Equal(t, "Analysis", tr.T("en", "category.ANALYSIS"))
	assert.Equal(t, "Análise", tr.T("pt", "category.ANALYSIS"))

	// Unknown language falls back to English.
	assert.Equal(t, tr.T("en", "error.not_found"), tr.T("de", "error.not_found"))

	// Unknown key degrades to the key itself so a missing string is
	// visible instead of blank.
	assert.Equal(t, "no.such.key", tr.T("en", "no.such.key"))
}

func TestBothCatalogsCoverTheSameKeys(t *testing.T) {
	tr, err := New()
	require.NoError(t, err)

	for _, key := range []string{
		"tagline",
		"category.ANALYSIS", "category.STATISTICS", "category.INVESTIGATION", "category.GUIDE",
		"error.invalid_body", "error.not_found", "error.slug_exists", "error.already_voted",
		"error.login_failed", "error.session_required", "error.forbidden", "error.database",
		"vote.accepted",
	} {
		en := tr.T("en", key)
		pt := tr.T("pt", key)
		assert.NotEqual(t, key, en, "missing english string for %s", key)
		assert.NotEqual(t, key, pt, "missing portuguese string for %s", key)
	}
}

func resolveLang(t *testing.T, build func(req *http.Request)) string {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/articles", nil)
	build(req)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got string
	handler := Middleware()(func(c echo.Context) error {
		got = FromContext(c)
		return nil
	})
	require.NoError(t, handler(c))
	return got
}

func TestLanguagePrecedence(t *testing.T) {
	// Default.
	assert.Equal(t, "en", resolveLang(t, func(*http.Request) {}))

	// Accept-Language.
	assert.Equal(t, "pt", resolveLang(t, func(req *http.Request) {
		req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")
	}))

	// Cookie beats Accept-Language.
	assert.Equal(t, "en", resolveLang(t, func(req *http.Request) {
		req.Header.Set("Accept-Language", "pt")
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "en"})
	}))

	// Query beats everything.
	assert.Equal(t, "pt", resolveLang(t, func(req *http.Request) {
		req.URL.RawQuery = "lang=pt"
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "en"})
	}))

	// Unsupported query value is ignored.
	assert.Equal(t, "en", resolveLang(t, func(req *http.Request) {
		req.URL.RawQuery = "lang=fr"
	}))
}

func TestQueryChoicePersistsToCookie(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/articles?lang=pt", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Middleware()(func(c echo.Context) error { return nil })
	require.NoError(t, handler(c))

	var found bool
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == CookieName {
			found = true
			assert.Equal(t, "pt", ck.Value)
		}
	}
	assert.True(t, found, "explicit choice must be persisted")
}
