package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Jotasiete7/wurm-analytics-journal/internal/i18n"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/middleware"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/model"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/repository"
)

// AdminHandler serves the editorial endpoints behind the session and role
// middleware.  Unlike the public feed it always returns both language
// versions, since that is what the editor form edits.
type AdminHandler struct {
	Articles *repository.ArticleRepo
	T        *i18n.Translator
}

func NewAdminHandler(articles *repository.ArticleRepo, t *i18n.Translator) *AdminHandler {
	return &AdminHandler{Articles: articles, T: t}
}

// articleReq is the editor form payload.  Date arrives as YYYY-MM-DD.
type articleReq struct {
	Slug      string `json:"slug"`
	Category  string `json:"category"`
	Date      string `json:"date"`
	TitleEN   string `json:"title_en"`
	TitlePT   string `json:"title_pt"`
	ExcerptEN string `json:"excerpt_en"`
	ExcerptPT string `json:"excerpt_pt"`
	ContentEN string `json:"content_en"`
	ContentPT string `json:"content_pt"`
}

// adminArticle is the full bilingual row returned to the dashboard.
type adminArticle struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Category  string `json:"category"`
	Date      string `json:"date"`
	Votes     uint64 `json:"votes"`
	Views     uint64 `json:"views"`
	AuthorID  string `json:"author_id,omitempty"`
	TitleEN   string `json:"title_en"`
	TitlePT   string `json:"title_pt"`
	ExcerptEN string `json:"excerpt_en"`
	ExcerptPT string `json:"excerpt_pt"`
	ContentEN string `json:"content_en"`
	ContentPT string `json:"content_pt"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toAdminArticle(a *model.Article) adminArticle {
	return adminArticle{
		ID:        a.ID,
		Slug:      a.Slug,
		Category:  string(a.Category),
		Date:      a.Date.Format("2006-01-02"),
		Votes:     a.Votes,
		Views:     a.Views,
		AuthorID:  a.AuthorID,
		TitleEN:   a.TitleEN,
		TitlePT:   a.TitlePT,
		ExcerptEN: a.ExcerptEN,
		ExcerptPT: a.ExcerptPT,
		ContentEN: a.ContentEN,
		ContentPT: a.ContentPT,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// validate normalizes and checks the form, returning the field errors the
// editor UI displays inline.
func (req *articleReq) validate() (model.Article, map[string]string) {
	problems := map[string]string{}

	req.Slug = strings.ToLower(strings.TrimSpace(req.Slug))
	if req.Slug == "" {
		problems["slug"] = "required"
	} else if strings.ContainsAny(req.Slug, " /?#%") {
		problems["slug"] = "must be url safe"
	}
	if !model.ValidCategory(req.Category) {
		problems["category"] = "unknown category"
	}
	var date time.Time
	if req.Date == "" {
		problems["date"] = "required"
	} else {
		var err error
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			problems["date"] = "expected YYYY-MM-DD"
		}
	}
	if strings.TrimSpace(req.TitleEN) == "" {
		problems["title_en"] = "required"
	}
	if strings.TrimSpace(req.TitlePT) == "" {
		problems["title_pt"] = "required"
	}
	if len(problems) > 0 {
		return model.Article{}, problems
	}

	return model.Article{
		Slug:      req.Slug,
		Category:  model.Category(req.Category),
		Date:      date,
		TitleEN:   strings.TrimSpace(req.TitleEN),
		TitlePT:   strings.TrimSpace(req.TitlePT),
		ExcerptEN: req.ExcerptEN,
		ExcerptPT: req.ExcerptPT,
		ContentEN: req.ContentEN,
		ContentPT: req.ContentPT,
	}, nil
}

// List returns every article with both language versions for the dashboard.
func (h *AdminHandler) List(c echo.Context) error {
	lang := i18n.FromContext(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	articles, err := h.Articles.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": h.T.T(lang, "error.database")})
	}
	out := make([]adminArticle, 0, len(articles))
	for i := range articles {
		out = append(out, toAdminArticle(&articles[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"articles": out})
}

// Create publishes a new article authored by the signed-in editor.
func (h *AdminHandler) Create(c echo.Context) error {
	lang := i18n.FromContext(c)

	var req articleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": h.T.T(lang, "error.invalid_body")})
	}
	a, problems := req.validate()
	if problems != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": h.T.T(lang, "error.invalid_body"), "fields": problems})
	}
	a.AuthorID, _ = c.Get(middleware.ContextUserID).(string)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Articles.Create(ctx, &a); err != nil {
		if errors.Is(err, repository.ErrSlugExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": h.T.T(lang, "error.slug_exists")})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": h.T.T(lang, "error.database")})
	}

	created, err := h.Articles.GetByID(ctx, a.ID)
	if err != nil {
		// Row was written; answer with what we have.
		created = a
	}
	return c.JSON(http.StatusCreated, toAdminArticle(&created))
}

// Update rewrites an article's editable fields.
func (h *AdminHandler) Update(c echo.Context) error {
	lang := i18n.FromContext(c)

	var req articleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": h.T.T(lang, "error.invalid_body")})
	}
	a, problems := req.validate()
	if problems != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": h.T.T(lang, "error.invalid_body"), "fields": problems})
	}
	a.ID = c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Articles.Update(ctx, &a); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": h.T.T(lang, "error.not_found")})
		case errors.Is(err, repository.ErrSlugExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": h.T.T(lang, "error.slug_exists")})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": h.T.T(lang, "error.database")})
	}

	updated, err := h.Articles.GetByID(ctx, a.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": h.T.T(lang, "error.database")})
	}
	return c.JSON(http.StatusOK, toAdminArticle(&updated))
}

// Delete removes an article and its votes.
func (h *AdminHandler) Delete(c echo.Context) error {
	lang := i18n.FromContext(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Articles.Delete(ctx, c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": h.T.T(lang, "error.not_found")})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": h.T.T(lang, "error.database")})
	}
	return c.NoContent(http.StatusNoContent)
}
