package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Jotasiete7/wurm-analytics-journal/internal/i18n"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/model"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/queue"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/repository"
	queue_publisher "github.com/Jotasiete7/wurm-analytics-journal/internal/service"
	"github.com/Jotasiete7/wurm-analytics-journal/internal/utils"
)

// PublicHandler serves the reader-facing endpoints: the article feed,
// single articles, counters, and the anonymous engagement actions.
type PublicHandler struct {
	Articles *repository.ArticleRepo
	Votes    *repository.VoteRepo
	T        *i18n.Translator
}

func NewPublicHandler(articles *repository.ArticleRepo, votes *repository.VoteRepo, t *i18n.Translator) *PublicHandler {
	return &PublicHandler{Articles: articles, Votes: votes, T: t}
}

// feedItem is the single-language projection sent to readers.
type feedItem struct {
	ID            string `json:"id"`
	Slug          string `json:"slug"`
	Category      string `json:"category"`
	CategoryLabel string `json:"category_label"`
	Date          string `json:"date"`
	Title         string `json:"title"`
	Excerpt       string `json:"excerpt"`
	Votes         uint64 `json:"votes"`
	Views         uint64 `json:"views"`
}

type articleDetail struct {
	feedItem
	Content string `json:"content"`
}

// List serves the public feed, newest first, localized for the request.
func (h *PublicHandler) List(c echo.Context) error {
	lang := i18n.FromContext(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	articles, err := h.Articles.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": h.T.T(lang, "error.database")})
	}

	items := make([]feedItem, 0, len(articles))
	for i := range articles {
		items = append(items, h.toFeedItem(&articles[i], lang))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"lang":     lang,
		"tagline":  h.T.T(lang, "tagline"),
		"articles": items,
	})
}

// Get serves one article by slug, localized.  The view counter is not
// bumped here; readers report views through the dedicated endpoint so
// cached article pages still count.
func (h *PublicHandler) Get(c echo.Context) error {
	lang := i18n.FromContext(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Articles.GetBySlug(ctx, c.Param("slug"))
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": h.T.T(lang, "error.not_found")})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": h.T.T(lang, "error.database")})
	}

	loc := a.Localized(lang)
	return c.JSON(http.StatusOK, articleDetail{
		feedItem: h.toFeedItem(&a, lang),
		Content:  loc.Content,
	})
}

// Stats serves the live counters plus the caller's own vote state, so the
// vote button can render pressed without a cookie.
func (h *PublicHandler) Stats(c echo.Context) error {
	lang := i18n.FromContext(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id := c.Param("id")
	views, votes, err := h.Articles.Stats(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": h.T.T(lang, "error.not_found")})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": h.T.T(lang, "error.database")})
	}

	voter := utils.VoterFingerprint(c.RealIP(), c.Request().UserAgent())
	hasVoted, err := h.Votes.HasVoted(ctx, id, voter)
	if err != nil {
		// The pressed state is cosmetic; do not fail the counters over it.
		hasVoted = false
	}

	return c.JSON(http.StatusOK, echo.Map{
		"views":     views,
		"votes":     votes,
		"has_voted": hasVoted,
	})
}

// View registers a page view.  The write is deferred to the engagement
// queue; the endpoint answers 202 as soon as the article is known to
// exist, and a broker outage loses the event rather than the page load.
func (h *PublicHandler) View(c echo.Context) error {
	lang := i18n.FromContext(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id := c.Param("id")
	if _, err := h.Articles.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": h.T.T(lang, "error.not_found")})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": h.T.T(lang, "error.database")})
	}

	event := queue.EngagementEvent{
		ArticleID:  id,
		Kind:       queue.KindView,
		Lang:       lang,
		OccurredAt: time.Now().UTC(),
	}
	go func() {
		pubCtx, pubCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer pubCancel()
		_ = queue_publisher.PublishEngagement(pubCtx, event)
	}()

	return c.NoContent(http.StatusAccepted)
}

// Vote records an anonymous endorsement.  The fingerprint's uniqueness
// constraint turns a repeat vote into a 409.
func (h *PublicHandler) Vote(c echo.Context) error {
	lang := i18n.FromContext(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id := c.Param("id")
	voter := utils.VoterFingerprint(c.RealIP(), c.Request().UserAgent())

	total, err := h.Votes.Vote(ctx, id, voter)
	switch {
	case errors.Is(err, repository.ErrDuplicateVote):
		return c.JSON(http.StatusConflict, echo.Map{"error": h.T.T(lang, "error.already_voted")})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": h.T.T(lang, "error.not_found")})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": h.T.T(lang, "error.database")})
	}

	event := queue.EngagementEvent{
		ArticleID:  id,
		Kind:       queue.KindVote,
		Lang:       lang,
		VoterHash:  voter,
		OccurredAt: time.Now().UTC(),
	}
	go func() {
		pubCtx, pubCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer pubCancel()
		_ = queue_publisher.PublishEngagement(pubCtx, event)
	}()

	return c.JSON(http.StatusOK, echo.Map{
		"votes":   total,
		"message": h.T.T(lang, "vote.accepted"),
	})
}

func (h *PublicHandler) toFeedItem(a *model.Article, lang string) feedItem {
	loc := a.Localized(lang)
	return feedItem{
		ID:            a.ID,
		Slug:          a.Slug,
		Category:      string(a.Category),
		CategoryLabel: h.T.T(lang, "category."+string(a.Category)),
		Date:          a.Date.Format("2006-01-02"),
		Title:         loc.Title,
		Excerpt:       loc.Excerpt,
		Votes:         a.Votes,
		Views:         a.Views,
	}
}
