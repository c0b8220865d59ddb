package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Jotasiete7/wurm-analytics-journal/internal/i18n"
)

type topArticle struct {
	ID      string `json:"id"`
	Slug    string `json:"slug"`
	TitleEN string `json:"title_en"`
	TitlePT string `json:"title_pt"`
	Views   uint64 `json:"views"`
	Votes   uint64 `json:"votes"`
}

// Analytics serves the dashboard overview: site-wide totals plus the most
// viewed articles.  Counters lag reality by whatever sits unprocessed in
// the engagement queue, which the dashboard tolerates.
func (h *AdminHandler) Analytics(c echo.Context) error {
	lang := i18n.FromContext(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	totals, err := h.Articles.AnalyticsTotals(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": h.T.T(lang, "error.database")})
	}
	top, err := h.Articles.TopByViews(ctx, 5)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": h.T.T(lang, "error.database")})
	}

	items := make([]topArticle, 0, len(top))
	for i := range top {
		items = append(items, topArticle{
			ID:      top[i].ID,
			Slug:    top[i].Slug,
			TitleEN: top[i].TitleEN,
			TitlePT: top[i].TitlePT,
			Views:   top[i].Views,
			Votes:   top[i].Votes,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"totals": echo.Map{
			"articles": totals.Articles,
			"views":    totals.Views,
			"votes":    totals.Votes,
		},
		"top": items,
	})
}
