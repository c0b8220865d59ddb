package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/Jotasiete7/wurm-analytics-journal/internal/model"
)

const articleColumns = "id,slug,category,date,votes,views,author_id," +
	"title_en,title_pt,excerpt_en,excerpt_pt,content_en,content_pt," +
	"created_at,updated_at"

// ArticleRepo provides access to the 'articles' table.
type ArticleRepo struct{ DB *sql.DB }

func NewArticleRepo(db *sql.DB) *ArticleRepo { return &ArticleRepo{DB: db} }

// List returns all articles ordered by publication date, newest first.
// Both the public feed and the admin dashboard read this.
func (r *ArticleRepo) List(ctx context.Context) ([]model.Article, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+articleColumns+" FROM articles ORDER BY date DESC, created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetBySlug fetches one article by its URL slug.
func (r *ArticleRepo) GetBySlug(ctx context.Context, slug string) (model.Article, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+articleColumns+" FROM articles WHERE slug=? LIMIT 1", slug)
	return scanArticleRow(row)
}

// GetByID fetches one article by id.
func (r *ArticleRepo) GetByID(ctx context.Context, id string) (model.Article, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+articleColumns+" FROM articles WHERE id=? LIMIT 1", id)
	return scanArticleRow(row)
}

// Stats returns the current view and vote counters for an article.
func (r *ArticleRepo) Stats(ctx context.Context, id string) (views, votes uint64, err error) {
	err = r.DB.QueryRowContext(ctx,
		"SELECT views,votes FROM articles WHERE id=? LIMIT 1", id).Scan(&views, &votes)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	return views, votes, err
}

// Create inserts a new article and fills in its generated id.
func (r *ArticleRepo) Create(ctx context.Context, a *model.Article) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO articles
		 (id,slug,category,date,author_id,
		  title_en,title_pt,excerpt_en,excerpt_pt,content_en,content_pt)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.Slug, string(a.Category), a.Date, a.AuthorID,
		a.TitleEN, a.TitlePT, a.ExcerptEN, a.ExcerptPT, a.ContentEN, a.ContentPT)
	if err != nil {
		if isDuplicate(err) {
			return ErrSlugExists
		}
		return err
	}
	return nil
}

// Update rewrites the editable columns of an article.  Counters are
// deliberately excluded: votes and views belong to the engagement flows.
func (r *ArticleRepo) Update(ctx context.Context, a *model.Article) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE articles SET
		 slug=?, category=?, date=?,
		 title_en=?, title_pt=?, excerpt_en=?, excerpt_pt=?, content_en=?, content_pt=?
		 WHERE id=?`,
		a.Slug, string(a.Category), a.Date,
		a.TitleEN, a.TitlePT, a.ExcerptEN, a.ExcerptPT, a.ContentEN, a.ContentPT,
		a.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrSlugExists
		}
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		// Zero rows can also mean a no-op update; confirm existence before 404ing.
		if _, getErr := r.GetByID(ctx, a.ID); getErr != nil {
			return getErr
		}
	}
	return err
}

// Delete removes an article and its vote rows.
func (r *ArticleRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM article_votes WHERE article_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM articles WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// IncrementViews bumps the view counter.  Called by the engagement
// consumer, never from the request path.
func (r *ArticleRepo) IncrementViews(ctx context.Context, id string, n uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE articles SET views = views + ? WHERE id=?", n, id)
	return err
}

// Totals aggregates counters for the analytics dashboard.
type Totals struct {
	Articles uint64
	Views    uint64
	Votes    uint64
}

// AnalyticsTotals returns site-wide counters.
func (r *ArticleRepo) AnalyticsTotals(ctx context.Context) (Totals, error) {
	var t Totals
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(views),0), COALESCE(SUM(votes),0) FROM articles").
		Scan(&t.Articles, &t.Views, &t.Votes)
	return t, err
}

// TopByViews returns the most viewed articles for the analytics dashboard.
func (r *ArticleRepo) TopByViews(ctx context.Context, limit int) ([]model.Article, error) {
	if limit < 1 {
		limit = 5
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+articleColumns+" FROM articles ORDER BY views DESC, votes DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- scanning helpers ---

type rowScanner interface{ Scan(dest ...any) error }

func scanArticle(s rowScanner) (model.Article, error) {
	var (
		a        model.Article
		category string
		authorID sql.NullString
	)
	err := s.Scan(&a.ID, &a.Slug, &category, &a.Date, &a.Votes, &a.Views, &authorID,
		&a.TitleEN, &a.TitlePT, &a.ExcerptEN, &a.ExcerptPT, &a.ContentEN, &a.ContentPT,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Article{}, err
	}
	a.Category = model.Category(category)
	a.AuthorID = authorID.String
	return a, nil
}

func scanArticleRow(row *sql.Row) (model.Article, error) {
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Article{}, ErrNotFound
	}
	return a, err
}

// isDuplicate detects MySQL duplicate-key errors (code 1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
