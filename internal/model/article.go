package model

import "time"

// Category classifies a research article.  The set is fixed; the editor UI
// offers exactly these four.
type Category string

const (
	CategoryAnalysis      Category = "ANALYSIS"
	CategoryStatistics    Category = "STATISTICS"
	CategoryInvestigation Category = "INVESTIGATION"
	CategoryGuide         Category = "GUIDE"
)

// ValidCategory reports whether s is one of the known categories.
func ValidCategory(s string) bool {
	switch Category(s) {
	case CategoryAnalysis, CategoryStatistics, CategoryInvestigation, CategoryGuide:
		return true
	}
	return false
}

// Article represents a published research write-up.  Content is stored in
// both site languages side by side; readers receive a single-language
// projection chosen at request time.
//
// Fields:
//  ID        - primary key (uuid string).
//  Slug      - stable URL identifier, unique.
//  Category  - one of the Category constants.
//  Date      - publication date shown in the feed (feed is ordered by it).
//  Votes     - endorsement count, maintained by the vote flow.
//  Views     - view count, maintained by the engagement consumer.
//  AuthorID  - identity-provider user id of the author, empty for legacy rows.
//  *EN / *PT - bilingual title, excerpt and raw markdown content.
type Article struct {
	ID       string    // articles.id
	Slug     string    // articles.slug
	Category Category  // articles.category
	Date     time.Time // articles.date
	Votes    uint64    // articles.votes
	Views    uint64    // articles.views
	AuthorID string    // articles.author_id

	TitleEN   string // articles.title_en
	TitlePT   string // articles.title_pt
	ExcerptEN string // articles.excerpt_en
	ExcerptPT string // articles.excerpt_pt
	ContentEN string // articles.content_en
	ContentPT string // articles.content_pt

	CreatedAt time.Time // articles.created_at
	UpdatedAt time.Time // articles.updated_at
}

// LocalizedText is the single-language projection of an article's bilingual
// columns.
type LocalizedText struct {
	Title   string
	Excerpt string
	Content string
}

// Localized selects the bilingual columns for a language.  Anything other
// than "pt" falls back to English, the site's primary language.
func (a *Article) Localized(lang string) LocalizedText {
	if lang == "pt" {
		return LocalizedText{Title: a.TitlePT, Excerpt: a.ExcerptPT, Content: a.ContentPT}
	}
	return LocalizedText{Title: a.TitleEN, Excerpt: a.ExcerptEN, Content: a.ContentEN}
}
