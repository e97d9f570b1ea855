package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"reddot-watch/curator/internal/models"
)

const articleColumns = `a.id, a.source_id, a.url, a.title, a.original_content, a.summary, a.read, a.interest_score, a.created_at`

// ArticleFilter narrows and pages ListArticles. Pages are ordered newest first;
// the cursor is the (created_at, id) of the last article of the previous page.
type ArticleFilter struct {
	Limit           int
	CursorCreatedAt *time.Time
	CursorID        *int64
	Category        string
	UnreadOnly      bool
	MinScore        *int
	SourceID        *int64
}

// GetArticleByURL returns the article stored under url or ErrNotFound.
func (r *Repository) GetArticleByURL(ctx context.Context, url string) (*models.Article, error) {
	var article models.Article
	err := r.db.GetContext(ctx, &article, `SELECT `+articleColumns+` FROM articles a WHERE a.url = ?`, url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article by url: %w", err)
	}
	return &article, nil
}

// GetArticle returns one article with its categories.
func (r *Repository) GetArticle(ctx context.Context, id int64) (*models.Article, error) {
	var article models.Article
	err := r.db.GetContext(ctx, &article, `SELECT `+articleColumns+` FROM articles a WHERE a.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article %d: %w", id, err)
	}

	articles := []models.Article{article}
	if err := r.attachCategories(ctx, articles); err != nil {
		return nil, err
	}
	return &articles[0], nil
}

// CreateArticle inserts article and sets its ID. The URL is the natural key:
// if any writer got there first the insert is a no-op and ErrDuplicateURL is returned.
// An owning source deleted in the meantime yields ErrSourceGone.
func (r *Repository) CreateArticle(ctx context.Context, article *models.Article) error {
	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO articles (source_id, url, title, original_content, summary, read, interest_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING`,
		article.SourceID, article.URL, article.Title, article.OriginalContent,
		article.Summary, article.Read, article.InterestScore, article.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("insert article %s: %w", article.URL, ErrSourceGone)
		}
		return fmt.Errorf("insert article %s: %w", article.URL, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert article %s: %w", article.URL, err)
	}
	if rows == 0 {
		return ErrDuplicateURL
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert article %s: %w", article.URL, err)
	}
	article.ID = id
	return nil
}

// UpdateArticleSummary stores the AI summary for an article.
func (r *Repository) UpdateArticleSummary(ctx context.Context, id int64, summary string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE articles SET summary = ? WHERE id = ?`, summary, id)
	if err != nil {
		return fmt.Errorf("update summary of article %d: %w", id, err)
	}
	return expectOneRow(res)
}

// UpdateArticleInterestScore stores the interest score for an article.
func (r *Repository) UpdateArticleInterestScore(ctx context.Context, id int64, score int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE articles SET interest_score = ? WHERE id = ?`, score, id)
	if err != nil {
		return fmt.Errorf("update interest score of article %d: %w", id, err)
	}
	return expectOneRow(res)
}

// MarkArticleRead sets the read flag.
func (r *Repository) MarkArticleRead(ctx context.Context, id int64, read bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE articles SET read = ? WHERE id = ?`, read, id)
	if err != nil {
		return fmt.Errorf("mark article %d read: %w", id, err)
	}
	return expectOneRow(res)
}

// ListArticles returns one page of articles, newest first, with categories attached.
func (r *Repository) ListArticles(ctx context.Context, filter ArticleFilter) ([]models.Article, error) {
	var (
		where []string
		args  []any
	)

	if filter.CursorCreatedAt != nil && filter.CursorID != nil {
		where = append(where, `(a.created_at < ? OR (a.created_at = ? AND a.id < ?))`)
		args = append(args, filter.CursorCreatedAt.UTC(), filter.CursorCreatedAt.UTC(), *filter.CursorID)
	}
	if filter.Category != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM article_categories ac
			JOIN categories c ON c.id = ac.category_id
			WHERE ac.article_id = a.id AND c.name = ? COLLATE NOCASE)`)
		args = append(args, filter.Category)
	}
	if filter.UnreadOnly {
		where = append(where, `a.read = 0`)
	}
	if filter.MinScore != nil {
		where = append(where, `a.interest_score >= ?`)
		args = append(args, *filter.MinScore)
	}
	if filter.SourceID != nil {
		where = append(where, `a.source_id = ?`)
		args = append(args, *filter.SourceID)
	}

	query := `SELECT ` + articleColumns + ` FROM articles a`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY a.created_at DESC, a.id DESC LIMIT ?`
	args = append(args, filter.Limit)

	var articles []models.Article
	if err := r.db.SelectContext(ctx, &articles, query, args...); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	if err := r.attachCategories(ctx, articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// ListArticlesForScoring returns every stored article in id order.
func (r *Repository) ListArticlesForScoring(ctx context.Context) ([]models.Article, error) {
	var articles []models.Article
	err := r.db.SelectContext(ctx, &articles, `SELECT `+articleColumns+` FROM articles a ORDER BY a.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list articles for scoring: %w", err)
	}
	return articles, nil
}

func (r *Repository) attachCategories(ctx context.Context, articles []models.Article) error {
	if len(articles) == 0 {
		return nil
	}

	ids := make([]int64, len(articles))
	index := make(map[int64]int, len(articles))
	for i := range articles {
		ids[i] = articles[i].ID
		index[articles[i].ID] = i
		articles[i].Categories = []string{}
	}

	query, args, err := sqlx.In(`
		SELECT ac.article_id, c.name
		FROM article_categories ac
		JOIN categories c ON c.id = ac.category_id
		WHERE ac.article_id IN (?)
		ORDER BY c.name ASC`, ids)
	if err != nil {
		return fmt.Errorf("build category query: %w", err)
	}

	var links []struct {
		ArticleID int64  `db:"article_id"`
		Name      string `db:"name"`
	}
	if err := r.db.SelectContext(ctx, &links, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load article categories: %w", err)
	}

	for _, link := range links {
		i := index[link.ArticleID]
		articles[i].Categories = append(articles[i].Categories, link.Name)
	}
	return nil
}
