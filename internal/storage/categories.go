package storage

import (
	"context"
	"fmt"
	"strings"

	"reddot-watch/curator/internal/models"
)

// LinkCategoriesToArticle finds or creates each named category and links it to
// the article. Names are trimmed, blanks dropped and repeats collapsed. Linking
// an already linked category is a no-op.
func (r *Repository) LinkCategoriesToArticle(ctx context.Context, articleID int64, names []string) error {
	names = normalizeCategoryNames(names)
	if len(names) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin category tx: %w", err)
	}
	defer tx.Rollback()

	for _, name := range names {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO categories (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("create category %q: %w", name, err)
		}

		var categoryID int64
		if err := tx.GetContext(ctx, &categoryID, `SELECT id FROM categories WHERE name = ?`, name); err != nil {
			return fmt.Errorf("lookup category %q: %w", name, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO article_categories (article_id, category_id) VALUES (?, ?)`,
			articleID, categoryID); err != nil {
			return fmt.Errorf("link category %q to article %d: %w", name, articleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit category links: %w", err)
	}
	return nil
}

// ListCategories returns every category ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, `SELECT id, name FROM categories ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func normalizeCategoryNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
