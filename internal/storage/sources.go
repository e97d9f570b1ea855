package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reddot-watch/curator/internal/models"
)

const sourceColumns = `id, name, url, scraper_type, config, last_scraped_at, created_at, updated_at`

// ListSources returns every source in id order.
func (r *Repository) ListSources(ctx context.Context) ([]models.Source, error) {
	var sources []models.Source
	err := r.db.SelectContext(ctx, &sources, `SELECT `+sourceColumns+` FROM sources ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return sources, nil
}

// GetSource returns the source with the given id or ErrNotFound.
func (r *Repository) GetSource(ctx context.Context, id int64) (*models.Source, error) {
	var source models.Source
	err := r.db.GetContext(ctx, &source, `SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get source %d: %w", id, err)
	}
	return &source, nil
}

// CreateSource inserts source and sets its ID. A URL collision yields ErrDuplicateURL.
func (r *Repository) CreateSource(ctx context.Context, source *models.Source) error {
	now := time.Now().UTC()
	if source.CreatedAt.IsZero() {
		source.CreatedAt = now
	}
	source.UpdatedAt = now
	if source.ScraperType == "" {
		source.ScraperType = models.ScraperHTML
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sources (name, url, scraper_type, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		source.Name, source.URL, source.ScraperType, source.Config, source.CreatedAt, source.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateURL
		}
		return fmt.Errorf("insert source %s: %w", source.URL, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert source %s: %w", source.URL, err)
	}
	source.ID = id
	return nil
}

// UpdateSource overwrites the editable fields of an existing source.
func (r *Repository) UpdateSource(ctx context.Context, source *models.Source) error {
	source.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE sources
		SET name = ?, url = ?, scraper_type = ?, config = ?, updated_at = ?
		WHERE id = ?`,
		source.Name, source.URL, source.ScraperType, source.Config, source.UpdatedAt, source.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateURL
		}
		return fmt.Errorf("update source %d: %w", source.ID, err)
	}
	return expectOneRow(res)
}

// DeleteSource removes a source. Its articles are kept with a NULL source_id.
func (r *Repository) DeleteSource(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete source %d: %w", id, err)
	}
	return expectOneRow(res)
}

// MarkSourceScraped records a completed scrape pass for the source.
func (r *Repository) MarkSourceScraped(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sources SET last_scraped_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark source %d scraped: %w", id, err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
