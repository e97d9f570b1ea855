package models

import "time"

// Article represents a row in the 'articles' table plus its linked category names
type Article struct {
	ID              int64     `db:"id" json:"id"`
	SourceID        *int64    `db:"source_id" json:"source_id"`
	URL             string    `db:"url" json:"url"`
	Title           string    `db:"title" json:"title"`
	OriginalContent string    `db:"original_content" json:"original_content,omitempty"`
	Summary         *string   `db:"summary" json:"summary"`
	Read            bool      `db:"read" json:"read"`
	InterestScore   *int      `db:"interest_score" json:"interest_score"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`

	Categories []string `db:"-" json:"categories"`
}

// NewArticle creates an unenriched article owned by sourceID.
func NewArticle(sourceID int64, url, title, content string) *Article {
	return &Article{
		SourceID:        &sourceID,
		URL:             url,
		Title:           title,
		OriginalContent: content,
		CreatedAt:       time.Now().UTC(),
	}
}

// Category represents a row in the 'categories' table
type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Setting represents a row in the 'settings' table
type Setting struct {
	Key   string `db:"key" json:"key"`
	Value string `db:"value" json:"value"`
}
