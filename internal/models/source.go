package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ScraperType tags the link discovery strategy of a source. The set is closed:
// every value must be handled wherever strategies are dispatched.
type ScraperType string

const (
	ScraperHTML    ScraperType = "HTML"
	ScraperRSS     ScraperType = "RSS"
	ScraperJSONAPI ScraperType = "JSON_API"
)

// ScraperTypes lists every known strategy.
var ScraperTypes = []ScraperType{ScraperHTML, ScraperRSS, ScraperJSONAPI}

// ParseScraperType normalizes s into a known strategy. An empty string means HTML.
func ParseScraperType(s string) (ScraperType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	if normalized == "" {
		return ScraperHTML, nil
	}
	for _, t := range ScraperTypes {
		if string(t) == normalized {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown scraper type %q", s)
}

// ConfigArticleLinkSelector is the HTML strategy key holding the CSS selector
// for article links on the home page.
const ConfigArticleLinkSelector = "article_link_selector"

// SourceConfig is the strategy-specific configuration, stored as a JSON object.
type SourceConfig map[string]string

// Value implements driver.Valuer.
func (c SourceConfig) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *SourceConfig) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = SourceConfig{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("source config: unsupported type %T", src)
	}

	out := SourceConfig{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("source config: %w", err)
		}
	}
	*c = out
	return nil
}

// Source represents a row in the 'sources' table
type Source struct {
	ID            int64        `db:"id" json:"id"`
	Name          string       `db:"name" json:"name"`
	URL           string       `db:"url" json:"url"`
	ScraperType   ScraperType  `db:"scraper_type" json:"scraper_type"`
	Config        SourceConfig `db:"config" json:"config"`
	LastScrapedAt sql.NullTime `db:"last_scraped_at" json:"-"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// NewSource creates a new HTML Source with default values
func NewSource(name, url string) *Source {
	now := time.Now().UTC()
	return &Source{
		Name:        name,
		URL:         url,
		ScraperType: ScraperHTML,
		Config:      SourceConfig{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// LinkSelector returns the configured article link selector, if any.
func (s Source) LinkSelector() string {
	return strings.TrimSpace(s.Config[ConfigArticleLinkSelector])
}

// MarshalJSON renders last_scraped_at as null or an RFC 3339 timestamp.
func (s Source) MarshalJSON() ([]byte, error) {
	type alias Source
	var lastScraped *time.Time
	if s.LastScrapedAt.Valid {
		t := s.LastScrapedAt.Time.UTC()
		lastScraped = &t
	}
	return json.Marshal(struct {
		alias
		LastScrapedAt *time.Time `json:"last_scraped_at"`
	}{alias: alias(s), LastScrapedAt: lastScraped})
}
