// Package sourcesimport bulk-creates sources from a CSV or YAML seed file.
package sourcesimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"reddot-watch/curator/internal/models"
	"reddot-watch/curator/internal/storage"
)

// SourceCreator persists one source. A URL that is already stored yields
// storage.ErrDuplicateURL.
type SourceCreator interface {
	CreateSource(ctx context.Context, source *models.Source) error
}

// Result summarizes an import. Rejected rows do not stop the import.
type Result struct {
	Imported int
	Errors   []string
}

// Importer handles the source import process
type Importer struct {
	store  SourceCreator
	client *http.Client
}

// NewImporter creates a new source importer
func NewImporter(store SourceCreator) *Importer {
	return &Importer{store: store, client: &http.Client{Timeout: 30 * time.Second}}
}

// ImportFile imports sources from a local file or an http(s) URL. Files ending
// in .yaml or .yml are read as YAML, anything else as CSV.
func (i *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	log.Info().Str("path", path).Msg("Starting source import")

	r, err := i.open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var result *Result
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		result, err = i.ImportYAML(ctx, r)
	default:
		result, err = i.ImportCSV(ctx, r)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to import sources: %w", err)
	}

	log.Info().
		Int("success", result.Imported).
		Int("errors", len(result.Errors)).
		Msg("Import summary")
	return result, nil
}

func (i *Importer) open(ctx context.Context, path string) (io.ReadCloser, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		log.Info().Str("url", path).Msg("Downloading source list")
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		resp, err := i.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to download source list: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to download source list: HTTP status %d", resp.StatusCode)
		}
		return resp.Body, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source list not found: %w", err)
	}
	return f, nil
}

// ImportCSV reads a header row naming at least the name and url columns.
// Optional columns: scraper_type, article_link_selector.
func (i *Importer) ImportCSV(ctx context.Context, data io.Reader) (*Result, error) {
	reader := csv.NewReader(data)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	log.Debug().Strs("header", header).Msg("CSV header read")

	nameIdx := findColumnIndex(header, "name")
	urlIdx := findColumnIndex(header, "url")
	typeIdx := findColumnIndex(header, "scraper_type")
	selectorIdx := findColumnIndex(header, models.ConfigArticleLinkSelector)
	for column, idx := range map[string]int{"name": nameIdx, "url": urlIdx} {
		if idx < 0 {
			return nil, fmt.Errorf("required column '%s' not found in CSV header", column)
		}
	}

	result := &Result{}
	line := 1
	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("Error reading CSV line")
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
			continue
		}

		entry := sourceEntry{
			Name:        safeGetValue(record, nameIdx),
			URL:         safeGetValue(record, urlIdx),
			ScraperType: safeGetValue(record, typeIdx),
		}
		if selector := safeGetValue(record, selectorIdx); selector != "" {
			entry.Config = map[string]string{models.ConfigArticleLinkSelector: selector}
		}
		i.create(ctx, fmt.Sprintf("line %d", line), entry, result)
	}
	return result, nil
}

type sourceEntry struct {
	Name        string            `yaml:"name"`
	URL         string            `yaml:"url"`
	ScraperType string            `yaml:"scraper_type"`
	Config      map[string]string `yaml:"config"`
}

// ImportYAML reads a document of the form:
//
//	sources:
//	  - name: Example
//	    url: https://example.com
//	    scraper_type: HTML
//	    config:
//	      article_link_selector: .article-link
func (i *Importer) ImportYAML(ctx context.Context, data io.Reader) (*Result, error) {
	var doc struct {
		Sources []sourceEntry `yaml:"sources"`
	}
	if err := yaml.NewDecoder(data).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	result := &Result{}
	for n, entry := range doc.Sources {
		i.create(ctx, fmt.Sprintf("entry %d", n+1), entry, result)
	}
	return result, nil
}

func (i *Importer) create(ctx context.Context, where string, entry sourceEntry, result *Result) {
	logger := log.With().Str("at", where).Str("url", entry.URL).Logger()

	entry.URL = strings.TrimSpace(entry.URL)
	if entry.URL == "" {
		logger.Warn().Msg("Skipping source with empty URL")
		result.Errors = append(result.Errors, fmt.Sprintf("%s: empty URL", where))
		return
	}

	scraperType, err := models.ParseScraperType(entry.ScraperType)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", where, err))
		return
	}

	name := strings.TrimSpace(entry.Name)
	if name == "" {
		name = entry.URL
	}

	src := models.NewSource(name, entry.URL)
	src.ScraperType = scraperType
	for k, v := range entry.Config {
		src.Config[k] = strings.TrimSpace(v)
	}

	if err := i.store.CreateSource(ctx, src); err != nil {
		if errors.Is(err, storage.ErrDuplicateURL) {
			logger.Warn().Msg("Duplicate URL")
			result.Errors = append(result.Errors, fmt.Sprintf("%s: duplicate URL: %s", where, entry.URL))
		} else {
			logger.Error().Err(err).Msg("Failed to insert source")
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", where, err))
		}
		return
	}

	result.Imported++
	logger.Debug().Int64("source_id", src.ID).Msg("Source inserted successfully")
}

func findColumnIndex(header []string, columnName string) int {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), columnName) {
			return i
		}
	}
	return -1
}

// safeGetValue returns the trimmed value at index, or "" when out of range.
func safeGetValue(record []string, index int) string {
	if index >= 0 && index < len(record) {
		return strings.TrimSpace(record[index])
	}
	return ""
}
