package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/reddot-watch/feedfetcher"
	"github.com/rs/zerolog/log"

	"reddot-watch/curator/internal/models"
)

// ErrUnsupportedStrategy is returned for a scraper type outside the known set.
var ErrUnsupportedStrategy = errors.New("unsupported scraper strategy")

// feedLinksFunc returns the item URLs of the feed at url.
type feedLinksFunc func(ctx context.Context, url string) ([]string, error)

// Discoverer finds candidate article URLs on a source.
type Discoverer struct {
	client    *Client
	feedLinks feedLinksFunc
}

// NewDiscoverer creates a Discoverer. RSS sources are read with feedfetcher
// using the same User-Agent and timeout as the page client.
func NewDiscoverer(client *Client, timeout time.Duration) *Discoverer {
	fetcher := feedfetcher.NewFeedFetcher(feedfetcher.Config{
		UserAgent:            client.userAgent,
		RequestTimeout:       timeout,
		MaxItems:             100,
		MaxHeadingLength:     300,
		MaxAge:               14 * 24 * time.Hour,
		FutureDriftTolerance: 12 * time.Hour,
	})

	return &Discoverer{
		client: client,
		feedLinks: func(ctx context.Context, feedURL string) ([]string, error) {
			items, err := fetcher.FetchAndProcess(ctx, feedURL)
			if err != nil {
				return nil, err
			}
			links := make([]string, 0, len(items))
			for _, item := range items {
				links = append(links, item.URL)
			}
			return links, nil
		},
	}
}

// DiscoverLinks returns the absolute article URLs found on the source, in page
// order without repeats. It never fails: errors are logged and yield no links.
func (d *Discoverer) DiscoverLinks(ctx context.Context, src models.Source) []string {
	links, err := d.discover(ctx, src)
	if err != nil {
		log.Warn().
			Err(err).
			Int64("source_id", src.ID).
			Str("url", src.URL).
			Str("scraper_type", string(src.ScraperType)).
			Msg("Link discovery failed")
		return nil
	}
	return links
}

func (d *Discoverer) discover(ctx context.Context, src models.Source) ([]string, error) {
	switch src.ScraperType {
	case models.ScraperHTML:
		return d.discoverHTML(ctx, src)
	case models.ScraperRSS:
		return d.discoverFeed(ctx, src)
	case models.ScraperJSONAPI:
		log.Info().Int64("source_id", src.ID).Msg("JSON_API strategy is not implemented yet, source contributes no links")
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedStrategy, src.ScraperType)
	}
}

func (d *Discoverer) discoverHTML(ctx context.Context, src models.Source) ([]string, error) {
	selector := src.LinkSelector()
	if selector == "" {
		log.Debug().Int64("source_id", src.ID).Msg("No article link selector configured, skipping source")
		return nil, nil
	}

	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing source url: %w", err)
	}

	page, err := d.client.FetchPage(ctx, src.URL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing source page: %w", err)
	}

	var hrefs []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			// Selector matched a container; take its first link.
			href, ok = s.Find("a[href]").First().Attr("href")
		}
		if ok {
			hrefs = append(hrefs, href)
		}
	})

	return resolveLinks(base, hrefs), nil
}

func (d *Discoverer) discoverFeed(ctx context.Context, src models.Source) ([]string, error) {
	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing feed url: %w", err)
	}

	items, err := d.feedLinks(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	return resolveLinks(base, items), nil
}

// resolveLinks makes hrefs absolute against base, keeps http(s) links only,
// drops fragments and removes repeats while keeping the first occurrence.
func resolveLinks(base *url.URL, hrefs []string) []string {
	seen := make(map[string]struct{}, len(hrefs))
	links := make([]string, 0, len(hrefs))

	for _, href := range hrefs {
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}

		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			continue
		}
		abs.Fragment = ""

		link := abs.String()
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}
	return links
}
