package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddot-watch/curator/internal/extract"
	"reddot-watch/curator/internal/models"
)

const testUserAgent = "Mozilla/5.0 (X11; Linux x86_64) CuratorTest"

func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != testUserAgent {
			http.Error(w, "bots not welcome", http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `<html><body>
			<a class="article-link" href="/posts/1">One</a>
			<a class="article-link" href="posts/2#comments">Two</a>
			<a class="article-link" href="/posts/1">One again</a>
			<div class="article-link"><a href="https://other.example.org/x">Three</a></div>
			<a class="article-link" href="mailto:editor@example.com">Mail</a>
			<a class="nav" href="/about">About</a>
		</body></html>`)
	})
	mux.HandleFunc("/posts/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Post One</title></head><body><article><p>Hello world.</p></article></body></html>`)
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Nothing</title></head><body></body></html>`)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, `<html><body><p>late</p></body></html>`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func htmlSource(url, selector string) models.Source {
	src := models.NewSource("Test", url)
	if selector != "" {
		src.Config[models.ConfigArticleLinkSelector] = selector
	}
	return *src
}

func TestDiscoverLinksHTML(t *testing.T) {
	srv := newTestSite(t)
	d := NewDiscoverer(NewClient(time.Second, testUserAgent), time.Second)

	links := d.DiscoverLinks(context.Background(), htmlSource(srv.URL+"/", ".article-link"))

	assert.Equal(t, []string{
		srv.URL + "/posts/1",
		srv.URL + "/posts/2",
		"https://other.example.org/x",
	}, links)
}

func TestDiscoverLinksWithoutSelector(t *testing.T) {
	srv := newTestSite(t)
	d := NewDiscoverer(NewClient(time.Second, testUserAgent), time.Second)

	assert.Empty(t, d.DiscoverLinks(context.Background(), htmlSource(srv.URL+"/", "")))
}

func TestDiscoverLinksFailsSoft(t *testing.T) {
	srv := newTestSite(t)

	blocked := NewDiscoverer(NewClient(time.Second, "Go-http-client/1.1"), time.Second)
	assert.Empty(t, blocked.DiscoverLinks(context.Background(), htmlSource(srv.URL+"/", ".article-link")))

	d := NewDiscoverer(NewClient(time.Second, testUserAgent), time.Second)
	assert.Empty(t, d.DiscoverLinks(context.Background(), htmlSource(srv.URL+"/missing", "a")))
	assert.Empty(t, d.DiscoverLinks(context.Background(), htmlSource("http://127.0.0.1:1/", "a")))
}

func TestDiscoverStrategies(t *testing.T) {
	d := NewDiscoverer(NewClient(time.Second, testUserAgent), time.Second)
	d.feedLinks = func(_ context.Context, url string) ([]string, error) {
		if url == "https://feeds.example.com/broken.xml" {
			return nil, errors.New("malformed feed")
		}
		return []string{"/a", "https://example.com/b", "/a"}, nil
	}

	rss := models.Source{ID: 1, URL: "https://feeds.example.com/rss.xml", ScraperType: models.ScraperRSS}
	assert.Equal(t, []string{"https://feeds.example.com/a", "https://example.com/b"}, d.DiscoverLinks(context.Background(), rss))

	rss.URL = "https://feeds.example.com/broken.xml"
	assert.Empty(t, d.DiscoverLinks(context.Background(), rss))

	jsonAPI := models.Source{ID: 2, URL: "https://api.example.com", ScraperType: models.ScraperJSONAPI}
	links, err := d.discover(context.Background(), jsonAPI)
	require.NoError(t, err)
	assert.Empty(t, links)

	_, err = d.discover(context.Background(), models.Source{ID: 3, ScraperType: "SITEMAP"})
	assert.ErrorIs(t, err, ErrUnsupportedStrategy)
}

func TestFetchArticle(t *testing.T) {
	srv := newTestSite(t)
	f := NewFetcher(NewClient(time.Second, testUserAgent), extract.New())

	got := f.FetchArticle(context.Background(), srv.URL+"/posts/1")
	require.NotNil(t, got)
	assert.Equal(t, "Post One", got.Title)
	assert.Equal(t, "Hello world.", got.Text)

	assert.Nil(t, f.FetchArticle(context.Background(), srv.URL+"/missing"))
	assert.Nil(t, f.FetchArticle(context.Background(), srv.URL+"/empty"))
}

func TestFetchArticleTimeout(t *testing.T) {
	srv := newTestSite(t)
	f := NewFetcher(NewClient(50*time.Millisecond, testUserAgent), extract.New())

	assert.Nil(t, f.FetchArticle(context.Background(), srv.URL+"/slow"))
}

func TestFetchPageHTTPError(t *testing.T) {
	srv := newTestSite(t)
	c := NewClient(time.Second, testUserAgent)

	_, err := c.FetchPage(context.Background(), srv.URL+"/missing")
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
}
