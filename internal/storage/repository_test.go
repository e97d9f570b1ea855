package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddot-watch/curator/internal/database"
	"reddot-watch/curator/internal/models"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.NewDB(database.NewConfig(filepath.Join(t.TempDir(), "curator.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.DB)
}

func createTestSource(t *testing.T, repo *Repository, url string) *models.Source {
	t.Helper()
	src := models.NewSource("Test", url)
	src.Config[models.ConfigArticleLinkSelector] = ".article-link"
	require.NoError(t, repo.CreateSource(context.Background(), src))
	return src
}

func TestSourceLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	src := createTestSource(t, repo, "https://example.com")
	assert.NotZero(t, src.ID)

	err := repo.CreateSource(ctx, models.NewSource("Dup", "https://example.com"))
	assert.ErrorIs(t, err, ErrDuplicateURL)

	got, err := repo.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, ".article-link", got.LinkSelector())
	assert.Equal(t, models.ScraperHTML, got.ScraperType)
	assert.False(t, got.LastScrapedAt.Valid)

	got.Name = "Renamed"
	got.ScraperType = models.ScraperRSS
	require.NoError(t, repo.UpdateSource(ctx, got))

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkSourceScraped(ctx, src.ID, at))

	got, err = repo.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, models.ScraperRSS, got.ScraperType)
	require.True(t, got.LastScrapedAt.Valid)
	assert.True(t, at.Equal(got.LastScrapedAt.Time))

	all, err := repo.ListSources(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.DeleteSource(ctx, src.ID))
	_, err = repo.GetSource(ctx, src.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteSource(ctx, src.ID), ErrNotFound)
	assert.ErrorIs(t, repo.MarkSourceScraped(ctx, src.ID, at), ErrNotFound)
}

func TestCreateArticleDuplicateURL(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	src := createTestSource(t, repo, "https://example.com")

	a := models.NewArticle(src.ID, "https://example.com/a", "A", "body")
	require.NoError(t, repo.CreateArticle(ctx, a))
	assert.NotZero(t, a.ID)

	err := repo.CreateArticle(ctx, models.NewArticle(src.ID, "https://example.com/a", "A again", "body"))
	assert.ErrorIs(t, err, ErrDuplicateURL)

	got, err := repo.GetArticleByURL(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title)
	assert.Nil(t, got.Summary)
	assert.Nil(t, got.InterestScore)
	assert.False(t, got.Read)

	_, err = repo.GetArticleByURL(ctx, "https://example.com/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateArticleConcurrentSameURL(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	src := createTestSource(t, repo, "https://example.com")

	const writers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		dups    int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.CreateArticle(ctx, models.NewArticle(src.ID, "https://example.com/race", "Race", "body"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrDuplicateURL):
				dups++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, writers-1, dups)
}

func TestArticleEnrichmentUpdates(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	src := createTestSource(t, repo, "https://example.com")

	a := models.NewArticle(src.ID, "https://example.com/a", "A", "body")
	require.NoError(t, repo.CreateArticle(ctx, a))

	require.NoError(t, repo.UpdateArticleSummary(ctx, a.ID, "short"))
	require.NoError(t, repo.UpdateArticleInterestScore(ctx, a.ID, 77))
	require.NoError(t, repo.MarkArticleRead(ctx, a.ID, true))

	got, err := repo.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "short", *got.Summary)
	require.NotNil(t, got.InterestScore)
	assert.Equal(t, 77, *got.InterestScore)
	assert.True(t, got.Read)
	assert.Empty(t, got.Categories)

	assert.Error(t, repo.UpdateArticleInterestScore(ctx, a.ID, 101))
	assert.ErrorIs(t, repo.UpdateArticleSummary(ctx, 9999, "x"), ErrNotFound)
}

func TestLinkCategoriesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	src := createTestSource(t, repo, "https://example.com")

	a := models.NewArticle(src.ID, "https://example.com/a", "A", "body")
	require.NoError(t, repo.CreateArticle(ctx, a))

	require.NoError(t, repo.LinkCategoriesToArticle(ctx, a.ID, []string{"Tech", " AI ", "", "Tech"}))
	require.NoError(t, repo.LinkCategoriesToArticle(ctx, a.ID, []string{"Tech"}))

	got, err := repo.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"AI", "Tech"}, got.Categories)

	var links int
	require.NoError(t, repo.db.Get(&links, `SELECT COUNT(*) FROM article_categories WHERE article_id = ?`, a.ID))
	assert.Equal(t, 2, links)

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 2)

	require.NoError(t, repo.LinkCategoriesToArticle(ctx, a.ID, nil))
}

func TestListArticlesPagingAndFilters(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	src := createTestSource(t, repo, "https://example.com")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []int64
	for i := 0; i < 5; i++ {
		a := models.NewArticle(src.ID, "https://example.com/"+string(rune('a'+i)), "T", "body")
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.CreateArticle(ctx, a))
		ids = append(ids, a.ID)
	}
	require.NoError(t, repo.LinkCategoriesToArticle(ctx, ids[1], []string{"Go"}))
	require.NoError(t, repo.UpdateArticleInterestScore(ctx, ids[3], 90))
	require.NoError(t, repo.MarkArticleRead(ctx, ids[4], true))

	page, err := repo.ListArticles(ctx, ArticleFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	last := page[1]
	page, err = repo.ListArticles(ctx, ArticleFilter{Limit: 10, CursorCreatedAt: &last.CreatedAt, CursorID: &last.ID})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, ids[2], page[0].ID)

	page, err = repo.ListArticles(ctx, ArticleFilter{Limit: 10, Category: "go"})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, []string{"Go"}, page[0].Categories)

	minScore := 50
	page, err = repo.ListArticles(ctx, ArticleFilter{Limit: 10, MinScore: &minScore})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[3], page[0].ID)

	page, err = repo.ListArticles(ctx, ArticleFilter{Limit: 10, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, page, 4)

	all, err := repo.ListArticlesForScoring(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, ids[0], all[0].ID)
}

func TestDeleteSourceKeepsArticles(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	src := createTestSource(t, repo, "https://example.com")

	a := models.NewArticle(src.ID, "https://example.com/a", "A", "body")
	require.NoError(t, repo.CreateArticle(ctx, a))
	require.NoError(t, repo.DeleteSource(ctx, src.ID))

	got, err := repo.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SourceID)
}

func TestCreateArticleForDeletedSource(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	src := createTestSource(t, repo, "https://example.com")
	require.NoError(t, repo.DeleteSource(ctx, src.ID))

	err := repo.CreateArticle(ctx, models.NewArticle(src.ID, "https://example.com/late", "Late", "body"))
	assert.ErrorIs(t, err, ErrSourceGone)

	_, err = repo.GetArticleByURL(ctx, "https://example.com/late")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateArticleForeignKeyMessage(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewRepository(sqlx.NewDb(mockDB, "sqlite3"))
	mock.ExpectExec(`INSERT INTO articles`).WillReturnError(errors.New("FOREIGN KEY constraint failed"))

	err = repo.CreateArticle(context.Background(), models.NewArticle(7, "https://example.com/a", "A", "body"))
	assert.ErrorIs(t, err, ErrSourceGone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInterestProfileDefaultAndOverride(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	profile, err := repo.GetInterestProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultInterestProfile, profile)

	require.NoError(t, repo.SetInterestProfile(ctx, "  distributed systems  "))
	profile, err = repo.GetInterestProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "distributed systems", profile)

	require.NoError(t, repo.SetInterestProfile(ctx, "   "))
	profile, err = repo.GetInterestProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultInterestProfile, profile)

	_, err = repo.GetSetting(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSourcesQueryError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewRepository(sqlx.NewDb(mockDB, "sqlite3"))
	mock.ExpectQuery(`SELECT (.+) FROM sources`).WillReturnError(errors.New("disk I/O error"))

	_, err = repo.ListSources(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list sources")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateArticleRowsAffectedZero(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewRepository(sqlx.NewDb(mockDB, "sqlite3"))
	mock.ExpectExec(`INSERT INTO articles`).WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.CreateArticle(context.Background(), models.NewArticle(1, "https://example.com/a", "A", "body"))
	assert.ErrorIs(t, err, ErrDuplicateURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}
