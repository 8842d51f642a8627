package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pageinsights/internal/cache"
	"pageinsights/internal/ingest"
	"pageinsights/internal/insights"
	"pageinsights/internal/model"
	"pageinsights/internal/scraper"
	"pageinsights/internal/storage/postgres"
	"pageinsights/internal/summary"
)

type fakeCrawler struct {
	result scraper.CrawlResult
	gotID  string
}

func (f *fakeCrawler) Crawl(_ context.Context, pageID string) scraper.CrawlResult {
	f.gotID = pageID
	return f.result
}

type fakeIngestor struct {
	result ingest.Result
}

func (f *fakeIngestor) Process(context.Context, scraper.CrawlResult) ingest.Result {
	return f.result
}

type fakePages struct {
	page    *model.Page
	pages   []model.Page
	total   int64
	err     error
	listErr error
	filter  postgres.PageFilter
}

func (f *fakePages) GetByPageID(_ context.Context, pageID string) (*model.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.page == nil || f.page.PageID != pageID {
		return nil, postgres.ErrNotFound
	}
	return f.page, nil
}

func (f *fakePages) ListPages(_ context.Context, filter postgres.PageFilter, _, _ int) ([]model.Page, error) {
	f.filter = filter
	return f.pages, f.listErr
}

func (f *fakePages) CountPages(_ context.Context, filter postgres.PageFilter) (int64, error) {
	f.filter = filter
	return f.total, f.listErr
}

type fakePosts struct {
	posts []model.Post
	total int64
}

func (f *fakePosts) ListByPage(context.Context, int64, int, int) ([]model.Post, error) {
	return f.posts, nil
}

func (f *fakePosts) CountByPage(context.Context, int64) (int64, error) {
	return f.total, nil
}

type fakeComments struct {
	comments []model.Comment
}

func (f *fakeComments) ListByPost(context.Context, int64, int, int) ([]model.Comment, error) {
	return f.comments, nil
}

type fakeUsers struct {
	users []model.User
	total int64
}

func (f *fakeUsers) ListByPage(context.Context, int64, int, int) ([]model.User, error) {
	return f.users, nil
}

func (f *fakeUsers) CountByPage(context.Context, int64) (int64, error) {
	return f.total, nil
}

type fakeInsights struct {
	stats *insights.Stats
	err   error
}

func (f *fakeInsights) PageStats(context.Context, string) (*insights.Stats, error) {
	return f.stats, f.err
}

type fakeSummarizer struct {
	available bool
	text      string
	err       error
}

func (f *fakeSummarizer) Available() bool { return f.available }

func (f *fakeSummarizer) Summarize(context.Context, *model.Page, *insights.Stats) (string, error) {
	return f.text, f.err
}

func testDeps() (Deps, *fakeCrawler, *fakePages) {
	crawler := &fakeCrawler{}
	pages := &fakePages{}
	deps := Deps{
		Crawler:    crawler,
		Ingestor:   &fakeIngestor{},
		Pages:      pages,
		Posts:      &fakePosts{},
		Comments:   &fakeComments{},
		Users:      &fakeUsers{},
		Insights:   &fakeInsights{},
		Summarizer: &fakeSummarizer{},
		Cache:      cache.Disabled(),
		Logger:     zap.NewNop(),
	}
	return deps, crawler, pages
}

func doRequest(t *testing.T, deps Deps, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	NewServer(deps).Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dest))
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	deps, _, _ := testDeps()
	rec := doRequest(t, deps, http.MethodGet, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyzReportsDependencyFailure(t *testing.T) {
	t.Parallel()

	deps, _, _ := testDeps()
	deps.Ready = func(context.Context) error { return errors.New("database unreachable") }
	rec := doRequest(t, deps, http.MethodGet, "/readyz")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestScrapePageSuccess(t *testing.T) {
	t.Parallel()

	deps, crawler, _ := testDeps()
	now := time.Unix(1700000000, 0).UTC()
	crawler.result = scraper.CrawlResult{
		PageInfo:  &scraper.PageInfo{PageID: "acme", Name: "Acme Corp"},
		ScrapedAt: now,
	}
	rowID := int64(7)
	deps.Ingestor = &fakeIngestor{result: ingest.Result{
		Success:            true,
		PageID:             &rowID,
		PagePageID:         "acme",
		PostsProcessed:     3,
		EmployeesProcessed: 2,
		ProcessedAt:        now,
	}}

	rec := doRequest(t, deps, http.MethodPost, "/api/v1/scraper/pages/acme")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acme", crawler.gotID)

	var out ingest.Result
	decodeBody(t, rec, &out)
	assert.True(t, out.Success)
	assert.Equal(t, 3, out.PostsProcessed)
}

func TestScrapePageNotFound(t *testing.T) {
	t.Parallel()

	deps, crawler, _ := testDeps()
	failed := scraper.Failure("page not found", time.Now())
	failed.NotFound = true
	crawler.result = failed

	rec := doRequest(t, deps, http.MethodPost, "/api/v1/scraper/pages/ghost")

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "page not found", body["error"])
}

func TestScrapePageCrawlFailure(t *testing.T) {
	t.Parallel()

	deps, crawler, _ := testDeps()
	crawler.result = scraper.Failure("navigation timed out", time.Now())

	rec := doRequest(t, deps, http.MethodPost, "/api/v1/scraper/pages/acme")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestScrapePageIngestFailure(t *testing.T) {
	t.Parallel()

	deps, crawler, _ := testDeps()
	crawler.result = scraper.CrawlResult{PageInfo: &scraper.PageInfo{PageID: "acme"}}
	deps.Ingestor = &fakeIngestor{result: ingest.Result{Error: "connection refused"}}

	rec := doRequest(t, deps, http.MethodPost, "/api/v1/scraper/pages/acme")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "connection refused", body["error"])
}

func TestListPagesAppliesFilters(t *testing.T) {
	t.Parallel()

	deps, _, pages := testDeps()
	pages.pages = []model.Page{{ID: 1, PageID: "acme", Name: "Acme Corp"}}
	pages.total = 1

	rec := doRequest(t, deps, http.MethodGet,
		"/api/v1/pages?name=acme&industry=software&min_followers=100&limit=5")

	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, pages.filter.Name)
	assert.Equal(t, "acme", *pages.filter.Name)
	require.NotNil(t, pages.filter.Industry)
	assert.Equal(t, "software", *pages.filter.Industry)
	require.NotNil(t, pages.filter.MinFollowers)
	assert.Equal(t, int64(100), *pages.filter.MinFollowers)
	assert.Nil(t, pages.filter.MaxFollowers)

	var out pageListResponse
	decodeBody(t, rec, &out)
	require.Len(t, out.Pages, 1)
	assert.Equal(t, 1, out.Pagination.Page)
	assert.Equal(t, 5, out.Pagination.Limit)
	assert.Equal(t, int64(1), out.Pagination.Total)
}

func TestListPagesEmptyIsArrayNotNull(t *testing.T) {
	t.Parallel()

	deps, _, _ := testDeps()
	rec := doRequest(t, deps, http.MethodGet, "/api/v1/pages")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pages":[]`)
}

func TestGetPageNotFound(t *testing.T) {
	t.Parallel()

	deps, _, _ := testDeps()
	rec := doRequest(t, deps, http.MethodGet, "/api/v1/pages/ghost")

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPageStoreFailure(t *testing.T) {
	t.Parallel()

	deps, _, pages := testDeps()
	pages.err = errors.New("connection refused")

	rec := doRequest(t, deps, http.MethodGet, "/api/v1/pages/acme")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "storage error", body["error"])
}

func TestListPostsEmbedsComments(t *testing.T) {
	t.Parallel()

	deps, _, pages := testDeps()
	pages.page = &model.Page{ID: 1, PageID: "acme"}
	deps.Posts = &fakePosts{
		posts: []model.Post{{ID: 100, PageID: 1, PostID: "post-1"}},
		total: 1,
	}
	deps.Comments = &fakeComments{
		comments: []model.Comment{{ID: 200, PostID: 100, CommentID: "c-1", AuthorName: "Jane"}},
	}

	rec := doRequest(t, deps, http.MethodGet, "/api/v1/pages/acme/posts")

	require.Equal(t, http.StatusOK, rec.Code)
	var out postListResponse
	decodeBody(t, rec, &out)
	require.Len(t, out.Posts, 1)
	require.Len(t, out.Posts[0].Comments, 1)
	assert.Equal(t, "c-1", out.Posts[0].Comments[0].CommentID)
}

func TestListEmployees(t *testing.T) {
	t.Parallel()

	deps, _, pages := testDeps()
	pages.page = &model.Page{ID: 1, PageID: "acme"}
	deps.Users = &fakeUsers{
		users: []model.User{{ID: 300, PageID: 1, UserID: "jane", Name: "Jane Doe"}},
		total: 1,
	}

	rec := doRequest(t, deps, http.MethodGet, "/api/v1/pages/acme/employees")

	require.Equal(t, http.StatusOK, rec.Code)
	var out userListResponse
	decodeBody(t, rec, &out)
	require.Len(t, out.Employees, 1)
	assert.Equal(t, "jane", out.Employees[0].UserID)
}

func TestGetInsights(t *testing.T) {
	t.Parallel()

	deps, _, _ := testDeps()
	deps.Insights = &fakeInsights{stats: &insights.Stats{PageID: "acme", PostCount: 4}}

	rec := doRequest(t, deps, http.MethodGet, "/api/v1/pages/acme/insights")

	require.Equal(t, http.StatusOK, rec.Code)
	var out insights.Stats
	decodeBody(t, rec, &out)
	assert.Equal(t, int64(4), out.PostCount)
}

func TestGetInsightsUnknownPage(t *testing.T) {
	t.Parallel()

	deps, _, _ := testDeps()
	deps.Insights = &fakeInsights{err: postgres.ErrNotFound}

	rec := doRequest(t, deps, http.MethodGet, "/api/v1/pages/ghost/insights")

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSummaryUnavailable(t *testing.T) {
	t.Parallel()

	deps, _, pages := testDeps()
	pages.page = &model.Page{ID: 1, PageID: "acme"}

	rec := doRequest(t, deps, http.MethodGet, "/api/v1/pages/acme/summary")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, summary.ErrUnavailable.Error(), body["error"])
}

func TestGetSummarySuccess(t *testing.T) {
	t.Parallel()

	deps, _, pages := testDeps()
	pages.page = &model.Page{ID: 1, PageID: "acme", Name: "Acme Corp"}
	deps.Insights = &fakeInsights{stats: &insights.Stats{PageID: "acme"}}
	deps.Summarizer = &fakeSummarizer{available: true, text: "Acme Corp is a software company."}

	rec := doRequest(t, deps, http.MethodGet, "/api/v1/pages/acme/summary")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "acme", body["page_id"])
	assert.Equal(t, "Acme Corp is a software company.", body["summary"])
}

func TestGetSummaryGenerationFailure(t *testing.T) {
	t.Parallel()

	deps, _, pages := testDeps()
	pages.page = &model.Page{ID: 1, PageID: "acme"}
	deps.Insights = &fakeInsights{err: postgres.ErrNotFound}
	deps.Summarizer = &fakeSummarizer{available: true, err: errors.New("api overloaded")}

	rec := doRequest(t, deps, http.MethodGet, "/api/v1/pages/acme/summary")

	require.Equal(t, http.StatusBadGateway, rec.Code)
}
