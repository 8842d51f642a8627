package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

// fakeLoader serves canned HTML per URL and records navigation order.
type fakeLoader struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeLoader) Navigate(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	html, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("unexpected url %s", url)
	}
	return html, nil
}

type fakeSink struct {
	pageIDs []string
	bodies  [][]byte
	err     error
}

func (f *fakeSink) SaveSnapshot(_ context.Context, pageID string, html []byte) (string, error) {
	f.pageIDs = append(f.pageIDs, pageID)
	f.bodies = append(f.bodies, html)
	if f.err != nil {
		return "", f.err
	}
	return "file:///tmp/" + pageID, nil
}

const companyHTML = `<html><body>
	<h1 data-test-id="company-name" data-entity-urn="urn:li:fs_normalized_company:987654">Acme Corp</h1>
	<div class="org-top-card-primary-content__logo"><img src="https://cdn.example.com/logo.png"></div>
	<p data-test-id="about-us-description">We make everything.</p>
	<a data-test-id="website" href="https://acme.example.com">website</a>
	<span data-test-id="industry">Software Development</span>
	<span data-test-id="followers-count">10.5K followers</span>
	<span data-test-id="headcount">201-500 employees</span>
	<span data-test-id="specialities">Anvils, Rockets</span>

	<div class="feed-shared-update-v2" data-urn="urn:li:activity:111">
		<div class="feed-shared-text">First post body</div>
		<time datetime="2024-05-30T08:15:00Z">May 30</time>
		<span class="social-actions__reactions-count">1.2K</span>
		<span class="social-actions__comments-count">34</span>
		<div class="comments-comment-item" data-comment-id="cmt-1">
			<span class="comment-author">Jane Doe</span>
			<span class="comment-content">Great news!</span>
		</div>
		<div class="comments-comment-item" data-comment-id="cmt-2">
			<span class="comment-author">Joe Bloggs</span>
			<span class="comment-content">Congrats.</span>
		</div>
	</div>
	<div class="feed-shared-update-v2">
		<div class="feed-shared-text">Second post, no urn</div>
	</div>
	<div class="feed-shared-update-v2" data-urn="urn:li:activity:333">
		<div class="feed-shared-text">Third post body</div>
	</div>
</body></html>`

const peopleHTML = `<html><body>
	<div class="org-people-profile-card">
		<div class="org-people-profile-card__profile-title">Jane Doe</div>
		<div class="org-people-profile-card__profile-info">Staff Engineer</div>
		<a href="/in/jane-doe?miniProfile=1">profile</a>
	</div>
	<div class="org-people-profile-card">
		<div class="org-people-profile-card__profile-title">Joe Bloggs</div>
		<a href="https://www.linkedin.com/in/joe-bloggs/">profile</a>
	</div>
	<div class="org-people-profile-card">
		<a href="/in/nameless">no name, skipped</a>
	</div>
</body></html>`

const (
	companyURL = "https://www.linkedin.com/company/acme"
	peopleURL  = "https://www.linkedin.com/company/acme/people/"
)

func newTestCrawler(loader PageLoader, sink SnapshotSink, cfg CrawlerConfig, now time.Time) *PageCrawler {
	return NewPageCrawler(loader, sink, fixedClock{at: now}, cfg, nil)
}

func TestCrawlExtractsFullPage(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	loader := &fakeLoader{pages: map[string]string{companyURL: companyHTML, peopleURL: peopleHTML}}
	c := newTestCrawler(loader, nil, CrawlerConfig{}, now)

	res := c.Crawl(context.Background(), "acme")

	require.False(t, res.Error)
	require.NotNil(t, res.PageInfo)
	assert.Equal(t, "acme", res.PageInfo.PageID)
	assert.Equal(t, "Acme Corp", res.PageInfo.Name)
	assert.Equal(t, companyURL, res.PageInfo.URL)
	require.NotNil(t, res.PageInfo.LinkedInInternalID)
	assert.Equal(t, "987654", *res.PageInfo.LinkedInInternalID)
	require.NotNil(t, res.PageInfo.Description)
	assert.Equal(t, "We make everything.", *res.PageInfo.Description)
	require.NotNil(t, res.PageInfo.Website)
	assert.Equal(t, "https://acme.example.com", *res.PageInfo.Website)
	require.NotNil(t, res.PageInfo.TotalFollowers)
	assert.Equal(t, int64(10500), *res.PageInfo.TotalFollowers)
	require.NotNil(t, res.PageInfo.HeadCount)
	require.NotNil(t, res.PageInfo.ProfileImageURL)
	assert.Equal(t, "https://cdn.example.com/logo.png", *res.PageInfo.ProfileImageURL)

	require.Len(t, res.Posts, 3)
	first := res.Posts[0]
	assert.Equal(t, "urn:li:activity:111", first.PostID)
	require.NotNil(t, first.Content)
	assert.Equal(t, "First post body", *first.Content)
	assert.Equal(t, int64(1200), first.LikeCount)
	assert.Equal(t, int64(34), first.CommentCount)
	assert.Equal(t, time.Date(2024, 5, 30, 8, 15, 0, 0, time.UTC), first.PostedAt)
	require.Len(t, first.Comments, 2)
	assert.Equal(t, "cmt-1", first.Comments[0].CommentID)
	assert.Equal(t, "Jane Doe", first.Comments[0].AuthorName)
	assert.Equal(t, "Great news!", first.Comments[0].Content)

	// A post without a data-urn gets a positional synthetic id.
	assert.Equal(t, fmt.Sprintf("post_1_%d", now.Unix()), res.Posts[1].PostID)
	assert.Equal(t, now, res.Posts[1].PostedAt)

	require.Len(t, res.Employees, 2)
	assert.Equal(t, "jane-doe", res.Employees[0].UserID)
	assert.Equal(t, "Jane Doe", res.Employees[0].Name)
	require.NotNil(t, res.Employees[0].Title)
	assert.Equal(t, "Staff Engineer", *res.Employees[0].Title)
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe?miniProfile=1", res.Employees[0].ProfileURL)
	assert.Equal(t, "joe-bloggs", res.Employees[1].UserID)
	assert.Nil(t, res.Employees[1].Title)

	assert.Equal(t, now, res.ScrapedAt)
	assert.Equal(t, []string{companyURL, peopleURL}, loader.calls)
}

func TestCrawlBoundsPostAndCommentWindows(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	loader := &fakeLoader{pages: map[string]string{companyURL: companyHTML, peopleURL: peopleHTML}}
	c := newTestCrawler(loader, nil, CrawlerConfig{PostLimit: 1, CommentLimit: 1}, now)

	res := c.Crawl(context.Background(), "acme")

	require.False(t, res.Error)
	require.Len(t, res.Posts, 1)
	require.Len(t, res.Posts[0].Comments, 1)
	assert.Equal(t, "cmt-1", res.Posts[0].Comments[0].CommentID)
}

func TestCrawlMissingNameFallsBackToUnknown(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	loader := &fakeLoader{pages: map[string]string{
		companyURL: `<html><body><p>bare page</p></body></html>`,
		peopleURL:  `<html><body></body></html>`,
	}}
	c := newTestCrawler(loader, nil, CrawlerConfig{}, now)

	res := c.Crawl(context.Background(), "acme")

	require.False(t, res.Error)
	assert.Equal(t, "Unknown", res.PageInfo.Name)
	assert.Empty(t, res.Posts)
	assert.Empty(t, res.Employees)
}

func TestCrawlPeopleFailureYieldsEmptyEmployees(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	loader := &fakeLoader{
		pages: map[string]string{companyURL: companyHTML},
		errs:  map[string]error{peopleURL: fmt.Errorf("%w after 3 attempts: boom", ErrExhaustedRetries)},
	}
	c := newTestCrawler(loader, nil, CrawlerConfig{}, now)

	res := c.Crawl(context.Background(), "acme")

	require.False(t, res.Error)
	require.NotNil(t, res.PageInfo)
	assert.Len(t, res.Posts, 3)
	assert.NotNil(t, res.Employees)
	assert.Empty(t, res.Employees)
}

func TestCrawlNavigationFailure(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		loader := &fakeLoader{errs: map[string]error{
			companyURL: fmt.Errorf("%w: %s returned 404", ErrNotFound, companyURL),
		}}
		c := newTestCrawler(loader, nil, CrawlerConfig{}, now)

		res := c.Crawl(context.Background(), "acme")

		require.True(t, res.Error)
		assert.True(t, res.NotFound)
		assert.Contains(t, res.ErrorMessage, "page not found")
		assert.Nil(t, res.PageInfo)
		assert.Empty(t, res.Posts)
		assert.Equal(t, now, res.ScrapedAt)
	})

	t.Run("exhausted retries", func(t *testing.T) {
		t.Parallel()
		loader := &fakeLoader{errs: map[string]error{
			companyURL: fmt.Errorf("%w after 3 attempts: timeout", ErrExhaustedRetries),
		}}
		c := newTestCrawler(loader, nil, CrawlerConfig{}, now)

		res := c.Crawl(context.Background(), "acme")

		require.True(t, res.Error)
		assert.False(t, res.NotFound)
		assert.Contains(t, res.ErrorMessage, "retry attempts exhausted")
	})
}

func TestCrawlArchivesSnapshot(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	loader := &fakeLoader{pages: map[string]string{companyURL: companyHTML, peopleURL: peopleHTML}}
	sink := &fakeSink{}
	c := newTestCrawler(loader, sink, CrawlerConfig{}, now)

	res := c.Crawl(context.Background(), "acme")

	require.False(t, res.Error)
	require.Len(t, sink.pageIDs, 1)
	assert.Equal(t, "acme", sink.pageIDs[0])
	assert.Contains(t, string(sink.bodies[0]), "Acme Corp")
}

func TestCrawlSnapshotFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	loader := &fakeLoader{pages: map[string]string{companyURL: companyHTML, peopleURL: peopleHTML}}
	sink := &fakeSink{err: errors.New("bucket unavailable")}
	c := newTestCrawler(loader, sink, CrawlerConfig{}, now)

	res := c.Crawl(context.Background(), "acme")

	require.False(t, res.Error)
	require.NotNil(t, res.PageInfo)
}

func TestContainsNotFoundMarker(t *testing.T) {
	t.Parallel()

	assert.True(t, containsNotFoundMarker("<html>This page doesn't exist</html>"))
	assert.True(t, containsNotFoundMarker("<html>Page Not Found</html>"))
	assert.False(t, containsNotFoundMarker("<html>Acme Corp</html>"))
}

func TestSleepContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sleepContext(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)

	require.NoError(t, sleepContext(context.Background(), time.Millisecond))
}

func TestResolveURL(t *testing.T) {
	t.Parallel()

	base := "https://www.linkedin.com"
	assert.Equal(t, "https://www.linkedin.com/in/jane", resolveURL(base, "/in/jane"))
	assert.Equal(t, "https://other.example.com/in/joe", resolveURL(base, "https://other.example.com/in/joe"))
	assert.True(t, strings.HasPrefix(resolveURL(base, "in/relative"), "https://www.linkedin.com/"))
}
