package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"pageinsights/internal/clock"
)

// CrawlerConfig bounds the extraction windows of one crawl.
type CrawlerConfig struct {
	BaseURL      string
	PostLimit    int
	CommentLimit int
}

func (c *CrawlerConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://www.linkedin.com"
	}
	if c.PostLimit <= 0 {
		c.PostLimit = 20
	}
	if c.CommentLimit <= 0 {
		c.CommentLimit = 10
	}
}

// SnapshotSink archives the rendered HTML of a crawl for post-hoc
// diagnosis of extraction misses. Implementations are best-effort.
type SnapshotSink interface {
	SaveSnapshot(ctx context.Context, pageID string, html []byte) (string, error)
}

// PageCrawler orchestrates one crawl: navigate to the page root,
// extract page attributes, a bounded window of posts with their
// comments, then the people listing. Each step is fault-isolated.
type PageCrawler struct {
	loader    PageLoader
	snapshots SnapshotSink
	clock     clock.Clock
	cfg       CrawlerConfig
	logger    *zap.Logger
}

// NewPageCrawler constructs a crawler. snapshots may be nil.
func NewPageCrawler(
	loader PageLoader,
	snapshots SnapshotSink,
	clk clock.Clock,
	cfg CrawlerConfig,
	logger *zap.Logger,
) *PageCrawler {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageCrawler{
		loader:    loader,
		snapshots: snapshots,
		clock:     clk,
		cfg:       cfg,
		logger:    logger,
	}
}

// Crawl fetches the page identified by pageID and returns the tagged
// aggregate result. It never returns an error: terminal navigation
// failures and panics convert to the failure shape.
func (c *PageCrawler) Crawl(ctx context.Context, pageID string) (result CrawlResult) {
	now := c.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("crawl panicked", zap.String("page_id", pageID), zap.Any("panic", r))
			result = Failure(fmt.Sprintf("crawl failed: %v", r), now)
		}
	}()

	pageURL := fmt.Sprintf("%s/company/%s", c.cfg.BaseURL, pageID)
	c.logger.Info("crawling page", zap.String("page_id", pageID), zap.String("url", pageURL))

	html, err := c.loader.Navigate(ctx, pageURL)
	if err != nil {
		failed := Failure(err.Error(), now)
		failed.NotFound = IsNotFound(err)
		return failed
	}
	c.archiveSnapshot(ctx, pageID, html)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Failure(fmt.Sprintf("parse document: %v", err), now)
	}
	root := doc.Selection

	info := c.extractPageInfo(root, pageID, pageURL)
	posts := c.extractPosts(root, now)
	employees := c.extractEmployees(ctx, pageID)

	return CrawlResult{
		PageInfo:  &info,
		Posts:     posts,
		Employees: employees,
		ScrapedAt: now,
	}
}

func (c *PageCrawler) archiveSnapshot(ctx context.Context, pageID string, html string) {
	if c.snapshots == nil {
		return
	}
	uri, err := c.snapshots.SaveSnapshot(ctx, pageID, []byte(html))
	if err != nil {
		c.logger.Warn("snapshot archive failed", zap.String("page_id", pageID), zap.Error(err))
		return
	}
	c.logger.Debug("archived snapshot", zap.String("page_id", pageID), zap.String("uri", uri))
}

func (c *PageCrawler) extractPageInfo(root *goquery.Selection, pageID, pageURL string) PageInfo {
	info := PageInfo{
		PageID: pageID,
		Name:   "Unknown",
		URL:    pageURL,
	}
	if name, ok := ExtractFirst(root, pageNameStrategies); ok {
		info.Name = name
	} else {
		c.logger.Warn("page name missing", zap.String("page_id", pageID))
	}
	if urn, ok := ExtractFirst(root, pageURNStrategies); ok {
		if id, ok := ParseEntityURN(urn); ok {
			info.LinkedInInternalID = &id
		}
	}
	info.ProfileImageURL = optional(root, pageImageStrategies)
	info.Description = optional(root, pageDescriptionStrategies)
	info.Website = optional(root, pageWebsiteStrategies)
	info.Industry = optional(root, pageIndustryStrategies)
	if text, ok := ExtractFirst(root, pageFollowersStrategies); ok {
		info.TotalFollowers = ParseCount(text)
	}
	if text, ok := ExtractFirst(root, pageHeadCountStrategies); ok {
		info.HeadCount = ParseCount(text)
	}
	info.Specialities = optional(root, pageSpecialitiesStrategies)
	return info
}

func (c *PageCrawler) extractPosts(root *goquery.Selection, now time.Time) []Post {
	elements := c.findPostElements(root)
	posts := make([]Post, 0, len(elements))
	for i, el := range elements {
		if i >= c.cfg.PostLimit {
			break
		}
		post := c.extractPost(el, i, now)
		post.Comments = c.extractComments(el, now)
		posts = append(posts, post)
	}
	return posts
}

func (c *PageCrawler) findPostElements(root *goquery.Selection) []*goquery.Selection {
	for _, selector := range postContainerSelectors {
		if elements := collect(root.Find(selector)); len(elements) > 0 {
			return elements
		}
	}
	// Secondary in-document query before giving up.
	return collect(root.Find(postFallbackSelector))
}

func (c *PageCrawler) extractPost(el *goquery.Selection, index int, now time.Time) Post {
	postID, ok := el.Attr("data-urn")
	if !ok || strings.TrimSpace(postID) == "" {
		postID = fmt.Sprintf("post_%d_%d", index, now.Unix())
	}
	post := Post{
		PostID:   strings.TrimSpace(postID),
		Content:  optional(el, postContentStrategies),
		PostedAt: extractElementTime(el, now),
	}
	if text, ok := ExtractFirst(el, postLikeStrategies); ok {
		if n := ParseCount(text); n != nil {
			post.LikeCount = *n
		}
	}
	if text, ok := ExtractFirst(el, postCommentCountStrategies); ok {
		if n := ParseCount(text); n != nil {
			post.CommentCount = *n
		}
	}
	return post
}

func (c *PageCrawler) extractComments(postEl *goquery.Selection, now time.Time) []Comment {
	elements := collect(postEl.Find(commentContainerSelector))
	comments := make([]Comment, 0, len(elements))
	for i, el := range elements {
		if len(comments) >= c.cfg.CommentLimit {
			break
		}
		author, hasAuthor := ExtractFirst(el, commentAuthorStrategies)
		content, hasContent := ExtractFirst(el, commentContentStrategies)
		if !hasAuthor && !hasContent {
			continue
		}
		commentID, ok := el.Attr("data-comment-id")
		if !ok || strings.TrimSpace(commentID) == "" {
			commentID = fmt.Sprintf("comment_%d_%d", i, now.Unix())
		}
		comments = append(comments, Comment{
			CommentID:  strings.TrimSpace(commentID),
			AuthorName: author,
			Content:    content,
			CreatedAt:  extractElementTime(el, now),
		})
	}
	return comments
}

var profilePathRe = regexp.MustCompile(`/in/([^/?#]+)`)

func (c *PageCrawler) extractEmployees(ctx context.Context, pageID string) []Employee {
	peopleURL := fmt.Sprintf("%s/company/%s/people/", c.cfg.BaseURL, pageID)
	html, err := c.loader.Navigate(ctx, peopleURL)
	if err != nil {
		c.logger.Warn("people listing unavailable", zap.String("page_id", pageID), zap.Error(err))
		return []Employee{}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		c.logger.Warn("people listing parse failed", zap.String("page_id", pageID), zap.Error(err))
		return []Employee{}
	}

	var elements []*goquery.Selection
	for _, selector := range employeeContainerSelectors {
		if elements = collect(doc.Find(selector)); len(elements) > 0 {
			break
		}
	}

	employees := make([]Employee, 0, len(elements))
	for _, el := range elements {
		name, ok := ExtractFirst(el, employeeNameStrategies)
		if !ok {
			continue
		}
		emp := Employee{
			Name:  name,
			Title: optional(el, employeeTitleStrategies),
		}
		if href, ok := el.Find(employeeProfileLinkSelector).First().Attr("href"); ok {
			emp.ProfileURL = resolveURL(c.cfg.BaseURL, href)
		}
		if m := profilePathRe.FindStringSubmatch(emp.ProfileURL); m != nil {
			emp.UserID = m[1]
		} else {
			emp.UserID = fmt.Sprintf("user_%d", len(employees))
		}
		employees = append(employees, emp)
	}
	return employees
}

func extractElementTime(el *goquery.Selection, now time.Time) time.Time {
	timeEl := el.Find(postTimeSelector).First()
	if timeEl.Length() == 0 {
		return now
	}
	datetime, _ := timeEl.Attr("datetime")
	return ParseTimestamp(datetime, strings.TrimSpace(timeEl.Text()), now)
}

func optional(scope *goquery.Selection, strategies []Strategy) *string {
	if value, ok := ExtractFirst(scope, strategies); ok {
		return &value
	}
	return nil
}

func collect(sel *goquery.Selection) []*goquery.Selection {
	out := make([]*goquery.Selection, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, s)
	})
	return out
}

func resolveURL(base, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return ref.String()
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
