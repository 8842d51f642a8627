// Package ingest persists one crawl result as page, post, comment and
// user rows under create-or-update semantics.
package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pageinsights/internal/clock"
	"pageinsights/internal/model"
	"pageinsights/internal/scraper"
	"pageinsights/internal/telemetry"
)

// PageStore upserts pages by natural key.
type PageStore interface {
	Upsert(ctx context.Context, page model.Page) (*model.Page, error)
}

// PostStore upserts posts by natural key.
type PostStore interface {
	Upsert(ctx context.Context, post model.Post) (*model.Post, error)
}

// CommentStore upserts comments by natural key.
type CommentStore interface {
	Upsert(ctx context.Context, comment model.Comment) (*model.Comment, error)
}

// UserStore upserts users by compound natural key.
type UserStore interface {
	Upsert(ctx context.Context, user model.User) (*model.User, error)
}

// Result is the tagged outcome of one ingestion call. A partially
// successful batch (some posts or employees skipped) is still
// Success=true with reduced counts; Success=false means the page-level
// upsert itself failed or the input carried the crawl error shape.
type Result struct {
	Success            bool      `json:"success"`
	Error              string    `json:"error,omitempty"`
	PageID             *int64    `json:"page_id"`
	PagePageID         string    `json:"page_page_id,omitempty"`
	PostsProcessed     int       `json:"posts_processed"`
	EmployeesProcessed int       `json:"employees_processed"`
	ProcessedAt        time.Time `json:"processed_at"`
}

// Pipeline maps crawl output onto entity rows. Each record upsert
// commits independently; a failed item is skipped and logged while the
// rest of the batch proceeds.
type Pipeline struct {
	pages    PageStore
	posts    PostStore
	comments CommentStore
	users    UserStore
	clock    clock.Clock
	logger   *zap.Logger
}

// New constructs a Pipeline.
func New(
	pages PageStore,
	posts PostStore,
	comments CommentStore,
	users UserStore,
	clk clock.Clock,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		pages:    pages,
		posts:    posts,
		comments: comments,
		users:    users,
		clock:    clk,
		logger:   logger,
	}
}

func failure(message string, at time.Time) Result {
	return Result{Success: false, Error: message, ProcessedAt: at}
}

// Process ingests one crawl result. Running it twice with identical
// input yields the same rows: every write is keyed by natural key.
func (p *Pipeline) Process(ctx context.Context, res scraper.CrawlResult) Result {
	now := p.clock.Now()
	if res.Error {
		p.logger.Warn("crawl result carries error", zap.String("message", res.ErrorMessage))
		return failure(res.ErrorMessage, now)
	}
	if res.PageInfo == nil {
		return failure("page_info is required", now)
	}

	page, err := p.pages.Upsert(ctx, mapPage(*res.PageInfo))
	if err != nil {
		p.logger.Error("page upsert failed",
			zap.String("page_id", res.PageInfo.PageID),
			zap.Error(err),
		)
		telemetry.ObserveIngest("page", "error")
		return failure(err.Error(), now)
	}
	telemetry.ObserveIngest("page", "ok")

	postsProcessed := p.processPosts(ctx, res.Posts, page.ID, now)
	employeesProcessed := p.processEmployees(ctx, res.Employees, page.ID)

	p.logger.Info("ingestion complete",
		zap.String("page_id", page.PageID),
		zap.Int("posts_processed", postsProcessed),
		zap.Int("employees_processed", employeesProcessed),
	)

	return Result{
		Success:            true,
		PageID:             &page.ID,
		PagePageID:         page.PageID,
		PostsProcessed:     postsProcessed,
		EmployeesProcessed: employeesProcessed,
		ProcessedAt:        now,
	}
}

func (p *Pipeline) processPosts(ctx context.Context, posts []scraper.Post, pageID int64, now time.Time) int {
	processed := 0
	for _, post := range posts {
		row, err := p.posts.Upsert(ctx, mapPost(post, pageID, now))
		if err != nil {
			p.logger.Warn("post skipped", zap.String("post_id", post.PostID), zap.Error(err))
			telemetry.ObserveIngest("post", "skipped")
			continue
		}
		telemetry.ObserveIngest("post", "ok")
		processed++
		p.processComments(ctx, post.Comments, row.ID, now)
	}
	return processed
}

func (p *Pipeline) processComments(ctx context.Context, comments []scraper.Comment, postID int64, now time.Time) {
	for _, comment := range comments {
		if _, err := p.comments.Upsert(ctx, mapComment(comment, postID, now)); err != nil {
			p.logger.Warn("comment skipped", zap.String("comment_id", comment.CommentID), zap.Error(err))
			telemetry.ObserveIngest("comment", "skipped")
			continue
		}
		telemetry.ObserveIngest("comment", "ok")
	}
}

func (p *Pipeline) processEmployees(ctx context.Context, employees []scraper.Employee, pageID int64) int {
	processed := 0
	for _, emp := range employees {
		if _, err := p.users.Upsert(ctx, mapEmployee(emp, pageID)); err != nil {
			p.logger.Warn("employee skipped", zap.String("linkedin_user_id", emp.UserID), zap.Error(err))
			telemetry.ObserveIngest("user", "skipped")
			continue
		}
		telemetry.ObserveIngest("user", "ok")
		processed++
	}
	return processed
}

// Field mapping is explicit and enumerated per entity; unknown input
// fields cannot leak into rows by construction.

func mapPage(info scraper.PageInfo) model.Page {
	return model.Page{
		PageID:             info.PageID,
		Name:               info.Name,
		URL:                info.URL,
		LinkedInInternalID: info.LinkedInInternalID,
		Description:        info.Description,
		Website:            info.Website,
		Industry:           info.Industry,
		TotalFollowers:     info.TotalFollowers,
		HeadCount:          info.HeadCount,
		Specialities:       info.Specialities,
		ProfileImageURL:    info.ProfileImageURL,
	}
}

func mapPost(post scraper.Post, pageID int64, now time.Time) model.Post {
	postedAt := post.PostedAt
	if postedAt.IsZero() {
		postedAt = now
	}
	return model.Post{
		PostID:       post.PostID,
		PageID:       pageID,
		Content:      post.Content,
		LikeCount:    post.LikeCount,
		CommentCount: post.CommentCount,
		PostedAt:     postedAt,
	}
}

func mapComment(comment scraper.Comment, postID int64, now time.Time) model.Comment {
	createdAt := comment.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return model.Comment{
		CommentID:  comment.CommentID,
		PostID:     postID,
		AuthorName: comment.AuthorName,
		Content:    comment.Content,
		CreatedAt:  createdAt,
	}
}

func mapEmployee(emp scraper.Employee, pageID int64) model.User {
	return model.User{
		UserID:     emp.UserID,
		PageID:     pageID,
		Name:       emp.Name,
		Title:      emp.Title,
		ProfileURL: emp.ProfileURL,
	}
}
