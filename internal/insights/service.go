// Package insights derives engagement statistics from stored page data.
package insights

import (
	"context"
	"fmt"

	"pageinsights/internal/model"
)

// PageStore resolves a page by its external id.
type PageStore interface {
	GetByPageID(ctx context.Context, pageID string) (*model.Page, error)
}

// EngagementStore aggregates post engagement per page.
type EngagementStore interface {
	EngagementByPage(ctx context.Context, pageID int64) (posts, likes, comments int64, err error)
}

// CommentCounter counts stored comment rows per page.
type CommentCounter interface {
	CountByPage(ctx context.Context, pageID int64) (int64, error)
}

// UserCounter counts stored people per page.
type UserCounter interface {
	CountByPage(ctx context.Context, pageID int64) (int64, error)
}

// Stats is the engagement snapshot for one page. Averages are zero for
// a page with no posts; EngagementRate is nil when the page has no
// follower count to divide by.
type Stats struct {
	PageID             string   `json:"page_id"`
	Name               string   `json:"name"`
	TotalFollowers     *int64   `json:"total_followers"`
	PostCount          int64    `json:"post_count"`
	TotalLikes         int64    `json:"total_likes"`
	TotalComments      int64    `json:"total_comments"`
	StoredComments     int64    `json:"stored_comments"`
	EmployeeCount      int64    `json:"employee_count"`
	AvgLikesPerPost    float64  `json:"avg_likes_per_post"`
	AvgCommentsPerPost float64  `json:"avg_comments_per_post"`
	EngagementRate     *float64 `json:"engagement_rate"`
}

// Service computes Stats from the persistence layer.
type Service struct {
	pages    PageStore
	posts    EngagementStore
	comments CommentCounter
	users    UserCounter
}

// NewService constructs a Service.
func NewService(pages PageStore, posts EngagementStore, comments CommentCounter, users UserCounter) *Service {
	return &Service{pages: pages, posts: posts, comments: comments, users: users}
}

// PageStats computes the engagement snapshot for a page by external id.
// Returns the store's not-found error unchanged when the page is
// unknown.
func (s *Service) PageStats(ctx context.Context, pageID string) (*Stats, error) {
	page, err := s.pages.GetByPageID(ctx, pageID)
	if err != nil {
		return nil, err
	}

	postCount, likes, comments, err := s.posts.EngagementByPage(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("page stats for %q: %w", pageID, err)
	}
	storedComments, err := s.comments.CountByPage(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("page stats for %q: %w", pageID, err)
	}
	employees, err := s.users.CountByPage(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("page stats for %q: %w", pageID, err)
	}

	stats := &Stats{
		PageID:         page.PageID,
		Name:           page.Name,
		TotalFollowers: page.TotalFollowers,
		PostCount:      postCount,
		TotalLikes:     likes,
		TotalComments:  comments,
		StoredComments: storedComments,
		EmployeeCount:  employees,
	}
	if postCount > 0 {
		stats.AvgLikesPerPost = float64(likes) / float64(postCount)
		stats.AvgCommentsPerPost = float64(comments) / float64(postCount)
	}
	if page.TotalFollowers != nil && *page.TotalFollowers > 0 && postCount > 0 {
		rate := float64(likes+comments) / float64(postCount) / float64(*page.TotalFollowers)
		stats.EngagementRate = &rate
	}
	return stats, nil
}
