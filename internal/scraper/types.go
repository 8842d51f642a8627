// Package scraper fetches public company pages and extracts page,
// post, comment and people data from the rendered document.
package scraper

import "time"

// PageInfo holds the page-level attributes extracted from the page root.
type PageInfo struct {
	PageID             string  `json:"page_id"`
	Name               string  `json:"name"`
	URL                string  `json:"url"`
	LinkedInInternalID *string `json:"linkedin_internal_id"`
	Description        *string `json:"description"`
	Website            *string `json:"website"`
	Industry           *string `json:"industry"`
	TotalFollowers     *int64  `json:"total_followers"`
	HeadCount          *int64  `json:"head_count"`
	Specialities       *string `json:"specialities"`
	ProfileImageURL    *string `json:"profile_image_url"`
}

// Post is one authored update, carrying its own comment window.
type Post struct {
	PostID       string    `json:"post_id"`
	Content      *string   `json:"content"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
	PostedAt     time.Time `json:"posted_at"`
	Comments     []Comment `json:"comments"`
}

// Comment is one comment scoped to a post.
type Comment struct {
	CommentID  string    `json:"comment_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Employee is one person from the page's people listing.
type Employee struct {
	UserID     string  `json:"linkedin_user_id"`
	Name       string  `json:"name"`
	Title      *string `json:"title"`
	ProfileURL string  `json:"profile_url"`
}

// CrawlResult is the aggregate outcome of one crawl. Exactly one of the
// two shapes applies: success (PageInfo set, Error false) or failure
// (Error true with ErrorMessage, empty collections).
type CrawlResult struct {
	Error        bool       `json:"error,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	NotFound     bool       `json:"-"`
	PageInfo     *PageInfo  `json:"page_info"`
	Posts        []Post     `json:"posts"`
	Employees    []Employee `json:"employees"`
	ScrapedAt    time.Time  `json:"scraped_at"`
}

// Failure builds the error-shaped result.
func Failure(message string, at time.Time) CrawlResult {
	return CrawlResult{
		Error:        true,
		ErrorMessage: message,
		Posts:        []Post{},
		Employees:    []Employee{},
		ScrapedAt:    at,
	}
}
