// Package model defines the persistent entity records shared across subsystems.
package model

import "time"

// Page is a company page row. PageID is the natural key (the trailing
// segment of the source URL); ID is the store surrogate.
type Page struct {
	ID                 int64      `json:"id"`
	PageID             string     `json:"page_id"`
	Name               string     `json:"name"`
	URL                string     `json:"url"`
	LinkedInInternalID *string    `json:"linkedin_internal_id"`
	Description        *string    `json:"description"`
	Website            *string    `json:"website"`
	Industry           *string    `json:"industry"`
	TotalFollowers     *int64     `json:"total_followers"`
	HeadCount          *int64     `json:"head_count"`
	Specialities       *string    `json:"specialities"`
	ProfileImageURL    *string    `json:"profile_image_url"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at"`
}

// Post is a page post row, natural key PostID, owned by one Page.
type Post struct {
	ID           int64      `json:"id"`
	PostID       string     `json:"post_id"`
	PageID       int64      `json:"page_id"`
	Content      *string    `json:"content"`
	LikeCount    int64      `json:"like_count"`
	CommentCount int64      `json:"comment_count"`
	PostedAt     time.Time  `json:"posted_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

// Comment is a post comment row, natural key CommentID, owned by one Post.
type Comment struct {
	ID         int64      `json:"id"`
	CommentID  string     `json:"comment_id"`
	PostID     int64      `json:"post_id"`
	AuthorName string     `json:"author_name"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
	RecordedAt time.Time  `json:"recorded_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

// User is a page-associated person. The natural key is the
// (UserID, PageID) pair: the same person may appear on several pages.
type User struct {
	ID         int64      `json:"id"`
	UserID     string     `json:"linkedin_user_id"`
	PageID     int64      `json:"page_id"`
	Name       string     `json:"name"`
	Title      *string    `json:"title"`
	ProfileURL string     `json:"profile_url"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}
