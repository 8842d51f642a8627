package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pageinsights/internal/model"
)

// PostRepository persists page posts keyed by their external post id.
type PostRepository struct {
	db Querier
}

// NewPostRepository constructs a PostRepository on the given pool.
func NewPostRepository(db Querier) *PostRepository {
	return &PostRepository{db: db}
}

const postColumns = `id, post_id, page_id, content, like_count, comment_count, posted_at, created_at, updated_at`

func scanPost(row pgx.Row) (*model.Post, error) {
	var p model.Post
	err := row.Scan(
		&p.ID,
		&p.PostID,
		&p.PageID,
		&p.Content,
		&p.LikeCount,
		&p.CommentCount,
		&p.PostedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetByPostID looks a post up by its natural key.
func (r *PostRepository) GetByPostID(ctx context.Context, postID string) (*model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE post_id = $1`
	post, err := scanPost(r.db.QueryRow(ctx, query, postID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get post %q: %w", postID, err)
	}
	return post, nil
}

// Create inserts a new post row under its parent page.
func (r *PostRepository) Create(ctx context.Context, post model.Post) (*model.Post, error) {
	query := `
		INSERT INTO posts (post_id, page_id, content, like_count, comment_count, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + postColumns
	return scanPost(r.db.QueryRow(ctx, query,
		post.PostID,
		post.PageID,
		post.Content,
		post.LikeCount,
		post.CommentCount,
		post.PostedAt,
	))
}

func (r *PostRepository) update(ctx context.Context, post model.Post) (*model.Post, error) {
	query := `
		UPDATE posts SET
			content = COALESCE($2, content),
			like_count = $3,
			comment_count = $4,
			posted_at = $5,
			updated_at = NOW()
		WHERE post_id = $1
		RETURNING ` + postColumns
	return scanPost(r.db.QueryRow(ctx, query,
		post.PostID,
		post.Content,
		post.LikeCount,
		post.CommentCount,
		post.PostedAt,
	))
}

// Upsert creates or merges a post by natural key, retrying once on a
// unique-constraint conflict.
func (r *PostRepository) Upsert(ctx context.Context, post model.Post) (*model.Post, error) {
	if post.PostID == "" {
		return nil, fmt.Errorf("post_id is required")
	}
	row, err := r.upsertOnce(ctx, post)
	if isUniqueViolation(err) {
		row, err = r.upsertOnce(ctx, post)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert post %q: %w", post.PostID, err)
	}
	return row, nil
}

func (r *PostRepository) upsertOnce(ctx context.Context, post model.Post) (*model.Post, error) {
	_, err := r.GetByPostID(ctx, post.PostID)
	switch {
	case errors.Is(err, ErrNotFound):
		return r.Create(ctx, post)
	case err != nil:
		return nil, err
	}
	return r.update(ctx, post)
}

// ListByPage returns a post window for a page, newest first.
func (r *PostRepository) ListByPage(ctx context.Context, pageID int64, limit, offset int) ([]model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE page_id = $1
		ORDER BY posted_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, pageID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post row: %w", err)
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

// EngagementByPage aggregates stored post engagement for a page.
func (r *PostRepository) EngagementByPage(ctx context.Context, pageID int64) (posts, likes, comments int64, err error) {
	query := `SELECT COUNT(*), COALESCE(SUM(like_count), 0), COALESCE(SUM(comment_count), 0)
		FROM posts WHERE page_id = $1`
	if err = r.db.QueryRow(ctx, query, pageID).Scan(&posts, &likes, &comments); err != nil {
		return 0, 0, 0, fmt.Errorf("aggregate post engagement: %w", err)
	}
	return posts, likes, comments, nil
}

// CountByPage returns the number of posts stored for a page.
func (r *PostRepository) CountByPage(ctx context.Context, pageID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE page_id = $1`, pageID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}
