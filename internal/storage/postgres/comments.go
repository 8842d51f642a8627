package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pageinsights/internal/model"
)

// CommentRepository persists post comments keyed by their external
// comment id.
type CommentRepository struct {
	db Querier
}

// NewCommentRepository constructs a CommentRepository on the given pool.
func NewCommentRepository(db Querier) *CommentRepository {
	return &CommentRepository{db: db}
}

const commentColumns = `id, comment_id, post_id, author_name, content, created_at, recorded_at, updated_at`

func scanComment(row pgx.Row) (*model.Comment, error) {
	var c model.Comment
	err := row.Scan(
		&c.ID,
		&c.CommentID,
		&c.PostID,
		&c.AuthorName,
		&c.Content,
		&c.CreatedAt,
		&c.RecordedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetByCommentID looks a comment up by its natural key.
func (r *CommentRepository) GetByCommentID(ctx context.Context, commentID string) (*model.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE comment_id = $1`
	comment, err := scanComment(r.db.QueryRow(ctx, query, commentID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get comment %q: %w", commentID, err)
	}
	return comment, nil
}

// Create inserts a new comment row under its parent post.
func (r *CommentRepository) Create(ctx context.Context, comment model.Comment) (*model.Comment, error) {
	query := `
		INSERT INTO comments (comment_id, post_id, author_name, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + commentColumns
	return scanComment(r.db.QueryRow(ctx, query,
		comment.CommentID,
		comment.PostID,
		comment.AuthorName,
		comment.Content,
		comment.CreatedAt,
	))
}

func (r *CommentRepository) update(ctx context.Context, comment model.Comment) (*model.Comment, error) {
	query := `
		UPDATE comments SET
			author_name = COALESCE(NULLIF($2, ''), author_name),
			content = COALESCE(NULLIF($3, ''), content),
			created_at = $4,
			updated_at = NOW()
		WHERE comment_id = $1
		RETURNING ` + commentColumns
	return scanComment(r.db.QueryRow(ctx, query,
		comment.CommentID,
		comment.AuthorName,
		comment.Content,
		comment.CreatedAt,
	))
}

// Upsert creates or merges a comment by natural key, retrying once on
// a unique-constraint conflict.
func (r *CommentRepository) Upsert(ctx context.Context, comment model.Comment) (*model.Comment, error) {
	if comment.CommentID == "" {
		return nil, fmt.Errorf("comment_id is required")
	}
	row, err := r.upsertOnce(ctx, comment)
	if isUniqueViolation(err) {
		row, err = r.upsertOnce(ctx, comment)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert comment %q: %w", comment.CommentID, err)
	}
	return row, nil
}

func (r *CommentRepository) upsertOnce(ctx context.Context, comment model.Comment) (*model.Comment, error) {
	_, err := r.GetByCommentID(ctx, comment.CommentID)
	switch {
	case errors.Is(err, ErrNotFound):
		return r.Create(ctx, comment)
	case err != nil:
		return nil, err
	}
	return r.update(ctx, comment)
}

// ListByPost returns the comments of a post in creation order.
func (r *CommentRepository) ListByPost(ctx context.Context, postID int64, limit, offset int) ([]model.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE post_id = $1
		ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, postID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment row: %w", err)
		}
		comments = append(comments, *comment)
	}
	return comments, rows.Err()
}

// CountByPage returns the number of stored comments across all posts of
// a page.
func (r *CommentRepository) CountByPage(ctx context.Context, pageID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM comments c JOIN posts p ON c.post_id = p.id WHERE p.page_id = $1`
	var count int64
	if err := r.db.QueryRow(ctx, query, pageID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return count, nil
}
