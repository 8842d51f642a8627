package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"pageinsights/internal/model"
)

var postCols = []string{
	"id", "post_id", "page_id", "content", "like_count", "comment_count",
	"posted_at", "created_at", "updated_at",
}

func postRow(id int64, postID string, pageID int64, likes int64) *pgxmock.Rows {
	now := time.Unix(1700000000, 0).UTC()
	return pgxmock.NewRows(postCols).AddRow(
		id, postID, pageID, strPtr("post body"), likes, int64(2),
		now, now, (*time.Time)(nil),
	)
}

func TestPostUpsertCreatesWhenMissing(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM posts WHERE post_id").
		WithArgs("post-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO posts").
		WithArgs(anyArgs(6)...).
		WillReturnRows(postRow(7, "post-1", 1, 5))

	post, err := repo.Upsert(context.Background(), model.Post{
		PostID:    "post-1",
		PageID:    1,
		Content:   strPtr("post body"),
		LikeCount: 5,
		PostedAt:  time.Unix(1700000000, 0).UTC(),
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), post.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostUpsertUpdatesEngagement(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM posts WHERE post_id").
		WithArgs("post-1").
		WillReturnRows(postRow(7, "post-1", 1, 5))
	mock.ExpectQuery("UPDATE posts SET").
		WithArgs(anyArgs(5)...).
		WillReturnRows(postRow(7, "post-1", 1, 12))

	post, err := repo.Upsert(context.Background(), model.Post{
		PostID:    "post-1",
		PageID:    1,
		LikeCount: 12,
		PostedAt:  time.Unix(1700000000, 0).UTC(),
	})
	require.NoError(t, err)
	require.Equal(t, int64(12), post.LikeCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostUpsertRequiresPostID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostRepository(mock)
	_, err = repo.Upsert(context.Background(), model.Post{PageID: 1})
	require.ErrorContains(t, err, "post_id is required")
}

func TestListByPageReturnsWindow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM posts WHERE page_id").
		WithArgs(int64(1), 10, 0).
		WillReturnRows(postRow(7, "post-1", 1, 5))

	posts, err := repo.ListByPage(context.Background(), 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "post-1", posts[0].PostID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEngagementByPageAggregates(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostRepository(mock)

	mock.ExpectQuery("SELECT COUNT(.+) FROM posts WHERE page_id").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"count", "likes", "comments"}).
			AddRow(int64(4), int64(120), int64(33)))

	posts, likes, comments, err := repo.EngagementByPage(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(4), posts)
	require.Equal(t, int64(120), likes)
	require.Equal(t, int64(33), comments)
	require.NoError(t, mock.ExpectationsWereMet())
}
