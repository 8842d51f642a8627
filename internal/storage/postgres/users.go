package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pageinsights/internal/model"
)

// UserRepository persists page-associated people. The natural key is
// the (linkedin_user_id, page_id) pair.
type UserRepository struct {
	db Querier
}

// NewUserRepository constructs a UserRepository on the given pool.
func NewUserRepository(db Querier) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, linkedin_user_id, page_id, name, title, profile_url, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.UserID,
		&u.PageID,
		&u.Name,
		&u.Title,
		&u.ProfileURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByUserID looks a user up by the compound natural key.
func (r *UserRepository) GetByUserID(ctx context.Context, userID string, pageID int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE linkedin_user_id = $1 AND page_id = $2`
	user, err := scanUser(r.db.QueryRow(ctx, query, userID, pageID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user %q: %w", userID, err)
	}
	return user, nil
}

// Create inserts a new user row under its parent page.
func (r *UserRepository) Create(ctx context.Context, user model.User) (*model.User, error) {
	query := `
		INSERT INTO users (linkedin_user_id, page_id, name, title, profile_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query,
		user.UserID,
		user.PageID,
		user.Name,
		user.Title,
		user.ProfileURL,
	))
}

func (r *UserRepository) update(ctx context.Context, user model.User) (*model.User, error) {
	query := `
		UPDATE users SET
			name = COALESCE(NULLIF($3, ''), name),
			title = COALESCE($4, title),
			profile_url = COALESCE(NULLIF($5, ''), profile_url),
			updated_at = NOW()
		WHERE linkedin_user_id = $1 AND page_id = $2
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query,
		user.UserID,
		user.PageID,
		user.Name,
		user.Title,
		user.ProfileURL,
	))
}

// Upsert creates or merges a user by the compound key, retrying once
// on a unique-constraint conflict.
func (r *UserRepository) Upsert(ctx context.Context, user model.User) (*model.User, error) {
	if user.UserID == "" {
		return nil, fmt.Errorf("linkedin_user_id is required")
	}
	row, err := r.upsertOnce(ctx, user)
	if isUniqueViolation(err) {
		row, err = r.upsertOnce(ctx, user)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert user %q: %w", user.UserID, err)
	}
	return row, nil
}

func (r *UserRepository) upsertOnce(ctx context.Context, user model.User) (*model.User, error) {
	_, err := r.GetByUserID(ctx, user.UserID, user.PageID)
	switch {
	case errors.Is(err, ErrNotFound):
		return r.Create(ctx, user)
	case err != nil:
		return nil, err
	}
	return r.update(ctx, user)
}

// ListByPage returns a user window for a page in name order.
func (r *UserRepository) ListByPage(ctx context.Context, pageID int64, limit, offset int) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE page_id = $1
		ORDER BY name ASC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, pageID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// CountByPage returns the number of users stored for a page.
func (r *UserRepository) CountByPage(ctx context.Context, pageID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE page_id = $1`, pageID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}
