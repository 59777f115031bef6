package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/friendlylisteh/server/internal/apperror"
	"github.com/friendlylisteh/server/internal/model"
	"github.com/friendlylisteh/server/internal/repository"
)

// compile-time check that *DB implements repository.FavoriteRepository
var _ repository.FavoriteRepository = (*DB)(nil)

// CreateFavorite inserts a favorite record. Pair uniqueness is the service's
// job (toggle checks first); this is a plain insert.
func (db *DB) CreateFavorite(ctx context.Context, favorite *model.Favorite) error {
	favorite.ID = xid.New().String()
	favorite.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO favorites (id, user_id, post_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		favorite.ID,
		favorite.UserID,
		favorite.PostID,
		favorite.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating favorite: %w", err)
	}

	return nil
}

// GetFavoriteByUserAndPost returns the favorite for the (user, post) pair.
// Returns apperror.ErrNotFound when the pair isn't favorited — the toggle
// logic branches on that.
func (db *DB) GetFavoriteByUserAndPost(ctx context.Context, userID, postID string) (*model.Favorite, error) {
	var f model.Favorite

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, post_id, created_at
		 FROM favorites
		 WHERE user_id = ? AND post_id = ?`,
		userID, postID,
	).Scan(&f.ID, &f.UserID, &f.PostID, &f.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("favorite", postID)
		}
		return nil, fmt.Errorf("sqlite: getting favorite (user=%s post=%s): %w", userID, postID, err)
	}

	return &f, nil
}

// ListFavoritesByUser returns the user's favorites, most recent first.
func (db *DB) ListFavoritesByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Favorite, error) {
	limit, offset := clampList(opts)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, post_id, created_at
		 FROM favorites
		 WHERE user_id = ?
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing favorites for user %s: %w", userID, err)
	}
	defer rows.Close()

	favorites := make([]model.Favorite, 0, limit)
	for rows.Next() {
		var f model.Favorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.PostID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning favorite row: %w", err)
		}
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating favorites: %w", err)
	}

	return favorites, nil
}

// CountFavoritesByUser returns how many posts the user has favorited,
// including favorites whose post has since been deleted.
func (db *DB) CountFavoritesByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM favorites WHERE user_id = ?`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting favorites for user %s: %w", userID, err)
	}
	return n, nil
}

// DeleteFavorite removes a favorite record by ID.
func (db *DB) DeleteFavorite(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM favorites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting favorite %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("favorite", id)
	}

	return nil
}
