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

// compile-time check that *DB implements repository.CommentRepository
var _ repository.CommentRepository = (*DB)(nil)

const commentColumns = `id, post_id, user_id, user_name, user_avatar, rating, comment, created_at`

// CreateComment inserts a new comment. The author's name and avatar arrive
// already denormalized by the service — this layer just persists them.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	comment.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (`+commentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		comment.ID,
		comment.PostID,
		comment.UserID,
		comment.UserName,
		comment.UserAvatar,
		comment.Rating,
		comment.Comment,
		comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating comment: %w", err)
	}

	return nil
}

// GetCommentByID retrieves a single comment.
func (db *DB) GetCommentByID(ctx context.Context, id string) (*model.Comment, error) {
	var c model.Comment

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = ?`, id,
	).Scan(
		&c.ID, &c.PostID, &c.UserID, &c.UserName, &c.UserAvatar,
		&c.Rating, &c.Comment, &c.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}

	return &c, nil
}

// ListCommentsByPost returns the post's comments, newest first.
func (db *DB) ListCommentsByPost(ctx context.Context, postID string, opts repository.ListOptions) ([]model.Comment, error) {
	return db.listComments(ctx, `WHERE post_id = ?`, []any{postID}, opts)
}

// CountCommentsByPost returns the number of comments on a post.
func (db *DB) CountCommentsByPost(ctx context.Context, postID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE post_id = ?`, postID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting comments for post %s: %w", postID, err)
	}
	return n, nil
}

// ListComments returns comments across all posts, newest first. No join
// against users or posts: orphaned comments stay visible by design.
func (db *DB) ListComments(ctx context.Context, opts repository.ListOptions) ([]model.Comment, error) {
	return db.listComments(ctx, "", nil, opts)
}

// CountComments returns the total number of comments.
func (db *DB) CountComments(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting comments: %w", err)
	}
	return n, nil
}

func (db *DB) listComments(ctx context.Context, where string, whereArgs []any, opts repository.ListOptions) ([]model.Comment, error) {
	limit, offset := clampList(opts)
	args := append(whereArgs, limit, offset)

	query := `SELECT ` + commentColumns + ` FROM comments `
	if where != "" {
		query += where + " "
	}
	query += `ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments: %w", err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0, limit)
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(
			&c.ID, &c.PostID, &c.UserID, &c.UserName, &c.UserAvatar,
			&c.Rating, &c.Comment, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}

	return comments, nil
}

// DeleteComment removes a comment by ID.
func (db *DB) DeleteComment(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("comment", id)
	}

	return nil
}
