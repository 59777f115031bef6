package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/friendlylisteh/server/internal/apperror"
	"github.com/friendlylisteh/server/internal/model"
	"github.com/friendlylisteh/server/internal/repository"
)

// compile-time check that *DB implements repository.PostRepository
var _ repository.PostRepository = (*DB)(nil)

const postColumns = `id, user_id, name, description, location, category, social_links, brand_picture, slug, created_at, updated_at`

// CreatePost inserts a new post. A slug collision trips the UNIQUE constraint
// and is translated into a Duplicate apperror (409 at the HTTP layer).
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now

	links, err := marshalLinks(post.SocialLinks)
	if err != nil {
		return fmt.Errorf("sqlite: encoding social links: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO posts (`+postColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.UserID,
		post.Name,
		post.Description,
		post.Location,
		post.Category,
		links,
		post.BrandPicture,
		post.Slug,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Duplicate("slug", fmt.Sprintf("a post with slug %q already exists", post.Slug))
		}
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	return nil
}

// GetPostByID retrieves a single post.
// Returns apperror.ErrNotFound if no post exists with that ID.
func (db *DB) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id)

	post, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}
	return post, nil
}

// ListPosts retrieves posts matching the filter, ordered by updated_at.
func (db *DB) ListPosts(ctx context.Context, filter repository.PostFilter, opts repository.ListOptions) ([]model.Post, error) {
	limit, offset := clampList(opts)

	where, args := buildPostWhere(filter)
	order := "DESC"
	if filter.OrderAsc {
		order = "ASC"
	}
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts`+where+`
		 ORDER BY updated_at `+order+`
		 LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	return posts, nil
}

// CountPosts returns how many posts match the filter, for pagination totals.
func (db *DB) CountPosts(ctx context.Context, filter repository.PostFilter) (int, error) {
	where, args := buildPostWhere(filter)

	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts`+where, args...,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting posts: %w", err)
	}
	return n, nil
}

// CountPostsCreatedSince counts matching posts created at or after the given
// time — the "lastMonth" dashboard metric shares the caller's filter.
func (db *DB) CountPostsCreatedSince(ctx context.Context, filter repository.PostFilter, since time.Time) (int, error) {
	where, args := buildPostWhere(filter)
	if where == "" {
		where = " WHERE created_at >= ?"
	} else {
		where += " AND created_at >= ?"
	}
	args = append(args, since)

	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts`+where, args...,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting recent posts: %w", err)
	}
	return n, nil
}

// UpdatePost overwrites the post's mutable fields. id, user_id, and
// created_at are immutable.
func (db *DB) UpdatePost(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = time.Now()

	links, err := marshalLinks(post.SocialLinks)
	if err != nil {
		return fmt.Errorf("sqlite: encoding social links: %w", err)
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE posts
		 SET name = ?, description = ?, location = ?, category = ?, social_links = ?, brand_picture = ?, slug = ?, updated_at = ?
		 WHERE id = ?`,
		post.Name,
		post.Description,
		post.Location,
		post.Category,
		links,
		post.BrandPicture,
		post.Slug,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Duplicate("slug", fmt.Sprintf("a post with slug %q already exists", post.Slug))
		}
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", post.ID)
	}

	return nil
}

// DeletePost hard-deletes a post. Comments and favorites that reference it
// are left behind; the favorites read path filters the dangling references.
func (db *DB) DeletePost(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", id)
	}

	return nil
}

// buildPostWhere turns a PostFilter into a WHERE clause and its arguments.
// Zero-value fields contribute nothing, so the empty filter matches all rows.
// SQLite's LIKE is case-insensitive for ASCII, which gives us the
// case-insensitive substring search for free.
func buildPostWhere(filter repository.PostFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Slug != "" {
		conds = append(conds, "slug = ?")
		args = append(args, filter.Slug)
	}
	if filter.PostID != "" {
		conds = append(conds, "id = ?")
		args = append(args, filter.PostID)
	}
	if filter.SearchTerm != "" {
		conds = append(conds, `(name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\' OR location LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(filter.SearchTerm) + "%"
		args = append(args, pattern, pattern, pattern)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// escapeLike neutralizes LIKE wildcards in a user-supplied search term so a
// literal "%" or "_" matches itself instead of everything.
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

// scanner is the shared subset of *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*model.Post, error) {
	var post model.Post
	var links string

	err := s.Scan(
		&post.ID,
		&post.UserID,
		&post.Name,
		&post.Description,
		&post.Location,
		&post.Category,
		&links,
		&post.BrandPicture,
		&post.Slug,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if links != "" {
		if err := json.Unmarshal([]byte(links), &post.SocialLinks); err != nil {
			return nil, fmt.Errorf("decoding social links: %w", err)
		}
	}
	if post.SocialLinks == nil {
		post.SocialLinks = []string{}
	}

	return &post, nil
}

func marshalLinks(links []string) (string, error) {
	if links == nil {
		links = []string{}
	}
	b, err := json.Marshal(links)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
