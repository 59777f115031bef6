package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/friendlylisteh/server/internal/apperror"
	"github.com/friendlylisteh/server/internal/model"
	"github.com/friendlylisteh/server/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new user. The ID and timestamps are generated here and
// written back into the caller's struct (pointer receiver on the model).
//
// Duplicate email or full name trips the UNIQUE constraints; we translate
// that into a Duplicate apperror naming the colliding field so the handler
// can return 409 instead of leaking a raw SQL error.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, full_name, email, password_hash, profile_picture, google_id, is_admin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.FullName,
		user.Email,
		user.PasswordHash,
		user.ProfilePicture,
		user.GoogleID,
		user.IsAdmin,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return duplicateUserError(err)
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	return nil
}

// duplicateUserError picks the right field for a users UNIQUE violation. The
// engine's message names the violated column ("users.email" or
// "users.full_name"), which is the only signal modernc exposes.
func duplicateUserError(err error) error {
	if strings.Contains(err.Error(), "users.full_name") {
		return apperror.Duplicate("fullName", "an account with this name already exists")
	}
	return apperror.Duplicate("email", "an account with this email already exists")
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by email. The email column is COLLATE NOCASE,
// so the comparison is case-insensitive without any LOWER() gymnastics.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `WHERE email = ?`, email)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, full_name, email, password_hash, profile_picture, google_id, is_admin, created_at, updated_at
		 FROM users `+where,
		arg,
	).Scan(
		&u.ID,
		&u.FullName,
		&u.Email,
		&u.PasswordHash,
		&u.ProfilePicture,
		&u.GoogleID,
		&u.IsAdmin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprintf("%v", arg))
		}
		return nil, fmt.Errorf("sqlite: getting user %v: %w", arg, err)
	}

	return &u, nil
}

// ListUsers retrieves users ordered by creation time, for the admin dashboard.
func (db *DB) ListUsers(ctx context.Context, opts repository.ListOptions, orderAsc bool) ([]model.User, error) {
	limit, offset := clampList(opts)

	order := "DESC"
	if orderAsc {
		order = "ASC"
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, full_name, email, password_hash, profile_picture, google_id, is_admin, created_at, updated_at
		 FROM users
		 ORDER BY created_at `+order+`
		 LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, limit)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(
			&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.ProfilePicture,
			&u.GoogleID, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return users, nil
}

// CountUsers returns the total number of registered users.
func (db *DB) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting users: %w", err)
	}
	return n, nil
}

// CountUsersCreatedSince returns how many users signed up at or after the given
// time. Backs the "last month" dashboard stat.
func (db *DB) CountUsersCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE created_at >= ?`, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting recent users: %w", err)
	}
	return n, nil
}

// UpdateUser writes the user's mutable fields. The service layer has already
// merged partial updates into the full model, so this is a plain overwrite.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET full_name = ?, email = ?, password_hash = ?, profile_picture = ?, google_id = ?, updated_at = ?
		 WHERE id = ?`,
		user.FullName,
		user.Email,
		user.PasswordHash,
		user.ProfilePicture,
		user.GoogleID,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return duplicateUserError(err)
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", user.ID)
	}

	return nil
}

// DeleteUser hard-deletes a user. Their posts, comments, and favorites are left
// in place — orphaned references are the documented behavior.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}

	return nil
}

// clampList applies the shared pagination defaults: limit 20, max 100,
// offset never negative.
func clampList(opts repository.ListOptions) (limit, offset int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset = opts.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
