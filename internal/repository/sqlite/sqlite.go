// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere
// Go works.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the repository interfaces.
// The server owns the lifecycle: New creates it, Close destroys it.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
// Use ":memory:" for an in-memory database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows one writer at a time, and each ":memory:" connection gets
	// its own database — a pool of one sidesteps both problems.
	conn.SetMaxOpenConns(1)

	// Ping forces an immediate connection so a bad path or permissions issue
	// surfaces here instead of on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is in progress — default
	// SQLite locks the whole file during writes, which stalls a web server.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every startup; for anything beyond additive changes you'd reach for
// golang-migrate.
func (db *DB) migrate() error {
	// email gets COLLATE NOCASE so both the UNIQUE constraint and lookups are
	// case-insensitive — "User@Example.com" and "user@example.com" are the
	// same account.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			full_name       TEXT NOT NULL UNIQUE,
			email           TEXT NOT NULL UNIQUE COLLATE NOCASE,
			password_hash   TEXT NOT NULL,
			profile_picture TEXT NOT NULL DEFAULT '',
			google_id       TEXT NOT NULL DEFAULT '',
			is_admin        INTEGER NOT NULL DEFAULT 0,
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// social_links holds a JSON array — the links are only ever read back as
	// a whole, so a join table would be overkill.
	//
	// user_id (and the reference columns on comments/favorites below) are
	// deliberately plain TEXT with no FOREIGN KEY clause: deletes never
	// cascade and orphaned references are accepted, the reads that care
	// filter them out.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL,
			name          TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			location      TEXT NOT NULL DEFAULT '',
			category      TEXT NOT NULL DEFAULT '',
			social_links  TEXT NOT NULL DEFAULT '[]',
			brand_picture TEXT NOT NULL DEFAULT '',
			slug          TEXT NOT NULL UNIQUE,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_posts_updated_at ON posts(updated_at);
		CREATE INDEX IF NOT EXISTS idx_posts_category   ON posts(category);
		CREATE INDEX IF NOT EXISTS idx_posts_user_id    ON posts(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating posts table: %w", err)
	}

	// post_id and user_id are deliberately plain TEXT (no REFERENCES): a
	// comment outlives its post and its author. user_name/user_avatar are
	// frozen copies of the author's profile at write time.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS comments (
			id          TEXT PRIMARY KEY,
			post_id     TEXT NOT NULL,
			user_id     TEXT NOT NULL,
			user_name   TEXT NOT NULL,
			user_avatar TEXT NOT NULL DEFAULT '',
			rating      INTEGER NOT NULL,
			comment     TEXT NOT NULL,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_comments_post_id    ON comments(post_id);
		CREATE INDEX IF NOT EXISTS idx_comments_created_at ON comments(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating comments table: %w", err)
	}

	// No UNIQUE(user_id, post_id): pair uniqueness is enforced by the toggle
	// logic in the service, matching the documented behavior.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS favorites (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			post_id    TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_favorites_user_id ON favorites(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating favorites table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
// modernc.org/sqlite doesn't export a typed error for this, so we match the
// stable message prefix the engine emits.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
