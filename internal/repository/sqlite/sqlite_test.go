package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/friendlylisteh/server/internal/model"
)

// newTestDB creates a fresh in-memory database for a single test. ":memory:"
// databases are destroyed when the connection closes, so every test starts
// from an empty schema.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, name, email string) *model.User {
	t.Helper()
	user := &model.User{
		FullName:     name,
		Email:        email,
		PasswordHash: "$2a$04$fakefakefakefakefakefake",
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// createUserModel builds an unsaved user for tests that exercise CreateUser's
// error paths directly.
func createUserModel(name, email string) *model.User {
	return &model.User{
		FullName:     name,
		Email:        email,
		PasswordHash: "$2a$04$fakefakefakefakefakefake",
	}
}

func createTestPost(t *testing.T, db *DB, name, slug string) *model.Post {
	t.Helper()
	post := &model.Post{
		UserID:      "admin-1",
		Name:        name,
		Description: "a description",
		Location:    "Cairo",
		Category:    "clothing",
		SocialLinks: []string{"https://instagram.com/x"},
		Slug:        slug,
	}
	if err := db.CreatePost(context.Background(), post); err != nil {
		t.Fatalf("failed to create test post: %v", err)
	}
	return post
}

// seedPosts creates n posts with distinct names and slugs.
func seedPosts(t *testing.T, db *DB, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		createTestPost(t, db, fmt.Sprintf("Brand %02d", i), fmt.Sprintf("brand-%02d", i))
	}
}
