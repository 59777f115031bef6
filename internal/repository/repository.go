// Package repository defines the persistence interfaces consumed by the
// service layer. Interfaces live with the consumer, not the implementation —
// the sqlite package imports this one, never the other way round.
//
// Method names are entity-qualified (CreatePost, not Create) because a single
// sqlite.DB implements all four interfaces.
package repository

import (
	"context"
	"time"

	"github.com/friendlylisteh/server/internal/model"
)

// ListOptions is plain LIMIT/OFFSET pagination. The service layer clamps the
// values before they get here; implementations may still apply defaults.
type ListOptions struct {
	Limit  int
	Offset int
}

// PostFilter narrows a post listing. Zero-value fields are ignored, so the
// empty filter matches everything. SearchTerm is a case-insensitive substring
// match across name, description, and location.
type PostFilter struct {
	UserID     string
	Category   string
	Slug       string
	PostID     string
	SearchTerm string
	OrderAsc   bool // sort by updated_at ascending; default is newest first
}

type UserRepository interface {
	// CreateUser persists a new user. Returns apperror.ErrConflict if the
	// email or full name is already taken.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// GetUserByEmail looks the user up case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context, opts ListOptions, orderAsc bool) ([]model.User, error)
	CountUsers(ctx context.Context) (int, error)
	CountUsersCreatedSince(ctx context.Context, since time.Time) (int, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id string) error
}

type PostRepository interface {
	// CreatePost persists a new post. Returns apperror.ErrConflict on a slug
	// collision.
	CreatePost(ctx context.Context, post *model.Post) error
	GetPostByID(ctx context.Context, id string) (*model.Post, error)
	ListPosts(ctx context.Context, filter PostFilter, opts ListOptions) ([]model.Post, error)
	CountPosts(ctx context.Context, filter PostFilter) (int, error)
	CountPostsCreatedSince(ctx context.Context, filter PostFilter, since time.Time) (int, error)
	UpdatePost(ctx context.Context, post *model.Post) error
	DeletePost(ctx context.Context, id string) error
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	GetCommentByID(ctx context.Context, id string) (*model.Comment, error)
	// ListCommentsByPost returns the post's comments, newest first.
	ListCommentsByPost(ctx context.Context, postID string, opts ListOptions) ([]model.Comment, error)
	CountCommentsByPost(ctx context.Context, postID string) (int, error)
	// ListComments returns comments across all posts, newest first. Comments
	// whose author or post has since been deleted are still included.
	ListComments(ctx context.Context, opts ListOptions) ([]model.Comment, error)
	CountComments(ctx context.Context) (int, error)
	DeleteComment(ctx context.Context, id string) error
}

type FavoriteRepository interface {
	CreateFavorite(ctx context.Context, favorite *model.Favorite) error
	// GetFavoriteByUserAndPost returns the favorite for the (user, post)
	// pair, or apperror.ErrNotFound if the pair isn't favorited.
	GetFavoriteByUserAndPost(ctx context.Context, userID, postID string) (*model.Favorite, error)
	// ListFavoritesByUser returns the user's favorites, most recently
	// favorited first.
	ListFavoritesByUser(ctx context.Context, userID string, opts ListOptions) ([]model.Favorite, error)
	CountFavoritesByUser(ctx context.Context, userID string) (int, error)
	DeleteFavorite(ctx context.Context, id string) error
}
