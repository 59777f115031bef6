package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/friendlylisteh/server/internal/apperror"
	"github.com/friendlylisteh/server/internal/auth"
	"github.com/friendlylisteh/server/internal/model"
	"github.com/friendlylisteh/server/internal/repository"
)

// ToggleResult reports the state after a toggle. Post is embedded only when
// the toggle added the favorite, so the SPA can render the card without a
// second fetch; removals return just the flag.
type ToggleResult struct {
	IsFavorite bool        `json:"isFavorite"`
	Post       *model.Post `json:"post,omitempty"`
}

// FavoritePage is a page of the caller's favorited listings.
type FavoritePage struct {
	Posts      []model.Post
	TotalCount int
	Limit      int
	StartIndex int
}

// FavoriteService manages per-user bookmarks of listings.
type FavoriteService struct {
	favorites repository.FavoriteRepository
	posts     repository.PostRepository
	logger    *slog.Logger
}

func NewFavoriteService(favorites repository.FavoriteRepository, posts repository.PostRepository, logger *slog.Logger) *FavoriteService {
	return &FavoriteService{favorites: favorites, posts: posts, logger: logger}
}

// Toggle flips the favorite state of a post for the caller: favorited posts
// are unfavorited and vice versa. Toggling twice lands back where it started.
// Returns apperror.ErrNotFound if the post doesn't exist.
func (s *FavoriteService) Toggle(ctx context.Context, id auth.Identity, postID string) (*ToggleResult, error) {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	existing, err := s.favorites.GetFavoriteByUserAndPost(ctx, id.UserID, postID)
	switch {
	case err == nil:
		if err := s.favorites.DeleteFavorite(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("removing favorite: %w", err)
		}
		s.logger.Info("favorite removed", slog.String("user_id", id.UserID), slog.String("post_id", postID))
		return &ToggleResult{IsFavorite: false}, nil

	case errors.Is(err, apperror.ErrNotFound):
		fav := &model.Favorite{UserID: id.UserID, PostID: postID}
		if err := s.favorites.CreateFavorite(ctx, fav); err != nil {
			return nil, fmt.Errorf("adding favorite: %w", err)
		}
		s.logger.Info("favorite added", slog.String("user_id", id.UserID), slog.String("post_id", postID))
		return &ToggleResult{IsFavorite: true, Post: post}, nil

	default:
		return nil, fmt.Errorf("looking up favorite: %w", err)
	}
}

// List returns the caller's favorited listings, most recently favorited
// first. Favorites pointing at listings that have since been deleted are
// silently skipped — the dangling association stays in storage but never
// reaches the client.
func (s *FavoriteService) List(ctx context.Context, id auth.Identity, limit, startIndex int) (*FavoritePage, error) {
	limit, offset := clampPage(limit, startIndex)

	favorites, err := s.favorites.ListFavoritesByUser(ctx, id.UserID, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}

	posts := make([]model.Post, 0, len(favorites))
	for _, fav := range favorites {
		post, err := s.posts.GetPostByID(ctx, fav.PostID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				continue // the listing was deleted after being favorited
			}
			return nil, fmt.Errorf("resolving favorited post %s: %w", fav.PostID, err)
		}
		posts = append(posts, *post)
	}

	total, err := s.favorites.CountFavoritesByUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("counting favorites: %w", err)
	}

	return &FavoritePage{
		Posts:      posts,
		TotalCount: total,
		Limit:      limit,
		StartIndex: offset,
	}, nil
}
