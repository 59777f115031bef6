package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/friendlylisteh/server/internal/apperror"
	"github.com/friendlylisteh/server/internal/auth"
	"github.com/friendlylisteh/server/internal/model"
	"github.com/friendlylisteh/server/internal/repository"
)

// CommentPage is a page of comments with page-based pagination metadata.
type CommentPage struct {
	Comments    []model.Comment
	TotalCount  int
	TotalPages  int
	CurrentPage int
}

// CommentService manages ratings and reviews on listings.
type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	users    repository.UserRepository
	logger   *slog.Logger
}

func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository, users repository.UserRepository, logger *slog.Logger) *CommentService {
	return &CommentService{comments: comments, posts: posts, users: users, logger: logger}
}

// Add leaves a rating + review on a post for the authenticated user.
//
// The commenter's display name and avatar are copied into the comment at
// write time; later profile edits do not rewrite history.
func (s *CommentService) Add(ctx context.Context, id auth.Identity, postID string, rating int, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ValidationFailed("comment", "comment text is required")
	}
	if rating < 1 || rating > 5 {
		return nil, apperror.ValidationFailed("rating", "rating must be between 1 and 5")
	}

	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading commenter profile: %w", err)
	}

	comment := &model.Comment{
		PostID:     postID,
		UserID:     user.ID,
		UserName:   user.FullName,
		UserAvatar: user.ProfilePicture,
		Rating:     rating,
		Comment:    text,
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	s.logger.Info("comment added",
		slog.String("comment_id", comment.ID),
		slog.String("post_id", postID),
		slog.String("user_id", user.ID),
	)

	return comment, nil
}

// ListByPost returns a page of a post's comments, newest first. Public.
// page is 1-based; out-of-range values are clamped to the first page.
func (s *CommentService) ListByPost(ctx context.Context, postID string, page, limit int) (*CommentPage, error) {
	page, limit = clampCommentPage(page, limit)

	comments, err := s.comments.ListCommentsByPost(ctx, postID, repository.ListOptions{
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}

	total, err := s.comments.CountCommentsByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("counting comments: %w", err)
	}

	return &CommentPage{
		Comments:    comments,
		TotalCount:  total,
		TotalPages:  totalPages(total, limit),
		CurrentPage: page,
	}, nil
}

// ListAll returns a page of comments across every post, newest first.
// Admin-only: it exists for the moderation dashboard. Comments whose post or
// author has since been deleted still appear.
func (s *CommentService) ListAll(ctx context.Context, id auth.Identity, page, limit int) (*CommentPage, error) {
	if !id.IsAdmin {
		return nil, apperror.Forbidden("only admins may list all comments")
	}

	page, limit = clampCommentPage(page, limit)

	comments, err := s.comments.ListComments(ctx, repository.ListOptions{
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing all comments: %w", err)
	}

	total, err := s.comments.CountComments(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting all comments: %w", err)
	}

	return &CommentPage{
		Comments:    comments,
		TotalCount:  total,
		TotalPages:  totalPages(total, limit),
		CurrentPage: page,
	}, nil
}

// Delete removes a comment. Admin-only moderation; authors cannot delete
// their own comments.
func (s *CommentService) Delete(ctx context.Context, id auth.Identity, commentID string) error {
	if !id.IsAdmin {
		return apperror.Forbidden("only admins may delete comments")
	}

	if _, err := s.comments.GetCommentByID(ctx, commentID); err != nil {
		return err
	}

	if err := s.comments.DeleteComment(ctx, commentID); err != nil {
		return err
	}

	s.logger.Info("comment deleted", slog.String("comment_id", commentID), slog.String("admin_id", id.UserID))
	return nil
}

func clampCommentPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	limit, _ = clampPage(limit, 0)
	return page, limit
}

// totalPages rounds up: 25 items at limit 10 is 3 pages.
func totalPages(total, limit int) int {
	if total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
