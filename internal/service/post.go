package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gosimple/slug"

	"github.com/friendlylisteh/server/internal/apperror"
	"github.com/friendlylisteh/server/internal/auth"
	"github.com/friendlylisteh/server/internal/model"
	"github.com/friendlylisteh/server/internal/repository"
)

// PlaceholderImageURL is used when a listing is created without an image, or
// when no uploader is configured (local development without Cloudinary creds).
const PlaceholderImageURL = "https://res.cloudinary.com/demo/image/upload/v1/friendly-listeh/placeholder.png"

// lastMonthWindow is the lookback for the "created recently" dashboard
// counters on post and user listings.
const lastMonthWindow = 30 * 24 * time.Hour

// ImageUploader stores an image and returns its public URL. Satisfied by
// upload.Cloudinary; nil means uploads are disabled and the placeholder URL
// is used instead.
type ImageUploader interface {
	Upload(ctx context.Context, file io.Reader, name string) (string, error)
}

// CreatePostInput carries the multipart fields of a create request. Image is
// nil when no file was attached.
type CreatePostInput struct {
	Name        string
	Description string
	Location    string
	Category    string
	SocialLinks []string
	Image       io.Reader
}

// UpdatePostInput is a partial update: empty strings and nil slices leave the
// stored value untouched. Image replaces the brand picture when non-nil.
type UpdatePostInput struct {
	Name        string
	Description string
	Location    string
	Category    string
	SocialLinks []string
	Image       io.Reader
}

// PostQuery mirrors the query string of the read endpoint.
type PostQuery struct {
	UserID     string
	Category   string
	Slug       string
	PostID     string
	SearchTerm string
	OrderAsc   bool
	Limit      int
	StartIndex int
}

// PostPage is a page of listings plus the counters the dashboard renders.
type PostPage struct {
	Posts          []model.Post
	TotalCount     int
	LastMonthCount int
	Limit          int
	StartIndex     int
}

// PostService manages brand listings. Creation is admin-only; updates and
// deletes are allowed for the owning admin or any other admin.
type PostService struct {
	posts  repository.PostRepository
	images ImageUploader // nil disables uploads
	logger *slog.Logger
}

func NewPostService(posts repository.PostRepository, images ImageUploader, logger *slog.Logger) *PostService {
	return &PostService{posts: posts, images: images, logger: logger}
}

// Create publishes a new listing on behalf of the authenticated admin.
//
// The slug is derived from the name ("Eco Shop!!" -> "eco-shop") and must be
// unique; a collision surfaces as apperror.ErrConflict.
func (s *PostService) Create(ctx context.Context, id auth.Identity, in CreatePostInput) (*model.Post, error) {
	if !id.IsAdmin {
		return nil, apperror.Forbidden("only admins may create listings")
	}
	if in.Name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if in.Description == "" {
		return nil, apperror.ValidationFailed("description", "description is required")
	}

	postSlug := slug.Make(in.Name)
	if postSlug == "" {
		return nil, apperror.ValidationFailed("name", "name must contain at least one letter or digit")
	}

	picture, err := s.storeImage(ctx, in.Image, postSlug)
	if err != nil {
		return nil, err
	}

	links := in.SocialLinks
	if links == nil {
		links = []string{}
	}

	post := &model.Post{
		UserID:       id.UserID,
		Name:         in.Name,
		Description:  in.Description,
		Location:     in.Location,
		Category:     in.Category,
		SocialLinks:  links,
		BrandPicture: picture,
		Slug:         postSlug,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, err
	}

	s.logger.Info("post created",
		slog.String("post_id", post.ID),
		slog.String("slug", post.Slug),
		slog.String("user_id", id.UserID),
	)

	return post, nil
}

// Read lists posts matching the query. It is public — no Identity required.
// Alongside the page it returns the total match count and how many matching
// posts were created in the last 30 days.
func (s *PostService) Read(ctx context.Context, q PostQuery) (*PostPage, error) {
	limit, offset := clampPage(q.Limit, q.StartIndex)

	filter := repository.PostFilter{
		UserID:     q.UserID,
		Category:   q.Category,
		Slug:       q.Slug,
		PostID:     q.PostID,
		SearchTerm: q.SearchTerm,
		OrderAsc:   q.OrderAsc,
	}

	posts, err := s.posts.ListPosts(ctx, filter, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	total, err := s.posts.CountPosts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("counting posts: %w", err)
	}

	lastMonth, err := s.posts.CountPostsCreatedSince(ctx, filter, time.Now().Add(-lastMonthWindow))
	if err != nil {
		return nil, fmt.Errorf("counting recent posts: %w", err)
	}

	return &PostPage{
		Posts:          posts,
		TotalCount:     total,
		LastMonthCount: lastMonth,
		Limit:          limit,
		StartIndex:     offset,
	}, nil
}

// Get returns a single listing by ID.
func (s *PostService) Get(ctx context.Context, postID string) (*model.Post, error) {
	return s.posts.GetPostByID(ctx, postID)
}

// Update applies a partial update to a listing. Allowed for the admin who
// owns the listing or any other admin. A name change re-derives the slug.
func (s *PostService) Update(ctx context.Context, id auth.Identity, postID string, in UpdatePostInput) (*model.Post, error) {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(id, post); err != nil {
		return nil, err
	}

	if in.Name != "" && in.Name != post.Name {
		newSlug := slug.Make(in.Name)
		if newSlug == "" {
			return nil, apperror.ValidationFailed("name", "name must contain at least one letter or digit")
		}
		post.Name = in.Name
		post.Slug = newSlug
	}
	if in.Description != "" {
		post.Description = in.Description
	}
	if in.Location != "" {
		post.Location = in.Location
	}
	if in.Category != "" {
		post.Category = in.Category
	}
	if in.SocialLinks != nil {
		post.SocialLinks = in.SocialLinks
	}

	if in.Image != nil {
		picture, err := s.storeImage(ctx, in.Image, post.Slug)
		if err != nil {
			return nil, err
		}
		post.BrandPicture = picture
	}

	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return nil, err
	}

	s.logger.Info("post updated", slog.String("post_id", post.ID), slog.String("user_id", id.UserID))

	return post, nil
}

// Delete removes a listing. Comments and favorites referencing it are left in
// place — deletes never cascade.
func (s *PostService) Delete(ctx context.Context, id auth.Identity, postID string) error {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return err
	}
	if err := s.authorize(id, post); err != nil {
		return err
	}

	if err := s.posts.DeletePost(ctx, postID); err != nil {
		return err
	}

	s.logger.Info("post deleted", slog.String("post_id", postID), slog.String("user_id", id.UserID))
	return nil
}

// authorize allows the owning admin or any other admin.
func (s *PostService) authorize(id auth.Identity, post *model.Post) error {
	if id.IsAdmin || id.UserID == post.UserID {
		return nil
	}
	return apperror.Forbidden("you may only modify your own listings")
}

// storeImage uploads the image if both an uploader and a file are present;
// otherwise it falls back to the placeholder URL. On update the empty return
// for a nil file is never used — Update only calls this with a file attached.
func (s *PostService) storeImage(ctx context.Context, file io.Reader, name string) (string, error) {
	if file == nil || s.images == nil {
		return PlaceholderImageURL, nil
	}
	url, err := s.images.Upload(ctx, file, name)
	if err != nil {
		return "", fmt.Errorf("storing listing image: %w", err)
	}
	return url, nil
}

// clampPage bounds limit to 1..100 (default 20) and floors offset at 0.
// Mirrors the clamping the repositories apply, so counts and pages agree.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
