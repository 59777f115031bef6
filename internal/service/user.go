package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/friendlylisteh/server/internal/apperror"
	"github.com/friendlylisteh/server/internal/auth"
	"github.com/friendlylisteh/server/internal/model"
	"github.com/friendlylisteh/server/internal/repository"
)

// UpdateUserInput is a partial profile update: empty fields leave the stored
// value untouched. A non-empty password is re-validated and re-hashed. Image
// replaces the profile picture when non-nil.
type UpdateUserInput struct {
	FullName string
	Email    string
	Password string
	Image    io.Reader
}

// UserPage is a page of accounts plus the counters the admin dashboard shows.
type UserPage struct {
	Users          []model.User
	TotalCount     int
	LastMonthCount int
	Limit          int
	StartIndex     int
}

// UserService manages account profiles. Profile edits and self-deletion are
// strictly self-service; listing accounts and deleting other accounts are
// admin-only.
type UserService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	images    ImageUploader // nil disables avatar uploads
	logger    *slog.Logger
}

func NewUserService(users repository.UserRepository, passwords *auth.PasswordService, images ImageUploader, logger *slog.Logger) *UserService {
	return &UserService{users: users, passwords: passwords, images: images, logger: logger}
}

// Get returns a single account by ID. Admin-only: regular users see author
// names through the denormalized comment fields, never through this endpoint.
func (s *UserService) Get(ctx context.Context, id auth.Identity, userID string) (*model.User, error) {
	if !id.IsAdmin {
		return nil, apperror.Forbidden("only admins may look up accounts")
	}
	return s.users.GetUserByID(ctx, userID)
}

// Update applies a partial update to the caller's own profile. Admins get no
// override here — even an admin can only edit their own account.
func (s *UserService) Update(ctx context.Context, id auth.Identity, userID string, in UpdateUserInput) (*model.User, error) {
	if id.UserID != userID {
		return nil, apperror.Forbidden("you may only update your own account")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(in.FullName); name != "" {
		user.FullName = name
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, apperror.ValidationFailed("email", "email is not a valid address")
		}
		user.Email = email
	}
	if in.Password != "" {
		if err := validatePassword(in.Password); err != nil {
			return nil, err
		}
		hash, err := s.passwords.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hashing new password: %w", err)
		}
		user.PasswordHash = hash
	}
	if in.Image != nil && s.images != nil {
		url, err := s.images.Upload(ctx, in.Image, "avatar-"+user.ID)
		if err != nil {
			return nil, fmt.Errorf("storing profile picture: %w", err)
		}
		user.ProfilePicture = url
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user updated", slog.String("user_id", user.ID))

	return user, nil
}

// Delete removes the caller's own account. The user's comments and favorites
// are left behind — comments keep their frozen author name and avatar.
func (s *UserService) Delete(ctx context.Context, id auth.Identity, userID string) error {
	if id.UserID != userID {
		return apperror.Forbidden("you may only delete your own account")
	}

	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("user deleted own account", slog.String("user_id", userID))
	return nil
}

// AdminDelete removes any account. Admin-only; like Delete, nothing cascades.
func (s *UserService) AdminDelete(ctx context.Context, id auth.Identity, userID string) error {
	if !id.IsAdmin {
		return apperror.Forbidden("only admins may delete other accounts")
	}

	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("user deleted by admin",
		slog.String("user_id", userID),
		slog.String("admin_id", id.UserID),
	)
	return nil
}

// List returns a page of accounts for the admin dashboard, along with the
// total account count and how many signed up in the last 30 days.
func (s *UserService) List(ctx context.Context, id auth.Identity, limit, startIndex int, orderAsc bool) (*UserPage, error) {
	if !id.IsAdmin {
		return nil, apperror.Forbidden("only admins may list accounts")
	}

	limit, offset := clampPage(limit, startIndex)

	users, err := s.users.ListUsers(ctx, repository.ListOptions{Limit: limit, Offset: offset}, orderAsc)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	total, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}

	lastMonth, err := s.users.CountUsersCreatedSince(ctx, time.Now().Add(-lastMonthWindow))
	if err != nil {
		return nil, fmt.Errorf("counting recent users: %w", err)
	}

	return &UserPage{
		Users:          users,
		TotalCount:     total,
		LastMonthCount: lastMonth,
		Limit:          limit,
		StartIndex:     offset,
	}, nil
}
