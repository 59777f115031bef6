// Package service contains the business logic of the listings API, sitting
// between HTTP handlers and the repositories. Services validate input,
// enforce authorization rules against the caller's Identity, and return
// domain errors from the apperror package — handlers only translate.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/rs/xid"

	"github.com/friendlylisteh/server/internal/apperror"
	"github.com/friendlylisteh/server/internal/auth"
	"github.com/friendlylisteh/server/internal/model"
	"github.com/friendlylisteh/server/internal/repository"
)

// signinFailedMessage is deliberately identical for "no such email" and
// "wrong password" so responses never reveal which addresses are registered.
const signinFailedMessage = "invalid email or password"

// AuthResult bundles what every successful authentication produces: the
// account and a signed access token for the cookie.
type AuthResult struct {
	User    *model.User
	Token   string
	Created bool // true when Google sign-in provisioned a new account
}

// GoogleProfile is the profile a Google sign-in yields, whether it arrived
// from the SPA's client-side flow or our own server-side callback.
type GoogleProfile struct {
	Name     string
	Email    string
	PhotoURL string
	GoogleID string
}

// AuthService handles signup, signin, and Google sign-in.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, passwords *auth.PasswordService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// Signup registers a new email/password account.
//
// Validation failures come back as apperror.ErrValidation; a taken email or
// display name as apperror.ErrConflict. The returned token is already signed
// so the handler only has to set the cookie.
func (s *AuthService) Signup(ctx context.Context, fullName, email, password string) (*AuthResult, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)

	if fullName == "" {
		return nil, apperror.ValidationFailed("fullName", "full name is required")
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.ValidationFailed("email", "email is not a valid address")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing signup password: %w", err)
	}

	user := &model.User{
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(auth.Identity{UserID: user.ID, IsAdmin: user.IsAdmin})
	if err != nil {
		return nil, fmt.Errorf("issuing token after signup: %w", err)
	}

	s.logger.Info("user signed up", slog.String("user_id", user.ID))

	return &AuthResult{User: user, Token: token, Created: true}, nil
}

// Signin authenticates an email/password pair.
//
// When the email matches no account we still burn a bcrypt comparison so the
// response takes the same time either way, then return the same generic 401.
func (s *AuthService) Signin(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		s.passwords.VerifyDummy(password)
		return nil, apperror.Unauthorized(signinFailedMessage)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized(signinFailedMessage)
	}

	token, err := s.tokens.Generate(auth.Identity{UserID: user.ID, IsAdmin: user.IsAdmin})
	if err != nil {
		return nil, fmt.Errorf("issuing token after signin: %w", err)
	}

	s.logger.Info("user signed in", slog.String("user_id", user.ID))

	return &AuthResult{User: user, Token: token}, nil
}

// GoogleSignin signs a Google-authenticated user in, provisioning an account
// on first contact.
//
// Lookup is by email: a user who registered with a password and later signs
// in with Google lands in the same account (their GoogleID gets linked). New
// accounts get a random password they will never use, and a display name
// derived from the Google profile with a random suffix to dodge the
// uniqueness constraint.
func (s *AuthService) GoogleSignin(ctx context.Context, profile GoogleProfile) (*AuthResult, error) {
	if profile.Email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	user, err := s.users.GetUserByEmail(ctx, profile.Email)
	if err == nil {
		if user.GoogleID == "" && profile.GoogleID != "" {
			user.GoogleID = profile.GoogleID
			if err := s.users.UpdateUser(ctx, user); err != nil {
				return nil, fmt.Errorf("linking google account: %w", err)
			}
		}

		token, err := s.tokens.Generate(auth.Identity{UserID: user.ID, IsAdmin: user.IsAdmin})
		if err != nil {
			return nil, fmt.Errorf("issuing token after google signin: %w", err)
		}
		s.logger.Info("user signed in via google", slog.String("user_id", user.ID))
		return &AuthResult{User: user, Token: token}, nil
	}

	// First contact: provision the account.
	randomPassword, err := auth.RandomPassword()
	if err != nil {
		return nil, err
	}
	hash, err := s.passwords.Hash(randomPassword)
	if err != nil {
		return nil, fmt.Errorf("hashing provisioned password: %w", err)
	}

	user = &model.User{
		Email:          profile.Email,
		PasswordHash:   hash,
		ProfilePicture: profile.PhotoURL,
		GoogleID:       profile.GoogleID,
	}

	// The derived name can collide with an existing account, so retry with a
	// fresh suffix a couple of times before giving up.
	for attempt := 0; ; attempt++ {
		user.FullName = deriveFullName(profile.Name)
		err = s.users.CreateUser(ctx, user)
		if err == nil {
			break
		}
		if attempt >= 2 {
			return nil, err
		}
	}

	token, err := s.tokens.Generate(auth.Identity{UserID: user.ID, IsAdmin: user.IsAdmin})
	if err != nil {
		return nil, fmt.Errorf("issuing token after google signup: %w", err)
	}

	s.logger.Info("user provisioned via google", slog.String("user_id", user.ID))

	return &AuthResult{User: user, Token: token, Created: true}, nil
}

// validatePassword enforces the password bounds shared by signup and profile
// updates. The upper bound exists because bcrypt only reads the first 72
// bytes of input; rejecting longer passwords beats silently truncating them.
func validatePassword(password string) error {
	if len(password) < 8 {
		return apperror.ValidationFailed("password", "password must be at least 8 characters")
	}
	if len(password) > 72 {
		return apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}
	return nil
}

// deriveFullName builds a unique-ish display name from a Google profile name:
// lowercased, spaces removed, plus a short random suffix. "Nour Hassan"
// becomes something like "nourhassan-5rj0".
func deriveFullName(name string) string {
	base := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
	if base == "" {
		base = "user"
	}
	suffix := xid.New().String()
	return base + "-" + suffix[len(suffix)-4:]
}
