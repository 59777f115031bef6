// Package auth provides JWT issuance/validation, password hashing, and the
// Google OAuth flow for the listings API.
//
// AUTHENTICATION FLOW:
//  1. A user signs up or signs in (email/password or Google).
//  2. The server issues a JWT access token carrying the user's ID and admin
//     flag, stored in an HttpOnly cookie.
//  3. On subsequent API calls, middleware reads the cookie, validates the
//     JWT, and places an Identity value in the request context.
//
// JWT is stateless — the server stores no session data. Everything needed
// (userID, admin flag, expiry) is inside the signed token, and the signature
// ensures nobody can tamper with it without the secret key.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the lifetime of an access token. The original app issued
// tokens with no expiry at all; seven days is the explicit replacement —
// long enough that browsing sessions survive, short enough that a leaked
// cookie eventually dies.
const TokenTTL = 7 * 24 * time.Hour

// Identity is the authenticated caller, decoded once at the request boundary
// and passed down to services as a plain immutable value — never a global.
type Identity struct {
	UserID  string
	IsAdmin bool
}

// TokenService handles JWT creation and validation. It holds the HMAC secret
// used to sign and verify tokens — the same secret must serve both.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. The standard "sub" claim carries the internal
// user ID; "adm" is our private claim for the admin flag so the middleware
// can authorize admin routes without a DB lookup.
type claims struct {
	IsAdmin bool `json:"adm"`
	jwt.RegisteredClaims
}

// Generate creates and signs a new JWT access token for the given identity.
//
// Signing algorithm: HS256 (HMAC-SHA256) — symmetric, fast, and fine for a
// single-server deployment.
func (s *TokenService) Generate(id Identity) (string, error) {
	return s.GenerateWithDuration(id, TokenTTL)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(id Identity, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		IsAdmin: id.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    "friendly-listeh",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string, returning the Identity it
// encodes.
//
// The jwt library checks the signature, expiry, and issuer for us. Passing
// jwt.WithValidMethods pins the algorithm to HS256, which blocks algorithm
// confusion attacks (a token signed with "none" must never be accepted).
func (s *TokenService) Validate(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer("friendly-listeh"),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("auth: token expired")
		}
		return Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return Identity{}, fmt.Errorf("auth: token has no subject")
	}

	return Identity{UserID: c.Subject, IsAdmin: c.IsAdmin}, nil
}
