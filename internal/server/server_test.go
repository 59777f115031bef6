package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendlylisteh/server/internal/auth"
	"github.com/friendlylisteh/server/internal/model"
)

const testJWTSecret = "integration-test-secret-key-123"

// newTestServer wires the full stack against an in-memory database. Tests
// drive it through Router() with httptest — no port, no goroutines.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(Config{
		Port:          0,
		DBPath:        ":memory:",
		JWTSecret:     testJWTSecret,
		ClientOrigins: []string{"http://localhost:5173"},
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.db.Close() })
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func authCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatal("response carries no auth cookie")
	return nil
}

// signupUser registers a fresh account and returns its auth cookie.
func signupUser(t *testing.T, s *Server, name, email string) *http.Cookie {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/auth/signup", map[string]string{
		"fullName": name,
		"email":    email,
		"password": "secret-password",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return authCookie(t, rec)
}

// adminCookie fabricates an admin identity: an admin row in the database and
// a token signed with the server's own secret. There is no promotion
// endpoint, which mirrors how admins are created operationally.
func adminCookie(t *testing.T, s *Server) (*http.Cookie, *model.User) {
	t.Helper()

	admin := &model.User{
		FullName:     "Admin User",
		Email:        "admin@example.com",
		PasswordHash: "$2a$04$fakefakefakefakefakefake",
		IsAdmin:      true,
	}
	require.NoError(t, s.db.CreateUser(context.Background(), admin))

	tokens, err := auth.NewTokenService(testJWTSecret)
	require.NoError(t, err)
	token, err := tokens.Generate(auth.Identity{UserID: admin.ID, IsAdmin: true})
	require.NoError(t, err)

	return &http.Cookie{Name: auth.CookieName, Value: token}, admin
}

func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestSignupAndSignin(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/auth/signup", map[string]string{
		"fullName": "Nour Hassan",
		"email":    "nour@example.com",
		"password": "secret-password",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// The password must not appear in the response in any form.
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "secret-password")

	cookie := authCookie(t, rec)
	assert.True(t, cookie.HttpOnly, "auth cookie must be HttpOnly")
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	// Wrong password: 401, generic message, and crucially no cookie.
	rec = doJSON(t, s, http.MethodPost, "/api/auth/signin", map[string]string{
		"email":    "nour@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies(), "a failed signin must not set a cookie")

	// Unknown email gets the same status and message.
	rec2 := doJSON(t, s, http.MethodPost, "/api/auth/signin", map[string]string{
		"email":    "nobody@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
	assert.Equal(t, rec.Body.String(), rec2.Body.String())

	// Correct credentials work, email case doesn't matter.
	rec = doJSON(t, s, http.MethodPost, "/api/auth/signin", map[string]string{
		"email":    "NOUR@example.com",
		"password": "secret-password",
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	authCookie(t, rec)
}

func TestSignupDuplicateEmailConflict(t *testing.T) {
	s := newTestServer(t)
	signupUser(t, s, "Nour Hassan", "nour@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/auth/signup", map[string]string{
		"fullName": "Other Name",
		"email":    "nour@example.com",
		"password": "secret-password",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// Passwords past bcrypt's 72-byte input limit are a client error, not a
// server one.
func TestSignupOverLongPasswordRejected(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/auth/signup", map[string]string{
		"fullName": "Nour Hassan",
		"email":    "nour@example.com",
		"password": strings.Repeat("a", 80),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "password")
	assert.Empty(t, rec.Result().Cookies(), "a rejected signup must not set a cookie")
}

func TestGoogleSigninProvisioning(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/auth/google", map[string]string{
		"name":           "Nour Hassan",
		"email":          "nour@example.com",
		"googlePhotoUrl": "https://lh3.googleusercontent.com/photo.jpg",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	authCookie(t, rec)

	// Second sign-in hits the existing account: 200, not 201.
	rec = doJSON(t, s, http.MethodPost, "/api/auth/google", map[string]string{
		"name":  "Nour Hassan",
		"email": "nour@example.com",
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	// No cookie at all: 401.
	rec := doJSON(t, s, http.MethodPost, "/api/favorites/toggle", map[string]string{"postId": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Present but invalid token: 403.
	garbage := &http.Cookie{Name: auth.CookieName, Value: "not-a-jwt"}
	rec = doJSON(t, s, http.MethodPost, "/api/favorites/toggle", map[string]string{"postId": "x"}, garbage)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreatePostAdminOnly(t *testing.T) {
	s := newTestServer(t)

	fields := map[string]string{
		"name":        "Eco Shop!!",
		"description": "sustainable goods",
		"location":    "Cairo",
		"category":    "clothing",
	}

	// A regular signed-in user gets 403.
	userCookie := signupUser(t, s, "Nour Hassan", "nour@example.com")
	body, contentType := multipartBody(t, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/post/create", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(userCookie)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	// An admin gets 201, with the slug derived from the name.
	admin, _ := adminCookie(t, s)
	body, contentType = multipartBody(t, fields)
	req = httptest.NewRequest(http.MethodPost, "/api/post/create", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(admin)
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var post model.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	assert.Equal(t, "eco-shop", post.Slug)
	assert.NotEmpty(t, post.BrandPicture, "missing image should fall back to a placeholder URL")

	// And nothing was persisted for the forbidden attempt.
	readRec := doJSON(t, s, http.MethodGet, "/api/post/read", nil)
	require.Equal(t, http.StatusOK, readRec.Code)
	var listing struct {
		Posts      []model.Post `json:"posts"`
		Pagination struct {
			TotalCount int `json:"totalCount"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(readRec.Body.Bytes(), &listing))
	assert.Equal(t, 1, listing.Pagination.TotalCount)
}

func TestPostReadSearchAndPagination(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	names := []string{"Vegan Bakery", "Hardware Store", "Vegan Butcher"}
	for i, name := range names {
		require.NoError(t, s.db.CreatePost(ctx, &model.Post{
			UserID:      "admin-1",
			Name:        name,
			Description: "desc",
			Location:    "Cairo",
			Slug:        []string{"vegan-bakery", "hardware-store", "vegan-butcher"}[i],
		}))
	}

	rec := doJSON(t, s, http.MethodGet, "/api/post/read?searchTerm=VEGAN", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		Posts      []model.Post `json:"posts"`
		Pagination struct {
			TotalCount int `json:"totalCount"`
			TotalPages int `json:"totalPages"`
		} `json:"pagination"`
		LastMonthPosts int `json:"lastMonthPosts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Len(t, listing.Posts, 2)
	assert.Equal(t, 2, listing.Pagination.TotalCount)
	assert.Equal(t, 2, listing.LastMonthPosts)

	rec = doJSON(t, s, http.MethodGet, "/api/post/read?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Len(t, listing.Posts, 2)
	assert.Equal(t, 3, listing.Pagination.TotalCount)
	assert.Equal(t, 2, listing.Pagination.TotalPages)
}

func TestFavoriteToggleFlow(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	post := &model.Post{UserID: "admin-1", Name: "Eco Shop", Slug: "eco-shop"}
	require.NoError(t, s.db.CreatePost(ctx, post))
	cookie := signupUser(t, s, "Nour Hassan", "nour@example.com")

	var result struct {
		IsFavorite bool        `json:"isFavorite"`
		Post       *model.Post `json:"post"`
	}

	rec := doJSON(t, s, http.MethodPost, "/api/favorites/toggle", map[string]string{"postId": post.ID}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.IsFavorite)
	require.NotNil(t, result.Post)
	assert.Equal(t, post.ID, result.Post.ID)

	rec = doJSON(t, s, http.MethodGet, "/api/favorites/read", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var favs struct {
		Posts []model.Post `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &favs))
	assert.Len(t, favs.Posts, 1)

	// Toggling again flips it back.
	rec = doJSON(t, s, http.MethodPost, "/api/favorites/toggle", map[string]string{"postId": post.ID}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.IsFavorite)
	assert.Nil(t, result.Post)

	rec = doJSON(t, s, http.MethodGet, "/api/favorites/read", nil, cookie)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &favs))
	assert.Empty(t, favs.Posts)

	// Toggling a nonexistent post: 404.
	rec = doJSON(t, s, http.MethodPost, "/api/favorites/toggle", map[string]string{"postId": "no-such-post"}, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommentFlow(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	post := &model.Post{UserID: "admin-1", Name: "Eco Shop", Slug: "eco-shop"}
	require.NoError(t, s.db.CreatePost(ctx, post))
	cookie := signupUser(t, s, "Nour Hassan", "nour@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/comments/addComment", map[string]any{
		"postId":  post.ID,
		"rating":  4,
		"comment": "great selection",
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var comment model.Comment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comment))
	assert.Equal(t, "Nour Hassan", comment.UserName)

	// Rating out of range: 400.
	rec = doJSON(t, s, http.MethodPost, "/api/comments/addComment", map[string]any{
		"postId":  post.ID,
		"rating":  9,
		"comment": "way too enthusiastic",
	}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Listing a post's comments is public.
	rec = doJSON(t, s, http.MethodGet, "/api/comments/getComments/"+post.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Comments   []model.Comment `json:"comments"`
		TotalCount int             `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.TotalCount)

	// The moderation listing is admin-only.
	rec = doJSON(t, s, http.MethodGet, "/api/comments/getAllComments", nil, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin, _ := adminCookie(t, s)
	rec = doJSON(t, s, http.MethodGet, "/api/comments/getAllComments", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Admin deletes the comment.
	rec = doJSON(t, s, http.MethodDelete, "/api/comments/deleteComments/"+comment.ID, nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserRoutes(t *testing.T) {
	s := newTestServer(t)

	cookie := signupUser(t, s, "Nour Hassan", "nour@example.com")
	otherCookie := signupUser(t, s, "Sara Ali", "sara@example.com")

	// Pull our own ID from the signin response.
	rec := doJSON(t, s, http.MethodPost, "/api/auth/signin", map[string]string{
		"email":    "nour@example.com",
		"password": "secret-password",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var me model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))

	// Someone else may not edit the profile.
	body, contentType := multipartBody(t, map[string]string{"fullName": "Hacked"})
	req := httptest.NewRequest(http.MethodPut, "/api/user/update/"+me.ID, body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(otherCookie)
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// Self-edit works.
	body, contentType = multipartBody(t, map[string]string{"fullName": "Nour H."})
	req = httptest.NewRequest(http.MethodPut, "/api/user/update/"+me.ID, body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)
	recorder = httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	var updated model.User
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &updated))
	assert.Equal(t, "Nour H.", updated.FullName)

	// The account listing is admin-only.
	rec = doJSON(t, s, http.MethodGet, "/api/user/getUser", nil, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin, _ := adminCookie(t, s)
	rec = doJSON(t, s, http.MethodGet, "/api/user/getUser", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Users []model.User `json:"users"`
		Stats struct {
			TotalUsers int `json:"totalUsers"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, 3, listing.Stats.TotalUsers) // two signups + the admin
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	// Admin hard-deletes an account; self-delete route stays self-only.
	rec = doJSON(t, s, http.MethodDelete, "/api/user/delete/"+me.ID, nil, otherCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = doJSON(t, s, http.MethodDelete, "/api/user/admin-delete/"+me.ID, nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignout(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/user/signout", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := authCookie(t, rec)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge, "signout must expire the cookie")
}
