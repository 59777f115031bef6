package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/friendlylisteh/server/internal/apperror"
	"github.com/friendlylisteh/server/internal/auth"
	"github.com/friendlylisteh/server/internal/model"
	"github.com/friendlylisteh/server/internal/repository"
)

// Hand-written in-memory mocks for the repository interfaces. They implement
// just enough semantics (uniqueness, not-found, ordering) for the services to
// behave like they would against sqlite, without any I/O.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func identityFor(u *model.User) auth.Identity {
	return auth.Identity{UserID: u.ID, IsAdmin: u.IsAdmin}
}

// --- users ---

type mockUserRepo struct {
	users  map[string]*model.User
	nextID int
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperror.Duplicate("email", "an account with this email already exists")
		}
		if u.FullName == user.FullName {
			return apperror.Duplicate("fullName", "an account with this name already exists")
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) ListUsers(_ context.Context, opts repository.ListOptions, orderAsc bool) ([]model.User, error) {
	result := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool {
		if orderAsc {
			return result[i].ID < result[j].ID
		}
		return result[i].ID > result[j].ID
	})
	return paginate(result, opts), nil
}

func (m *mockUserRepo) CountUsers(_ context.Context) (int, error) {
	return len(m.users), nil
}

func (m *mockUserRepo) CountUsersCreatedSince(_ context.Context, since time.Time) (int, error) {
	n := 0
	for _, u := range m.users {
		if !u.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *mockUserRepo) UpdateUser(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	for id, u := range m.users {
		if id == user.ID {
			continue
		}
		if strings.EqualFold(u.Email, user.Email) {
			return apperror.Duplicate("email", "an account with this email already exists")
		}
		if u.FullName == user.FullName {
			return apperror.Duplicate("fullName", "an account with this name already exists")
		}
	}
	user.UpdatedAt = time.Now()
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) DeleteUser(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(m.users, id)
	return nil
}

// --- posts ---

type mockPostRepo struct {
	posts  map[string]*model.Post
	nextID int
}

var _ repository.PostRepository = (*mockPostRepo)(nil)

func newMockPostRepo() *mockPostRepo {
	return &mockPostRepo{posts: make(map[string]*model.Post)}
}

func (m *mockPostRepo) CreatePost(_ context.Context, post *model.Post) error {
	for _, p := range m.posts {
		if p.Slug == post.Slug {
			return apperror.Duplicate("slug", fmt.Sprintf("a post with slug %q already exists", post.Slug))
		}
	}
	m.nextID++
	post.ID = fmt.Sprintf("post-%d", m.nextID)
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now
	stored := *post
	m.posts[post.ID] = &stored
	return nil
}

func (m *mockPostRepo) GetPostByID(_ context.Context, id string) (*model.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	result := *p
	return &result, nil
}

func (m *mockPostRepo) matching(filter repository.PostFilter) []model.Post {
	result := make([]model.Post, 0, len(m.posts))
	for _, p := range m.posts {
		if filter.UserID != "" && p.UserID != filter.UserID {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Slug != "" && p.Slug != filter.Slug {
			continue
		}
		if filter.PostID != "" && p.ID != filter.PostID {
			continue
		}
		if filter.SearchTerm != "" {
			term := strings.ToLower(filter.SearchTerm)
			if !strings.Contains(strings.ToLower(p.Name), term) &&
				!strings.Contains(strings.ToLower(p.Description), term) &&
				!strings.Contains(strings.ToLower(p.Location), term) {
				continue
			}
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool {
		if filter.OrderAsc {
			return result[i].ID < result[j].ID
		}
		return result[i].ID > result[j].ID
	})
	return result
}

func (m *mockPostRepo) ListPosts(_ context.Context, filter repository.PostFilter, opts repository.ListOptions) ([]model.Post, error) {
	return paginate(m.matching(filter), opts), nil
}

func (m *mockPostRepo) CountPosts(_ context.Context, filter repository.PostFilter) (int, error) {
	return len(m.matching(filter)), nil
}

func (m *mockPostRepo) CountPostsCreatedSince(_ context.Context, filter repository.PostFilter, since time.Time) (int, error) {
	n := 0
	for _, p := range m.matching(filter) {
		if !p.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *mockPostRepo) UpdatePost(_ context.Context, post *model.Post) error {
	if _, ok := m.posts[post.ID]; !ok {
		return apperror.NotFound("post", post.ID)
	}
	for id, p := range m.posts {
		if id != post.ID && p.Slug == post.Slug {
			return apperror.Duplicate("slug", fmt.Sprintf("a post with slug %q already exists", post.Slug))
		}
	}
	post.UpdatedAt = time.Now()
	stored := *post
	m.posts[post.ID] = &stored
	return nil
}

func (m *mockPostRepo) DeletePost(_ context.Context, id string) error {
	if _, ok := m.posts[id]; !ok {
		return apperror.NotFound("post", id)
	}
	delete(m.posts, id)
	return nil
}

// --- comments ---

type mockCommentRepo struct {
	comments map[string]*model.Comment
	nextID   int
}

var _ repository.CommentRepository = (*mockCommentRepo)(nil)

func newMockCommentRepo() *mockCommentRepo {
	return &mockCommentRepo{comments: make(map[string]*model.Comment)}
}

func (m *mockCommentRepo) CreateComment(_ context.Context, comment *model.Comment) error {
	m.nextID++
	comment.ID = fmt.Sprintf("comment-%d", m.nextID)
	comment.CreatedAt = time.Now()
	stored := *comment
	m.comments[comment.ID] = &stored
	return nil
}

func (m *mockCommentRepo) GetCommentByID(_ context.Context, id string) (*model.Comment, error) {
	c, ok := m.comments[id]
	if !ok {
		return nil, apperror.NotFound("comment", id)
	}
	result := *c
	return &result, nil
}

func (m *mockCommentRepo) byPost(postID string) []model.Comment {
	result := make([]model.Comment, 0)
	for _, c := range m.comments {
		if postID == "" || c.PostID == postID {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result
}

func (m *mockCommentRepo) ListCommentsByPost(_ context.Context, postID string, opts repository.ListOptions) ([]model.Comment, error) {
	return paginate(m.byPost(postID), opts), nil
}

func (m *mockCommentRepo) CountCommentsByPost(_ context.Context, postID string) (int, error) {
	return len(m.byPost(postID)), nil
}

func (m *mockCommentRepo) ListComments(_ context.Context, opts repository.ListOptions) ([]model.Comment, error) {
	return paginate(m.byPost(""), opts), nil
}

func (m *mockCommentRepo) CountComments(_ context.Context) (int, error) {
	return len(m.comments), nil
}

func (m *mockCommentRepo) DeleteComment(_ context.Context, id string) error {
	if _, ok := m.comments[id]; !ok {
		return apperror.NotFound("comment", id)
	}
	delete(m.comments, id)
	return nil
}

// --- favorites ---

type mockFavoriteRepo struct {
	favorites map[string]*model.Favorite
	nextID    int
}

var _ repository.FavoriteRepository = (*mockFavoriteRepo)(nil)

func newMockFavoriteRepo() *mockFavoriteRepo {
	return &mockFavoriteRepo{favorites: make(map[string]*model.Favorite)}
}

func (m *mockFavoriteRepo) CreateFavorite(_ context.Context, favorite *model.Favorite) error {
	m.nextID++
	favorite.ID = fmt.Sprintf("favorite-%d", m.nextID)
	favorite.CreatedAt = time.Now()
	stored := *favorite
	m.favorites[favorite.ID] = &stored
	return nil
}

func (m *mockFavoriteRepo) GetFavoriteByUserAndPost(_ context.Context, userID, postID string) (*model.Favorite, error) {
	for _, f := range m.favorites {
		if f.UserID == userID && f.PostID == postID {
			result := *f
			return &result, nil
		}
	}
	return nil, apperror.NotFound("favorite", postID)
}

func (m *mockFavoriteRepo) ListFavoritesByUser(_ context.Context, userID string, opts repository.ListOptions) ([]model.Favorite, error) {
	result := make([]model.Favorite, 0)
	for _, f := range m.favorites {
		if f.UserID == userID {
			result = append(result, *f)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return paginate(result, opts), nil
}

func (m *mockFavoriteRepo) CountFavoritesByUser(_ context.Context, userID string) (int, error) {
	n := 0
	for _, f := range m.favorites {
		if f.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *mockFavoriteRepo) DeleteFavorite(_ context.Context, id string) error {
	if _, ok := m.favorites[id]; !ok {
		return apperror.NotFound("favorite", id)
	}
	delete(m.favorites, id)
	return nil
}

// paginate applies Limit/Offset the same way the sqlite layer does.
func paginate[T any](items []T, opts repository.ListOptions) []T {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}
