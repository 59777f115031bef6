package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendlylisteh/server/internal/apperror"
	"github.com/friendlylisteh/server/internal/auth"
	"github.com/friendlylisteh/server/internal/model"
	"github.com/friendlylisteh/server/internal/service"
)

// maxImageSize caps uploaded image files at 5MB.
const maxImageSize = 5 << 20

// maxMultipartMemory is how much of a multipart body is held in memory before
// spilling to temp files. Slightly above the image cap so typical requests
// never touch disk.
const maxMultipartMemory = 8 << 20

// PostHandler serves the brand listing endpoints.
type PostHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

// postListResponse is the envelope of the read endpoint.
type postListResponse struct {
	Posts          []model.Post `json:"posts"`
	Pagination     Pagination   `json:"pagination"`
	LastMonthPosts int          `json:"lastMonthPosts"`
}

// HandleCreate publishes a new listing.
//
// HTTP: POST /api/post/create (admin only, multipart/form-data)
//
// Fields: name, description, location, category, repeated socialLinks, and an
// optional image file under "image".
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	image, cleanup, err := parseUploadForm(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cleanup()

	post, err := h.posts.Create(r.Context(), id, service.CreatePostInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Location:    r.FormValue("location"),
		Category:    r.FormValue("category"),
		SocialLinks: r.Form["socialLinks"],
		Image:       image,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// HandleRead lists listings. Public — anonymous browsing is the main use.
//
// HTTP: GET /api/post/read?userId&category&slug&postId&searchTerm&startIndex&limit&order
func (h *PostHandler) HandleRead(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := h.posts.Read(r.Context(), service.PostQuery{
		UserID:     q.Get("userId"),
		Category:   q.Get("category"),
		Slug:       q.Get("slug"),
		PostID:     q.Get("postId"),
		SearchTerm: q.Get("searchTerm"),
		OrderAsc:   q.Get("order") == "asc",
		Limit:      queryInt(r, "limit", 0),
		StartIndex: queryInt(r, "startIndex", 0),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, postListResponse{
		Posts: page.Posts,
		Pagination: Pagination{
			TotalCount: page.TotalCount,
			TotalPages: totalPages(page.TotalCount, page.Limit),
			StartIndex: page.StartIndex,
			Limit:      page.Limit,
		},
		LastMonthPosts: page.LastMonthCount,
	})
}

// HandleUpdate applies a partial update to a listing.
//
// HTTP: PUT /api/post/update/{postId}/{userId} (owner or any admin, multipart)
//
// The userId path segment mirrors the SPA's routing; authorization is decided
// against the listing's stored owner, not the URL.
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	image, cleanup, err := parseUploadForm(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cleanup()

	var links []string
	if _, ok := r.Form["socialLinks"]; ok {
		links = r.Form["socialLinks"]
	}

	post, err := h.posts.Update(r.Context(), id, chi.URLParam(r, "postId"), service.UpdatePostInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Location:    r.FormValue("location"),
		Category:    r.FormValue("category"),
		SocialLinks: links,
		Image:       image,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleDelete removes a listing.
//
// HTTP: DELETE /api/post/delete/{postId}/{userId} (owner or any admin)
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	if err := h.posts.Delete(r.Context(), id, chi.URLParam(r, "postId")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseUploadForm parses a multipart form and extracts the optional image
// file (listing pictures and avatars alike). Returns a nil reader when no file was attached, and a cleanup func
// that closes the file (a no-op when there is none).
func parseUploadForm(r *http.Request) (io.Reader, func(), error) {
	noop := func() {}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, noop, apperror.ValidationFailed("body", "expected multipart/form-data")
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, noop, nil
		}
		return nil, noop, apperror.ValidationFailed("image", "could not read image file")
	}

	if header.Size > maxImageSize {
		file.Close()
		return nil, noop, apperror.ValidationFailed("image", "image must be 5MB or smaller")
	}

	return file, func() { file.Close() }, nil
}
