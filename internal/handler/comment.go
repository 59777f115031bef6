package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendlylisteh/server/internal/apperror"
	"github.com/friendlylisteh/server/internal/auth"
	"github.com/friendlylisteh/server/internal/model"
	"github.com/friendlylisteh/server/internal/service"
)

// CommentHandler serves the rating/review endpoints.
type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

type addCommentRequest struct {
	PostID  string `json:"postId"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// commentListResponse uses page-based pagination, unlike the offset-based
// post listing — the comment widgets paginate by page number.
type commentListResponse struct {
	Comments    []model.Comment `json:"comments"`
	TotalCount  int             `json:"totalCount"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
}

// HandleAdd leaves a rating + review on a post.
//
// HTTP: POST /api/comments/addComment (auth)
func (h *CommentHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON request body"))
		return
	}

	comment, err := h.comments.Add(r.Context(), id, req.PostID, req.Rating, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

// HandleGetByPost lists a post's comments, newest first. Public.
//
// HTTP: GET /api/comments/getComments/{postId}?page&limit
func (h *CommentHandler) HandleGetByPost(w http.ResponseWriter, r *http.Request) {
	page, err := h.comments.ListByPost(r.Context(),
		chi.URLParam(r, "postId"),
		queryInt(r, "page", 1),
		queryInt(r, "limit", 0),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, commentListResponse{
		Comments:    page.Comments,
		TotalCount:  page.TotalCount,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
	})
}

// HandleGetAll lists comments across every post for the moderation dashboard.
//
// HTTP: GET /api/comments/getAllComments?page&limit (admin)
func (h *CommentHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	page, err := h.comments.ListAll(r.Context(), id,
		queryInt(r, "page", 1),
		queryInt(r, "limit", 0),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, commentListResponse{
		Comments:    page.Comments,
		TotalCount:  page.TotalCount,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
	})
}

// HandleDelete removes a comment (moderation).
//
// HTTP: DELETE /api/comments/deleteComments/{commentId} (admin)
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	if err := h.comments.Delete(r.Context(), id, chi.URLParam(r, "commentId")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "comment deleted"})
}
