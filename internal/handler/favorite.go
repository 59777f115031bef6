package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/friendlylisteh/server/internal/apperror"
	"github.com/friendlylisteh/server/internal/auth"
	"github.com/friendlylisteh/server/internal/model"
	"github.com/friendlylisteh/server/internal/service"
)

// FavoriteHandler serves the bookmark endpoints. Both routes require auth —
// favorites only exist relative to a signed-in user.
type FavoriteHandler struct {
	favorites *service.FavoriteService
	logger    *slog.Logger
}

func NewFavoriteHandler(favorites *service.FavoriteService, logger *slog.Logger) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites, logger: logger}
}

type toggleRequest struct {
	PostID string `json:"postId"`
}

type favoriteListResponse struct {
	Posts      []model.Post `json:"posts"`
	Pagination Pagination   `json:"pagination"`
}

// HandleToggle flips the favorite state of a post for the caller.
//
// HTTP: POST /api/favorites/toggle (auth)
func (h *FavoriteHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON request body"))
		return
	}
	if req.PostID == "" {
		writeError(w, apperror.ValidationFailed("postId", "postId is required"))
		return
	}

	result, err := h.favorites.Toggle(r.Context(), id, req.PostID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleRead lists the caller's favorited posts, newest favorite first.
//
// HTTP: GET /api/favorites/read?startIndex&limit (auth)
func (h *FavoriteHandler) HandleRead(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	page, err := h.favorites.List(r.Context(), id,
		queryInt(r, "limit", 0),
		queryInt(r, "startIndex", 0),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, favoriteListResponse{
		Posts: page.Posts,
		Pagination: Pagination{
			TotalCount: page.TotalCount,
			TotalPages: totalPages(page.TotalCount, page.Limit),
			StartIndex: page.StartIndex,
			Limit:      page.Limit,
		},
	})
}
