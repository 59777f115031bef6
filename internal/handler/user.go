package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendlylisteh/server/internal/apperror"
	"github.com/friendlylisteh/server/internal/auth"
	"github.com/friendlylisteh/server/internal/model"
	"github.com/friendlylisteh/server/internal/service"
)

// UserHandler serves account management endpoints.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// userListResponse is the admin dashboard envelope: a page of accounts plus
// signup counters.
type userListResponse struct {
	Users      []model.User `json:"users"`
	Pagination Pagination   `json:"pagination"`
	Stats      userStats    `json:"stats"`
}

type userStats struct {
	TotalUsers     int `json:"totalUsers"`
	LastMonthUsers int `json:"lastMonthUsers"`
}

// HandleUpdate edits the caller's own profile.
//
// HTTP: PUT /api/user/update/{userId} (auth, self-only, multipart)
//
// Fields: fullName, email, password — all optional — plus an optional avatar
// file under "image".
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
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

	user, err := h.users.Update(r.Context(), id, chi.URLParam(r, "userId"), service.UpdateUserInput{
		FullName: r.FormValue("fullName"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		Image:    image,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleDelete removes the caller's own account.
//
// HTTP: DELETE /api/user/delete/{userId} (auth, self-only)
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	if err := h.users.Delete(r.Context(), id, chi.URLParam(r, "userId")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}

// HandleAdminDelete removes any account.
//
// HTTP: DELETE /api/user/admin-delete/{userId} (admin)
func (h *UserHandler) HandleAdminDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	if err := h.users.AdminDelete(r.Context(), id, chi.URLParam(r, "userId")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}

// HandleList pages through accounts for the admin dashboard.
//
// HTTP: GET /api/user/getUser?startIndex&limit&sort (admin)
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	page, err := h.users.List(r.Context(), id,
		queryInt(r, "limit", 0),
		queryInt(r, "startIndex", 0),
		r.URL.Query().Get("sort") == "asc",
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userListResponse{
		Users: page.Users,
		Pagination: Pagination{
			TotalCount: page.TotalCount,
			TotalPages: totalPages(page.TotalCount, page.Limit),
			StartIndex: page.StartIndex,
			Limit:      page.Limit,
		},
		Stats: userStats{
			TotalUsers:     page.TotalCount,
			LastMonthUsers: page.LastMonthCount,
		},
	})
}

// HandleGet looks up a single account.
//
// HTTP: GET /api/user/{userId} (admin)
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	user, err := h.users.Get(r.Context(), id, chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
