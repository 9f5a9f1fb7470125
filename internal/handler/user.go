package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/socialhub/internal/model"
	"github.com/sakif/socialhub/internal/service"
)

// UserHandler serves profiles, user search and the follow graph.
type UserHandler struct {
	users   *service.UserService
	follows *service.FollowService
	logger  *slog.Logger
}

func NewUserHandler(users *service.UserService, follows *service.FollowService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, follows: follows, logger: logger}
}

type userResponse struct {
	Message string      `json:"message,omitempty"`
	User    *model.User `json:"user"`
}

type usersResponse struct {
	Users      []model.User `json:"users"`
	Pagination model.Page   `json:"pagination"`
}

type followResponse struct {
	Message string        `json:"message"`
	Follow  *model.Follow `json:"follow"`
	Created bool          `json:"created"`
}

type followersResponse struct {
	Followers  []model.FollowUser `json:"followers"`
	Pagination model.Page         `json:"pagination"`
}

type followingResponse struct {
	Following  []model.FollowUser `json:"following"`
	Pagination model.Page         `json:"pagination"`
}

// HandleMe handles GET /api/users/me.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.Me(r.Context(), callerID(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleUpdateMe handles PUT /api/users/me.
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req service.ProfileInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), callerID(r), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Message: "Profile updated successfully", User: user})
}

// HandleDeleteMe handles DELETE /api/users/me.
func (h *UserHandler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.users.DeleteAccount(r.Context(), callerID(r)); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Account deleted successfully"})
}

// HandleSearch handles GET /api/users/search?q=.
func (h *UserHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	users, pg, err := h.users.Search(r.Context(), r.URL.Query().Get("q"), page, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, usersResponse{Users: users, Pagination: pg})
}

// HandleGet handles GET /api/users/{user_id}.
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.GetProfile(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleFollow handles POST /api/users/{user_id}/follow. Following someone
// twice is not an error: the second call answers 200 with created=false.
func (h *UserHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	follow, created, err := h.follows.Follow(r.Context(), callerID(r), chi.URLParam(r, "user_id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	status, msg := http.StatusCreated, "Followed user successfully."
	if !created {
		status, msg = http.StatusOK, "Already following this user."
	}
	writeJSON(w, status, followResponse{Message: msg, Follow: follow, Created: created})
}

// HandleUnfollow handles DELETE /api/users/{user_id}/unfollow.
func (h *UserHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	if err := h.follows.Unfollow(r.Context(), callerID(r), chi.URLParam(r, "user_id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Unfollowed user successfully."})
}

// HandleFollowers handles GET /api/users/{user_id}/followers.
func (h *UserHandler) HandleFollowers(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	users, pg, err := h.follows.Followers(r.Context(), chi.URLParam(r, "user_id"), page, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, followersResponse{Followers: users, Pagination: pg})
}

// HandleFollowing handles GET /api/users/{user_id}/following.
func (h *UserHandler) HandleFollowing(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	users, pg, err := h.follows.Following(r.Context(), chi.URLParam(r, "user_id"), page, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, followingResponse{Following: users, Pagination: pg})
}

// HandleFollowCounts handles GET /api/users/{user_id}/follow-counts.
func (h *UserHandler) HandleFollowCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.follows.Counts(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
