package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/socialhub/internal/model"
	"github.com/sakif/socialhub/internal/service"
)

type LikeHandler struct {
	likes  *service.LikeService
	logger *slog.Logger
}

func NewLikeHandler(likes *service.LikeService, logger *slog.Logger) *LikeHandler {
	return &LikeHandler{likes: likes, logger: logger}
}

type likeRequest struct {
	PostID string `json:"post_id"`
}

type likeResponse struct {
	Message string      `json:"message"`
	Like    *model.Like `json:"like"`
}

type postLikesResponse struct {
	Likes      []model.PostLike `json:"likes"`
	Pagination model.Page       `json:"pagination"`
}

type userLikesResponse struct {
	Likes      []model.LikedPost `json:"likes"`
	Pagination model.Page        `json:"pagination"`
}

// HandleLike handles POST /api/likes. Liking twice is idempotent: 201 the
// first time, 200 with the existing like afterwards.
func (h *LikeHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	var req likeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	like, created, err := h.likes.Like(r.Context(), callerID(r), req.PostID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	status, msg := http.StatusCreated, "Post liked successfully"
	if !created {
		status, msg = http.StatusOK, "Post already liked"
	}
	writeJSON(w, status, likeResponse{Message: msg, Like: like})
}

// HandleUnlike handles DELETE /api/likes/{post_id}.
func (h *LikeHandler) HandleUnlike(w http.ResponseWriter, r *http.Request) {
	if err := h.likes.Unlike(r.Context(), callerID(r), chi.URLParam(r, "post_id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Post unliked successfully"})
}

// HandleListByPost handles GET /api/likes/post/{post_id}.
func (h *LikeHandler) HandleListByPost(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	likes, pg, err := h.likes.ListByPost(r.Context(), chi.URLParam(r, "post_id"), viewerID(r), page, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if likes == nil {
		likes = []model.PostLike{}
	}
	writeJSON(w, http.StatusOK, postLikesResponse{Likes: likes, Pagination: pg})
}

// HandleListByUser handles GET /api/likes/user/{user_id}.
func (h *LikeHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	likes, pg, err := h.likes.ListByUser(r.Context(), chi.URLParam(r, "user_id"), page, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if likes == nil {
		likes = []model.LikedPost{}
	}
	writeJSON(w, http.StatusOK, userLikesResponse{Likes: likes, Pagination: pg})
}
