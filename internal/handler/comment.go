package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/socialhub/internal/model"
	"github.com/sakif/socialhub/internal/service"
)

type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

type commentRequest struct {
	PostID  string `json:"post_id"`
	Content string `json:"content"`
}

type commentResponse struct {
	Message string         `json:"message"`
	Comment *model.Comment `json:"comment"`
}

type commentsResponse struct {
	Comments   []model.Comment `json:"comments"`
	Pagination model.Page      `json:"pagination"`
}

// HandleCreate handles POST /api/comments. The post id is part of the body.
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	comment, err := h.comments.Create(r.Context(), callerID(r), req.PostID, req.Content)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, commentResponse{Message: "Comment created successfully", Comment: comment})
}

// HandleUpdate handles PUT /api/comments/{comment_id}.
func (h *CommentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	comment, err := h.comments.Update(r.Context(), chi.URLParam(r, "comment_id"), callerID(r), req.Content)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, commentResponse{Message: "Comment updated successfully", Comment: comment})
}

// HandleDelete handles DELETE /api/comments/{comment_id}.
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.comments.Delete(r.Context(), chi.URLParam(r, "comment_id"), callerID(r)); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Comment deleted successfully"})
}

// HandleListByPost handles GET /api/comments/post/{post_id}.
func (h *CommentHandler) HandleListByPost(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	comments, pg, err := h.comments.ListByPost(r.Context(), chi.URLParam(r, "post_id"), viewerID(r), page, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	writeJSON(w, http.StatusOK, commentsResponse{Comments: comments, Pagination: pg})
}
