package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/socialhub/internal/model"
	"github.com/sakif/socialhub/internal/service"
)

// PostHandler serves post CRUD, the feed and post search.
type PostHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

type postResponse struct {
	Message string      `json:"message,omitempty"`
	Post    *model.Post `json:"post"`
}

type postsResponse struct {
	Posts      []model.Post `json:"posts"`
	Pagination model.Page   `json:"pagination"`
}

// listFunc is the shape shared by every paginated post listing.
type listFunc func(r *http.Request, page, limit int) ([]model.Post, model.Page, error)

func (h *PostHandler) list(w http.ResponseWriter, r *http.Request, fn listFunc) {
	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	posts, pg, err := fn(r, page, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if posts == nil {
		posts = []model.Post{}
	}
	writeJSON(w, http.StatusOK, postsResponse{Posts: posts, Pagination: pg})
}

// HandleCreate handles POST /api/posts.
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req service.PostInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	post, err := h.posts.Create(r.Context(), callerID(r), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, postResponse{Message: "Post created successfully", Post: post})
}

// HandleGet handles GET /api/posts/{post_id}. The owner also sees their
// scheduled posts; anyone else gets 404 until the post is published.
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "post_id"), viewerID(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, postResponse{Post: post})
}

// HandleRecent handles GET /api/posts.
func (h *PostHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(r *http.Request, page, limit int) ([]model.Post, model.Page, error) {
		return h.posts.Recent(r.Context(), page, limit)
	})
}

// HandleFeed handles GET /api/posts/feed.
func (h *PostHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(r *http.Request, page, limit int) ([]model.Post, model.Page, error) {
		return h.posts.Feed(r.Context(), callerID(r), page, limit)
	})
}

// HandleSearch handles GET /api/posts/search?q=.
func (h *PostHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(r *http.Request, page, limit int) ([]model.Post, model.Page, error) {
		return h.posts.Search(r.Context(), r.URL.Query().Get("q"), page, limit)
	})
}

// HandleListMine handles GET /api/posts/me, scheduled posts included.
func (h *PostHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(r *http.Request, page, limit int) ([]model.Post, model.Page, error) {
		me := callerID(r)
		return h.posts.ListByUser(r.Context(), me, me, page, limit)
	})
}

// HandleListByUser handles GET /api/posts/user/{user_id}.
func (h *PostHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(r *http.Request, page, limit int) ([]model.Post, model.Page, error) {
		return h.posts.ListByUser(r.Context(), chi.URLParam(r, "user_id"), viewerID(r), page, limit)
	})
}

// HandleUpdate handles PUT /api/posts/{post_id}.
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req service.PostPatch
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	post, err := h.posts.Update(r.Context(), chi.URLParam(r, "post_id"), callerID(r), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, postResponse{Message: "Post updated successfully", Post: post})
}

// HandleDelete handles DELETE /api/posts/{post_id}.
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.Delete(r.Context(), chi.URLParam(r, "post_id"), callerID(r)); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Post deleted successfully"})
}
