package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/socialhub/internal/apperror"
	"github.com/sakif/socialhub/internal/model"
	"github.com/sakif/socialhub/internal/repository"
)

const (
	MaxPostLength    = 2000
	MaxCommentLength = 1000
)

// PostInput is the body of a new post. CommentsEnabled defaults to true
// when omitted. A ScheduledAt in the future hides the post from everyone
// but its author until that time; no job runs at that moment, visibility is
// decided on every read.
type PostInput struct {
	Content         string     `json:"content" validate:"required,max=2000"`
	MediaURL        string     `json:"media_url" validate:"omitempty,url,max=2048"`
	CommentsEnabled *bool      `json:"comments_enabled"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
}

// PostPatch holds optional post changes; nil leaves a field unchanged.
type PostPatch struct {
	Content         *string `json:"content" validate:"omitempty,max=2000"`
	MediaURL        *string `json:"media_url" validate:"omitempty,url,max=2048"`
	CommentsEnabled *bool   `json:"comments_enabled"`
}

// PostStats are the engagement counters of a post.
type PostStats struct {
	Likes    int `json:"like_count"`
	Comments int `json:"comment_count"`
}

type PostService struct {
	posts    repository.PostRepository
	users    repository.UserRepository
	comments repository.CommentRepository
	likes    repository.LikeRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	comments repository.CommentRepository,
	likes repository.LikeRepository,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:    posts,
		users:    users,
		comments: comments,
		likes:    likes,
		logger:   logger,
		now:      time.Now,
	}
}

// Create publishes (or schedules) a post for userID.
func (s *PostService) Create(ctx context.Context, userID string, in PostInput) (*model.Post, error) {
	in.Content = strings.TrimSpace(in.Content)
	in.MediaURL = strings.TrimSpace(in.MediaURL)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if _, err := requireActive(ctx, s.users, userID); err != nil {
		return nil, err
	}

	post := &model.Post{
		UserID:          userID,
		Content:         in.Content,
		MediaURL:        in.MediaURL,
		CommentsEnabled: true,
		ScheduledAt:     in.ScheduledAt,
	}
	if in.CommentsEnabled != nil {
		post.CommentsEnabled = *in.CommentsEnabled
	}

	if err := s.posts.CreatePost(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("user_id", userID),
		slog.Bool("scheduled", post.ScheduledAt != nil && post.ScheduledAt.After(s.now())),
	)
	// Read back for the joined author fields.
	return s.posts.GetPostByID(ctx, post.ID)
}

// Get returns a post as seen by viewerID ("" for anonymous).
func (s *PostService) Get(ctx context.Context, id, viewerID string) (*model.Post, error) {
	return visiblePost(ctx, s.posts, id, viewerID, s.now())
}

// ListByUser lists an author's posts. The author sees their scheduled
// posts too; everyone else sees only published ones.
func (s *PostService) ListByUser(ctx context.Context, userID, viewerID string, page, limit int) ([]model.Post, model.Page, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, model.Page{}, err
	}

	opts, pg := paging(page, limit)
	posts, hasMore, err := s.posts.ListPostsByUser(ctx, userID, userID == viewerID, s.now(), opts)
	if err != nil {
		return nil, pg, err
	}
	pg.HasMore = hasMore
	return posts, pg, nil
}

// Recent lists every visible post, newest first.
func (s *PostService) Recent(ctx context.Context, page, limit int) ([]model.Post, model.Page, error) {
	opts, pg := paging(page, limit)
	posts, hasMore, err := s.posts.ListRecentPosts(ctx, s.now(), opts)
	if err != nil {
		return nil, pg, err
	}
	pg.HasMore = hasMore
	return posts, pg, nil
}

// Feed is the caller's own posts plus those of everyone they follow.
func (s *PostService) Feed(ctx context.Context, userID string, page, limit int) ([]model.Post, model.Page, error) {
	opts, pg := paging(page, limit)
	posts, hasMore, err := s.posts.Feed(ctx, userID, s.now(), opts)
	if err != nil {
		return nil, pg, err
	}
	pg.HasMore = hasMore
	return posts, pg, nil
}

// Search matches post content, case-insensitively.
func (s *PostService) Search(ctx context.Context, query string, page, limit int) ([]model.Post, model.Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.Page{}, apperror.ValidationFailed("q", "search query is required")
	}

	opts, pg := paging(page, limit)
	posts, hasMore, err := s.posts.SearchPosts(ctx, query, s.now(), opts)
	if err != nil {
		return nil, pg, err
	}
	pg.HasMore = hasMore
	return posts, pg, nil
}

// Update edits a post owned by userID. Someone else's post is NotFound.
func (s *PostService) Update(ctx context.Context, id, userID string, in PostPatch) (*model.Post, error) {
	in.Content = trimPtr(in.Content)
	in.MediaURL = trimPtr(in.MediaURL)
	if in.Content != nil && *in.Content == "" {
		return nil, apperror.ValidationFailed("content", "content cannot be empty")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if _, err := requireActive(ctx, s.users, userID); err != nil {
		return nil, err
	}

	post, err := s.posts.UpdatePost(ctx, id, userID, model.PostUpdate{
		Content:         in.Content,
		MediaURL:        in.MediaURL,
		CommentsEnabled: in.CommentsEnabled,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("post updated", slog.String("id", id))
	return post, nil
}

// Delete soft-deletes a post owned by userID.
func (s *PostService) Delete(ctx context.Context, id, userID string) error {
	if _, err := requireActive(ctx, s.users, userID); err != nil {
		return err
	}
	if err := s.posts.SoftDeletePost(ctx, id, userID); err != nil {
		return err
	}
	s.logger.Info("post deleted", slog.String("id", id))
	return nil
}

// Stats counts likes and comments on a post.
func (s *PostService) Stats(ctx context.Context, postID string) (PostStats, error) {
	var stats PostStats
	var err error
	if stats.Likes, err = s.likes.CountLikesByPost(ctx, postID); err != nil {
		return stats, err
	}
	if stats.Comments, err = s.comments.CountCommentsByPost(ctx, postID); err != nil {
		return stats, err
	}
	return stats, nil
}
