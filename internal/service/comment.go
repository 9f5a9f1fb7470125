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

type commentInput struct {
	Content string `json:"content" validate:"required,max=1000"`
}

type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	users    repository.UserRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		comments: comments,
		posts:    posts,
		users:    users,
		logger:   logger,
		now:      time.Now,
	}
}

// Create adds a comment to a post the caller can see. A post with comments
// disabled is Forbidden, not NotFound: the post itself is visible.
func (s *CommentService) Create(ctx context.Context, userID, postID, content string) (*model.Comment, error) {
	in := commentInput{Content: strings.TrimSpace(content)}
	if strings.TrimSpace(postID) == "" {
		return nil, apperror.ValidationFailed("post_id", "post_id is required")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if _, err := requireActive(ctx, s.users, userID); err != nil {
		return nil, err
	}

	post, err := visiblePost(ctx, s.posts, postID, userID, s.now())
	if err != nil {
		return nil, err
	}
	if !post.CommentsEnabled {
		return nil, apperror.Forbidden("comments are disabled for this post")
	}

	comment := &model.Comment{PostID: postID, UserID: userID, Content: in.Content}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		s.logger.Error("failed to create comment",
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("comment created",
		slog.String("id", comment.ID),
		slog.String("post_id", postID),
	)
	return comment, nil
}

// ListByPost returns a visible post's comments, oldest first.
func (s *CommentService) ListByPost(ctx context.Context, postID, viewerID string, page, limit int) ([]model.Comment, model.Page, error) {
	if _, err := visiblePost(ctx, s.posts, postID, viewerID, s.now()); err != nil {
		return nil, model.Page{}, err
	}

	opts, pg := paging(page, limit)
	comments, hasMore, err := s.comments.ListCommentsByPost(ctx, postID, opts)
	if err != nil {
		return nil, pg, err
	}
	pg.HasMore = hasMore
	return comments, pg, nil
}

// Update rewrites a comment owned by userID. Someone else's comment is NotFound.
func (s *CommentService) Update(ctx context.Context, id, userID, content string) (*model.Comment, error) {
	in := commentInput{Content: strings.TrimSpace(content)}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if _, err := requireActive(ctx, s.users, userID); err != nil {
		return nil, err
	}

	comment, err := s.comments.UpdateComment(ctx, id, userID, in.Content)
	if err != nil {
		return nil, err
	}
	s.logger.Info("comment updated", slog.String("id", id))
	return comment, nil
}

// Delete removes a comment owned by userID.
func (s *CommentService) Delete(ctx context.Context, id, userID string) error {
	if _, err := requireActive(ctx, s.users, userID); err != nil {
		return err
	}
	if err := s.comments.DeleteComment(ctx, id, userID); err != nil {
		return err
	}
	s.logger.Info("comment deleted", slog.String("id", id))
	return nil
}
