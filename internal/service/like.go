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

type LikeService struct {
	likes  repository.LikeRepository
	posts  repository.PostRepository
	users  repository.UserRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewLikeService(
	likes repository.LikeRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *LikeService {
	return &LikeService{
		likes:  likes,
		posts:  posts,
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// Like is idempotent. created is false when the caller had already liked
// the post, in which case the existing like is returned.
func (s *LikeService) Like(ctx context.Context, userID, postID string) (*model.Like, bool, error) {
	if strings.TrimSpace(postID) == "" {
		return nil, false, apperror.ValidationFailed("post_id", "post_id is required")
	}
	if _, err := requireActive(ctx, s.users, userID); err != nil {
		return nil, false, err
	}
	if _, err := visiblePost(ctx, s.posts, postID, userID, s.now()); err != nil {
		return nil, false, err
	}

	like, created, err := s.likes.Like(ctx, userID, postID)
	if err != nil {
		s.logger.Error("failed to like post",
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
		return nil, false, err
	}

	if created {
		s.logger.Info("post liked",
			slog.String("id", like.ID),
			slog.String("post_id", postID),
			slog.String("user_id", userID),
		)
	}
	return like, created, nil
}

// Unlike removes the caller's like. NotFound when there was none.
func (s *LikeService) Unlike(ctx context.Context, userID, postID string) error {
	if _, err := requireActive(ctx, s.users, userID); err != nil {
		return err
	}
	if err := s.likes.Unlike(ctx, userID, postID); err != nil {
		return err
	}
	s.logger.Info("post unliked",
		slog.String("post_id", postID),
		slog.String("user_id", userID),
	)
	return nil
}

// ListByPost lists who liked a visible post.
func (s *LikeService) ListByPost(ctx context.Context, postID, viewerID string, page, limit int) ([]model.PostLike, model.Page, error) {
	if _, err := visiblePost(ctx, s.posts, postID, viewerID, s.now()); err != nil {
		return nil, model.Page{}, err
	}

	opts, pg := paging(page, limit)
	likes, hasMore, err := s.likes.ListLikesByPost(ctx, postID, opts)
	if err != nil {
		return nil, pg, err
	}
	pg.HasMore = hasMore
	return likes, pg, nil
}

// ListByUser lists the visible posts a user liked.
func (s *LikeService) ListByUser(ctx context.Context, userID string, page, limit int) ([]model.LikedPost, model.Page, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, model.Page{}, err
	}

	opts, pg := paging(page, limit)
	liked, hasMore, err := s.likes.ListLikesByUser(ctx, userID, s.now(), opts)
	if err != nil {
		return nil, pg, err
	}
	pg.HasMore = hasMore
	return liked, pg, nil
}
