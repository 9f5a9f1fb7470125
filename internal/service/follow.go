package service

import (
	"context"
	"log/slog"

	"github.com/sakif/socialhub/internal/apperror"
	"github.com/sakif/socialhub/internal/model"
	"github.com/sakif/socialhub/internal/repository"
)

type FollowService struct {
	follows repository.FollowRepository
	users   repository.UserRepository
	logger  *slog.Logger
}

func NewFollowService(follows repository.FollowRepository, users repository.UserRepository, logger *slog.Logger) *FollowService {
	return &FollowService{
		follows: follows,
		users:   users,
		logger:  logger,
	}
}

// checkPair applies the rules shared by Follow and Unfollow: no self-edges,
// and the target must be an active user.
func (s *FollowService) checkPair(ctx context.Context, followerID, followingID string) error {
	if followingID == "" {
		return apperror.ValidationFailed("user_id", "user_id is required")
	}
	if followerID == followingID {
		return apperror.ValidationFailed("user_id", "you cannot follow yourself")
	}
	if _, err := requireActive(ctx, s.users, followerID); err != nil {
		return err
	}
	if _, err := s.users.GetUserByID(ctx, followingID); err != nil {
		return err
	}
	return nil
}

// Follow is idempotent. created is false when the edge already existed.
func (s *FollowService) Follow(ctx context.Context, followerID, followingID string) (*model.Follow, bool, error) {
	if err := s.checkPair(ctx, followerID, followingID); err != nil {
		return nil, false, err
	}

	follow, created, err := s.follows.Follow(ctx, followerID, followingID)
	if err != nil {
		s.logger.Error("failed to follow user",
			slog.String("following_id", followingID),
			slog.String("error", err.Error()),
		)
		return nil, false, err
	}

	if created {
		s.logger.Info("user followed",
			slog.String("follower_id", followerID),
			slog.String("following_id", followingID),
		)
	}
	return follow, created, nil
}

// Unfollow removes the edge. NotFound when the caller was not following.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID string) error {
	if err := s.checkPair(ctx, followerID, followingID); err != nil {
		return err
	}
	if err := s.follows.Unfollow(ctx, followerID, followingID); err != nil {
		return err
	}
	s.logger.Info("user unfollowed",
		slog.String("follower_id", followerID),
		slog.String("following_id", followingID),
	)
	return nil
}

func (s *FollowService) Followers(ctx context.Context, userID string, page, limit int) ([]model.FollowUser, model.Page, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, model.Page{}, err
	}
	opts, pg := paging(page, limit)
	users, hasMore, err := s.follows.ListFollowers(ctx, userID, opts)
	if err != nil {
		return nil, pg, err
	}
	pg.HasMore = hasMore
	return users, pg, nil
}

func (s *FollowService) Following(ctx context.Context, userID string, page, limit int) ([]model.FollowUser, model.Page, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, model.Page{}, err
	}
	opts, pg := paging(page, limit)
	users, hasMore, err := s.follows.ListFollowing(ctx, userID, opts)
	if err != nil {
		return nil, pg, err
	}
	pg.HasMore = hasMore
	return users, pg, nil
}

// Counts returns follower and following totals for an active user.
func (s *FollowService) Counts(ctx context.Context, userID string) (model.FollowCounts, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return model.FollowCounts{}, err
	}
	return s.follows.CountFollows(ctx, userID)
}
