package repository

import (
	"context"
	"time"

	"github.com/sakif/socialhub/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// Every List* method returns the page of rows plus hasMore, which is true
// when at least one more row exists past the page.

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	SearchUsers(ctx context.Context, query string, opts ListOptions) ([]model.User, bool, error)
	UpdateUser(ctx context.Context, id string, upd model.UserUpdate) (*model.User, error)
	SoftDeleteUser(ctx context.Context, id string) error
}

type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPostByID(ctx context.Context, id string) (*model.Post, error)
	ListPostsByUser(ctx context.Context, userID string, includeScheduled bool, now time.Time, opts ListOptions) ([]model.Post, bool, error)
	ListRecentPosts(ctx context.Context, now time.Time, opts ListOptions) ([]model.Post, bool, error)
	Feed(ctx context.Context, userID string, now time.Time, opts ListOptions) ([]model.Post, bool, error)
	SearchPosts(ctx context.Context, query string, now time.Time, opts ListOptions) ([]model.Post, bool, error)
	UpdatePost(ctx context.Context, id, ownerID string, upd model.PostUpdate) (*model.Post, error)
	SoftDeletePost(ctx context.Context, id, ownerID string) error
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	GetCommentByID(ctx context.Context, id string) (*model.Comment, error)
	ListCommentsByPost(ctx context.Context, postID string, opts ListOptions) ([]model.Comment, bool, error)
	UpdateComment(ctx context.Context, id, ownerID, content string) (*model.Comment, error)
	DeleteComment(ctx context.Context, id, ownerID string) error
	CountCommentsByPost(ctx context.Context, postID string) (int, error)
}

type LikeRepository interface {
	// Like is idempotent. created is false when the pair already existed.
	Like(ctx context.Context, userID, postID string) (like *model.Like, created bool, err error)
	Unlike(ctx context.Context, userID, postID string) error
	ListLikesByPost(ctx context.Context, postID string, opts ListOptions) ([]model.PostLike, bool, error)
	ListLikesByUser(ctx context.Context, userID string, now time.Time, opts ListOptions) ([]model.LikedPost, bool, error)
	CountLikesByPost(ctx context.Context, postID string) (int, error)
}

type FollowRepository interface {
	// Follow is idempotent. created is false when the edge already existed.
	Follow(ctx context.Context, followerID, followingID string) (follow *model.Follow, created bool, err error)
	Unfollow(ctx context.Context, followerID, followingID string) error
	ListFollowers(ctx context.Context, userID string, opts ListOptions) ([]model.FollowUser, bool, error)
	ListFollowing(ctx context.Context, userID string, opts ListOptions) ([]model.FollowUser, bool, error)
	CountFollows(ctx context.Context, userID string) (model.FollowCounts, error)
}
