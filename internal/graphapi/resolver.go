package graphapi

import (
	"log/slog"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/sakif/socialhub/internal/apperror"
	"github.com/sakif/socialhub/internal/auth"
	"github.com/sakif/socialhub/internal/model"
	"github.com/sakif/socialhub/internal/service"
)

// resolver holds what every field resolver needs.
type resolver struct {
	svc       *service.Services
	logger    *slog.Logger
	authLimit Limiter
}

// spendAuthBudget applies the auth limiter, if any.
func (r *resolver) spendAuthBudget(p graphql.ResolveParams) error {
	if r.authLimit == nil {
		return nil
	}
	if err := r.authLimit.Allow(p.Context); err != nil {
		return r.fail(p, err)
	}
	return nil
}

// fail converts err for the field being resolved.
func (r *resolver) fail(p graphql.ResolveParams, err error) error {
	return toError(r.logger, p.Info.FieldName, err)
}

// viewer is the caller's user id, "" when anonymous.
func viewer(p graphql.ResolveParams) string {
	id, _ := auth.IdentityFromContext(p.Context)
	return id.UserID
}

// requireViewer is the GraphQL counterpart of auth.RequireAuth.
func (r *resolver) requireViewer(p graphql.ResolveParams) (string, error) {
	id := viewer(p)
	if id == "" {
		return "", r.fail(p, apperror.Unauthorized("authentication required"))
	}
	return id, nil
}

// ARGUMENT HELPERS:
// graphql-go hands arguments over as map[string]interface{} with values
// already coerced to the declared type. Missing optional arguments are
// simply absent from the map.

func argString(p graphql.ResolveParams, name string) string {
	s, _ := p.Args[name].(string)
	return s
}

func argStringPtr(p graphql.ResolveParams, name string) *string {
	s, ok := p.Args[name].(string)
	if !ok {
		return nil
	}
	return &s
}

func argBoolPtr(p graphql.ResolveParams, name string) *bool {
	b, ok := p.Args[name].(bool)
	if !ok {
		return nil
	}
	return &b
}

func argInt(p graphql.ResolveParams, name string) int {
	n, _ := p.Args[name].(int)
	return n
}

func argTime(p graphql.ResolveParams, name string) *time.Time {
	switch v := p.Args[name].(type) {
	case time.Time:
		return &v
	case *time.Time:
		return v
	}
	return nil
}

func pageArgs(p graphql.ResolveParams) (page, limit int) {
	return argInt(p, "page"), argInt(p, "limit")
}

// =============================================================================
// QUERIES
// =============================================================================

func (r *resolver) me(p graphql.ResolveParams) (interface{}, error) {
	id, err := r.requireViewer(p)
	if err != nil {
		return nil, err
	}
	profile, err := r.svc.Users.Me(p.Context, id)
	if err != nil {
		return nil, r.fail(p, err)
	}
	return &profile.User, nil
}

func (r *resolver) user(p graphql.ResolveParams) (interface{}, error) {
	u, err := r.svc.Users.GetUser(p.Context, argString(p, "id"))
	if err != nil {
		return nil, r.fail(p, err)
	}
	return u, nil
}

func (r *resolver) users(p graphql.ResolveParams) (interface{}, error) {
	page, limit := pageArgs(p)
	users, _, err := r.svc.Users.Search(p.Context, argString(p, "search"), page, limit)
	if err != nil {
		return nil, r.fail(p, err)
	}
	return users, nil
}

func (r *resolver) post(p graphql.ResolveParams) (interface{}, error) {
	post, err := r.svc.Posts.Get(p.Context, argString(p, "id"), viewer(p))
	if err != nil {
		return nil, r.fail(p, err)
	}
	return post, nil
}

// posts filters by search text, then by author; with neither it lists
// every visible post.
func (r *resolver) posts(p graphql.ResolveParams) (interface{}, error) {
	page, limit := pageArgs(p)

	var (
		posts []model.Post
		err   error
	)
	switch {
	case argString(p, "search") != "":
		posts, _, err = r.svc.Posts.Search(p.Context, argString(p, "search"), page, limit)
	case argString(p, "userId") != "":
		posts, _, err = r.svc.Posts.ListByUser(p.Context, argString(p, "userId"), viewer(p), page, limit)
	default:
		posts, _, err = r.svc.Posts.Recent(p.Context, page, limit)
	}
	if err != nil {
		return nil, r.fail(p, err)
	}
	return posts, nil
}

func (r *resolver) feed(p graphql.ResolveParams) (interface{}, error) {
	id, err := r.requireViewer(p)
	if err != nil {
		return nil, err
	}
	page, limit := pageArgs(p)
	posts, _, err := r.svc.Posts.Feed(p.Context, id, page, limit)
	if err != nil {
		return nil, r.fail(p, err)
	}
	return posts, nil
}

func (r *resolver) comments(p graphql.ResolveParams) (interface{}, error) {
	return r.commentsOf(p, argString(p, "postId"))
}

func (r *resolver) commentsOf(p graphql.ResolveParams, postID string) (interface{}, error) {
	page, limit := pageArgs(p)
	comments, _, err := r.svc.Comments.ListByPost(p.Context, postID, viewer(p), page, limit)
	if err != nil {
		return nil, r.fail(p, err)
	}
	return comments, nil
}

func (r *resolver) likes(p graphql.ResolveParams) (interface{}, error) {
	return r.likesOf(p, argString(p, "postId"))
}

func (r *resolver) likesOf(p graphql.ResolveParams, postID string) (interface{}, error) {
	page, limit := pageArgs(p)
	rows, _, err := r.svc.Likes.ListByPost(p.Context, postID, viewer(p), page, limit)
	if err != nil {
		return nil, r.fail(p, err)
	}

	likes := make([]model.Like, len(rows))
	for i, row := range rows {
		likes[i] = model.Like{ID: row.ID, UserID: row.UserID, PostID: row.PostID, CreatedAt: row.CreatedAt}
	}
	return likes, nil
}

func (r *resolver) followers(p graphql.ResolveParams) (interface{}, error) {
	page, limit := pageArgs(p)
	rows, _, err := r.svc.Follows.Followers(p.Context, argString(p, "userId"), page, limit)
	if err != nil {
		return nil, r.fail(p, err)
	}
	return r.loadUsers(p, rows)
}

func (r *resolver) following(p graphql.ResolveParams) (interface{}, error) {
	page, limit := pageArgs(p)
	rows, _, err := r.svc.Follows.Following(p.Context, argString(p, "userId"), page, limit)
	if err != nil {
		return nil, r.fail(p, err)
	}
	return r.loadUsers(p, rows)
}

// loadUsers expands follow-list cards into full users, since the User type
// exposes fields (email, bio) the cards do not carry.
// TODO: batch these lookups with a GetUsersByIDs store method.
func (r *resolver) loadUsers(p graphql.ResolveParams, rows []model.FollowUser) (interface{}, error) {
	users := make([]*model.User, 0, len(rows))
	for _, row := range rows {
		u, err := r.svc.Users.GetUser(p.Context, row.ID)
		if err != nil {
			return nil, r.fail(p, err)
		}
		users = append(users, u)
	}
	return users, nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

func (r *resolver) register(p graphql.ResolveParams) (interface{}, error) {
	if err := r.spendAuthBudget(p); err != nil {
		return nil, err
	}
	res, err := r.svc.Users.Register(p.Context, service.RegisterInput{
		Username: argString(p, "username"),
		Email:    argString(p, "email"),
		Password: argString(p, "password"),
		FullName: argString(p, "full_name"),
	})
	if err != nil {
		return nil, r.fail(p, err)
	}
	return res, nil
}

func (r *resolver) login(p graphql.ResolveParams) (interface{}, error) {
	if err := r.spendAuthBudget(p); err != nil {
		return nil, err
	}
	res, err := r.svc.Users.Login(p.Context, argString(p, "email"), argString(p, "password"))
	if err != nil {
		return nil, r.fail(p, err)
	}
	return res, nil
}

func (r *resolver) updateProfile(p graphql.ResolveParams) (interface{}, error) {
	id, err := r.requireViewer(p)
	if err != nil {
		return nil, err
	}
	u, err := r.svc.Users.UpdateProfile(p.Context, id, service.ProfileInput{
		FullName: argStringPtr(p, "full_name"),
		Email:    argStringPtr(p, "email"),
		Bio:      argStringPtr(p, "bio"),
		Avatar:   argStringPtr(p, "avatar"),
	})
	if err != nil {
		return nil, r.fail(p, err)
	}
	return u, nil
}

func (r *resolver) createPost(p graphql.ResolveParams) (interface{}, error) {
	id, err := r.requireViewer(p)
	if err != nil {
		return nil, err
	}
	post, err := r.svc.Posts.Create(p.Context, id, service.PostInput{
		Content:         argString(p, "content"),
		MediaURL:        argString(p, "image"),
		CommentsEnabled: argBoolPtr(p, "commentsEnabled"),
		ScheduledAt:     argTime(p, "scheduledAt"),
	})
	if err != nil {
		return nil, r.fail(p, err)
	}
	return post, nil
}

func (r *resolver) updatePost(p graphql.ResolveParams) (interface{}, error) {
	id, err := r.requireViewer(p)
	if err != nil {
		return nil, err
	}
	post, err := r.svc.Posts.Update(p.Context, argString(p, "id"), id, service.PostPatch{
		Content:         argStringPtr(p, "content"),
		MediaURL:        argStringPtr(p, "image"),
		CommentsEnabled: argBoolPtr(p, "commentsEnabled"),
	})
	if err != nil {
		return nil, r.fail(p, err)
	}
	return post, nil
}

func (r *resolver) deletePost(p graphql.ResolveParams) (interface{}, error) {
	id, err := r.requireViewer(p)
	if err != nil {
		return nil, err
	}
	if err := r.svc.Posts.Delete(p.Context, argString(p, "id"), id); err != nil {
		return nil, r.fail(p, err)
	}
	return true, nil
}

func (r *resolver) likePost(p graphql.ResolveParams) (interface{}, error) {
	id, err := r.requireViewer(p)
	if err != nil {
		return nil, err
	}
	like, _, err := r.svc.Likes.Like(p.Context, id, argString(p, "postId"))
	if err != nil {
		return nil, r.fail(p, err)
	}
	return like, nil
}

func (r *resolver) unlikePost(p graphql.ResolveParams) (interface{}, error) {
	id, err := r.requireViewer(p)
	if err != nil {
		return nil, err
	}
	if err := r.svc.Likes.Unlike(p.Context, id, argString(p, "postId")); err != nil {
		return nil, r.fail(p, err)
	}
	return true, nil
}

func (r *resolver) commentPost(p graphql.ResolveParams) (interface{}, error) {
	id, err := r.requireViewer(p)
	if err != nil {
		return nil, err
	}
	c, err := r.svc.Comments.Create(p.Context, id, argString(p, "postId"), argString(p, "content"))
	if err != nil {
		return nil, r.fail(p, err)
	}
	return c, nil
}

func (r *resolver) updateComment(p graphql.ResolveParams) (interface{}, error) {
	id, err := r.requireViewer(p)
	if err != nil {
		return nil, err
	}
	c, err := r.svc.Comments.Update(p.Context, argString(p, "id"), id, argString(p, "content"))
	if err != nil {
		return nil, r.fail(p, err)
	}
	return c, nil
}

func (r *resolver) deleteComment(p graphql.ResolveParams) (interface{}, error) {
	id, err := r.requireViewer(p)
	if err != nil {
		return nil, err
	}
	if err := r.svc.Comments.Delete(p.Context, argString(p, "id"), id); err != nil {
		return nil, r.fail(p, err)
	}
	return true, nil
}

func (r *resolver) followUser(p graphql.ResolveParams) (interface{}, error) {
	id, err := r.requireViewer(p)
	if err != nil {
		return nil, err
	}
	f, _, err := r.svc.Follows.Follow(p.Context, id, argString(p, "userId"))
	if err != nil {
		return nil, r.fail(p, err)
	}
	return f, nil
}

func (r *resolver) unfollowUser(p graphql.ResolveParams) (interface{}, error) {
	id, err := r.requireViewer(p)
	if err != nil {
		return nil, err
	}
	if err := r.svc.Follows.Unfollow(p.Context, id, argString(p, "userId")); err != nil {
		return nil, r.fail(p, err)
	}
	return true, nil
}
