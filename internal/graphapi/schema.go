package graphapi

import (
	"github.com/graphql-go/graphql"

	"github.com/sakif/socialhub/internal/model"
)

// SOURCE HELPERS:
// A field resolver receives its parent object as p.Source. List fields hand
// over slice elements by value while single-object fields return pointers,
// so each helper accepts both.

func sourceUser(p graphql.ResolveParams) *model.User {
	switch v := p.Source.(type) {
	case *model.User:
		return v
	case model.User:
		return &v
	}
	return &model.User{}
}

func sourcePost(p graphql.ResolveParams) *model.Post {
	switch v := p.Source.(type) {
	case *model.Post:
		return v
	case model.Post:
		return &v
	}
	return &model.Post{}
}

func sourceComment(p graphql.ResolveParams) *model.Comment {
	switch v := p.Source.(type) {
	case *model.Comment:
		return v
	case model.Comment:
		return &v
	}
	return &model.Comment{}
}

func sourceLike(p graphql.ResolveParams) *model.Like {
	switch v := p.Source.(type) {
	case *model.Like:
		return v
	case model.Like:
		return &v
	}
	return &model.Like{}
}

func sourceFollow(p graphql.ResolveParams) *model.Follow {
	switch v := p.Source.(type) {
	case *model.Follow:
		return v
	case model.Follow:
		return &v
	}
	return &model.Follow{}
}

// pagingArgs is added to every list field.
func pagingArgs(extra graphql.FieldConfigArgument) graphql.FieldConfigArgument {
	args := graphql.FieldConfigArgument{
		"page":  &graphql.ArgumentConfig{Type: graphql.Int},
		"limit": &graphql.ArgumentConfig{Type: graphql.Int},
	}
	for name, arg := range extra {
		args[name] = arg
	}
	return args
}

func required(t graphql.Input) *graphql.ArgumentConfig {
	return &graphql.ArgumentConfig{Type: graphql.NewNonNull(t)}
}

func optional(t graphql.Input) *graphql.ArgumentConfig {
	return &graphql.ArgumentConfig{Type: t}
}

// newSchema wires the object types to r. User, Post, Comment, Like and
// Follow refer to each other, so their fields are declared through thunks
// that run once every type exists.
func newSchema(r *resolver) (graphql.Schema, error) {
	var userType, postType, commentType, likeType, followType *graphql.Object

	userByID := func(id func(p graphql.ResolveParams) string) graphql.FieldResolveFn {
		return func(p graphql.ResolveParams) (interface{}, error) {
			u, err := r.svc.Users.GetUser(p.Context, id(p))
			if err != nil {
				return nil, r.fail(p, err)
			}
			return u, nil
		}
	}
	postByID := func(id func(p graphql.ResolveParams) string) graphql.FieldResolveFn {
		return func(p graphql.ResolveParams) (interface{}, error) {
			post, err := r.svc.Posts.Get(p.Context, id(p), viewer(p))
			if err != nil {
				return nil, r.fail(p, err)
			}
			return post, nil
		}
	}

	userType = graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
				"username":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
				"email":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
				"full_name": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
				"bio":       &graphql.Field{Type: graphql.String},
				"avatar":    &graphql.Field{Type: graphql.String},
				"followersCount": &graphql.Field{
					Type: graphql.Int,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						counts, err := r.svc.Follows.Counts(p.Context, sourceUser(p).ID)
						if err != nil {
							return nil, r.fail(p, err)
						}
						return counts.FollowerCount, nil
					},
				},
				"followingCount": &graphql.Field{
					Type: graphql.Int,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						counts, err := r.svc.Follows.Counts(p.Context, sourceUser(p).ID)
						if err != nil {
							return nil, r.fail(p, err)
						}
						return counts.FollowingCount, nil
					},
				},
				"posts": &graphql.Field{
					Type: graphql.NewList(postType),
					Args: pagingArgs(nil),
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						page, limit := pageArgs(p)
						posts, _, err := r.svc.Posts.ListByUser(p.Context, sourceUser(p).ID, viewer(p), page, limit)
						if err != nil {
							return nil, r.fail(p, err)
						}
						return posts, nil
					},
				},
				"createdAt": &graphql.Field{Type: graphql.DateTime},
				"updatedAt": &graphql.Field{Type: graphql.DateTime},
			}
		}),
	})

	postType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Post",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
				"user": &graphql.Field{
					Type:    graphql.NewNonNull(userType),
					Resolve: userByID(func(p graphql.ResolveParams) string { return sourcePost(p).UserID }),
				},
				"content": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
				"image": &graphql.Field{
					Type: graphql.String,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						if url := sourcePost(p).MediaURL; url != "" {
							return url, nil
						}
						return nil, nil
					},
				},
				"scheduledAt": &graphql.Field{Type: graphql.DateTime},
				"createdAt":   &graphql.Field{Type: graphql.DateTime},
				"updatedAt":   &graphql.Field{Type: graphql.DateTime},
				"likeCount": &graphql.Field{
					Type: graphql.Int,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						stats, err := r.svc.Posts.Stats(p.Context, sourcePost(p).ID)
						if err != nil {
							return nil, r.fail(p, err)
						}
						return stats.Likes, nil
					},
				},
				"commentCount": &graphql.Field{
					Type: graphql.Int,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						stats, err := r.svc.Posts.Stats(p.Context, sourcePost(p).ID)
						if err != nil {
							return nil, r.fail(p, err)
						}
						return stats.Comments, nil
					},
				},
				"comments": &graphql.Field{
					Type: graphql.NewList(commentType),
					Args: pagingArgs(nil),
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						return r.commentsOf(p, sourcePost(p).ID)
					},
				},
				"likes": &graphql.Field{
					Type: graphql.NewList(likeType),
					Args: pagingArgs(nil),
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						return r.likesOf(p, sourcePost(p).ID)
					},
				},
				"commentsEnabled": &graphql.Field{Type: graphql.Boolean},
				"deleted":         &graphql.Field{Type: graphql.Boolean},
			}
		}),
	})

	commentType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Comment",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
				"post": &graphql.Field{
					Type:    graphql.NewNonNull(postType),
					Resolve: postByID(func(p graphql.ResolveParams) string { return sourceComment(p).PostID }),
				},
				"user": &graphql.Field{
					Type:    graphql.NewNonNull(userType),
					Resolve: userByID(func(p graphql.ResolveParams) string { return sourceComment(p).UserID }),
				},
				"content":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
				"createdAt": &graphql.Field{Type: graphql.DateTime},
				"updatedAt": &graphql.Field{Type: graphql.DateTime},
			}
		}),
	})

	likeType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Like",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
				"post": &graphql.Field{
					Type:    graphql.NewNonNull(postType),
					Resolve: postByID(func(p graphql.ResolveParams) string { return sourceLike(p).PostID }),
				},
				"user": &graphql.Field{
					Type:    graphql.NewNonNull(userType),
					Resolve: userByID(func(p graphql.ResolveParams) string { return sourceLike(p).UserID }),
				},
				"createdAt": &graphql.Field{Type: graphql.DateTime},
			}
		}),
	})

	followType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Follow",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
				"follower": &graphql.Field{
					Type:    graphql.NewNonNull(userType),
					Resolve: userByID(func(p graphql.ResolveParams) string { return sourceFollow(p).FollowerID }),
				},
				"following": &graphql.Field{
					Type:    graphql.NewNonNull(userType),
					Resolve: userByID(func(p graphql.ResolveParams) string { return sourceFollow(p).FollowingID }),
				},
				"createdAt": &graphql.Field{Type: graphql.DateTime},
			}
		}),
	})

	authPayloadType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AuthPayload",
		Fields: graphql.Fields{
			"token": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"user":  &graphql.Field{Type: graphql.NewNonNull(userType)},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"me": &graphql.Field{Type: userType, Resolve: r.me},
			"user": &graphql.Field{
				Type:    userType,
				Args:    graphql.FieldConfigArgument{"id": required(graphql.ID)},
				Resolve: r.user,
			},
			"users": &graphql.Field{
				Type:    graphql.NewList(userType),
				Args:    pagingArgs(graphql.FieldConfigArgument{"search": optional(graphql.String)}),
				Resolve: r.users,
			},
			"post": &graphql.Field{
				Type:    postType,
				Args:    graphql.FieldConfigArgument{"id": required(graphql.ID)},
				Resolve: r.post,
			},
			"posts": &graphql.Field{
				Type: graphql.NewList(postType),
				Args: pagingArgs(graphql.FieldConfigArgument{
					"userId": optional(graphql.ID),
					"search": optional(graphql.String),
				}),
				Resolve: r.posts,
			},
			"feed": &graphql.Field{
				Type:    graphql.NewList(postType),
				Args:    pagingArgs(nil),
				Resolve: r.feed,
			},
			"comments": &graphql.Field{
				Type:    graphql.NewList(commentType),
				Args:    pagingArgs(graphql.FieldConfigArgument{"postId": required(graphql.ID)}),
				Resolve: r.comments,
			},
			"likes": &graphql.Field{
				Type:    graphql.NewList(likeType),
				Args:    pagingArgs(graphql.FieldConfigArgument{"postId": required(graphql.ID)}),
				Resolve: r.likes,
			},
			"followers": &graphql.Field{
				Type:    graphql.NewList(userType),
				Args:    pagingArgs(graphql.FieldConfigArgument{"userId": required(graphql.ID)}),
				Resolve: r.followers,
			},
			"following": &graphql.Field{
				Type:    graphql.NewList(userType),
				Args:    pagingArgs(graphql.FieldConfigArgument{"userId": required(graphql.ID)}),
				Resolve: r.following,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"register": &graphql.Field{
				Type: authPayloadType,
				Args: graphql.FieldConfigArgument{
					"username":  required(graphql.String),
					"email":     required(graphql.String),
					"password":  required(graphql.String),
					"full_name": required(graphql.String),
				},
				Resolve: r.register,
			},
			"login": &graphql.Field{
				Type: authPayloadType,
				Args: graphql.FieldConfigArgument{
					"email":    required(graphql.String),
					"password": required(graphql.String),
				},
				Resolve: r.login,
			},
			"updateProfile": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"bio":       optional(graphql.String),
					"avatar":    optional(graphql.String),
					"full_name": optional(graphql.String),
					"email":     optional(graphql.String),
				},
				Resolve: r.updateProfile,
			},
			"createPost": &graphql.Field{
				Type: postType,
				Args: graphql.FieldConfigArgument{
					"content":         required(graphql.String),
					"image":           optional(graphql.String),
					"scheduledAt":     optional(graphql.DateTime),
					"commentsEnabled": optional(graphql.Boolean),
				},
				Resolve: r.createPost,
			},
			"updatePost": &graphql.Field{
				Type: postType,
				Args: graphql.FieldConfigArgument{
					"id":              required(graphql.ID),
					"content":         optional(graphql.String),
					"image":           optional(graphql.String),
					"commentsEnabled": optional(graphql.Boolean),
				},
				Resolve: r.updatePost,
			},
			"deletePost": &graphql.Field{
				Type:    graphql.Boolean,
				Args:    graphql.FieldConfigArgument{"id": required(graphql.ID)},
				Resolve: r.deletePost,
			},
			"likePost": &graphql.Field{
				Type:    likeType,
				Args:    graphql.FieldConfigArgument{"postId": required(graphql.ID)},
				Resolve: r.likePost,
			},
			"unlikePost": &graphql.Field{
				Type:    graphql.Boolean,
				Args:    graphql.FieldConfigArgument{"postId": required(graphql.ID)},
				Resolve: r.unlikePost,
			},
			"commentPost": &graphql.Field{
				Type: commentType,
				Args: graphql.FieldConfigArgument{
					"postId":  required(graphql.ID),
					"content": required(graphql.String),
				},
				Resolve: r.commentPost,
			},
			"updateComment": &graphql.Field{
				Type: commentType,
				Args: graphql.FieldConfigArgument{
					"id":      required(graphql.ID),
					"content": required(graphql.String),
				},
				Resolve: r.updateComment,
			},
			"deleteComment": &graphql.Field{
				Type:    graphql.Boolean,
				Args:    graphql.FieldConfigArgument{"id": required(graphql.ID)},
				Resolve: r.deleteComment,
			},
			"followUser": &graphql.Field{
				Type:    followType,
				Args:    graphql.FieldConfigArgument{"userId": required(graphql.ID)},
				Resolve: r.followUser,
			},
			"unfollowUser": &graphql.Field{
				Type:    graphql.Boolean,
				Args:    graphql.FieldConfigArgument{"userId": required(graphql.ID)},
				Resolve: r.unfollowUser,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}
