package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/socialhub/internal/auth"
	"github.com/sakif/socialhub/internal/service"
)

// API groups the REST handlers. Each handler only decodes the request,
// calls one service method and writes the result; every rule lives in the
// service layer.
type API struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Posts    *PostHandler
	Comments *CommentHandler
	Likes    *LikeHandler
	Health   *HealthHandler
}

func NewAPI(svc *service.Services, db Pinger, logger *slog.Logger) *API {
	return &API{
		Auth:     NewAuthHandler(svc.Users, logger),
		Users:    NewUserHandler(svc.Users, svc.Follows, logger),
		Posts:    NewPostHandler(svc.Posts, logger),
		Comments: NewCommentHandler(svc.Comments, logger),
		Likes:    NewLikeHandler(svc.Likes, logger),
		Health:   NewHealthHandler(db, logger),
	}
}

// Routes mounts the REST surface on r. authLimit wraps the register and
// login endpoints; pass nil for no rate limiting.
//
// Literal segments ("me", "search", "feed") are registered next to
// "{id}" patterns. chi prefers static segments, so /api/users/me never
// reaches the {user_id} handler.
func (a *API) Routes(r chi.Router, tokens *auth.TokenService, authLimit func(http.Handler) http.Handler) {
	requireAuth := auth.RequireAuth(tokens)
	optionalAuth := auth.OptionalAuth(tokens)
	if authLimit == nil {
		authLimit = func(next http.Handler) http.Handler { return next }
	}

	r.Get("/healthz", a.Health.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimit)
			r.Post("/register", a.Auth.HandleRegister)
			r.Post("/login", a.Auth.HandleLogin)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/search", a.Users.HandleSearch)
			r.Get("/{user_id}", a.Users.HandleGet)
			r.Get("/{user_id}/followers", a.Users.HandleFollowers)
			r.Get("/{user_id}/following", a.Users.HandleFollowing)
			r.Get("/{user_id}/follow-counts", a.Users.HandleFollowCounts)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", a.Users.HandleMe)
				r.Put("/me", a.Users.HandleUpdateMe)
				r.Delete("/me", a.Users.HandleDeleteMe)
				r.Post("/{user_id}/follow", a.Users.HandleFollow)
				r.Delete("/{user_id}/unfollow", a.Users.HandleUnfollow)
			})
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", a.Posts.HandleRecent)
			r.Get("/search", a.Posts.HandleSearch)

			r.Group(func(r chi.Router) {
				r.Use(optionalAuth)
				r.Get("/user/{user_id}", a.Posts.HandleListByUser)
				r.Get("/{post_id}", a.Posts.HandleGet)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", a.Posts.HandleCreate)
				r.Get("/feed", a.Posts.HandleFeed)
				r.Get("/me", a.Posts.HandleListMine)
				r.Put("/{post_id}", a.Posts.HandleUpdate)
				r.Delete("/{post_id}", a.Posts.HandleDelete)
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.With(optionalAuth).Get("/post/{post_id}", a.Comments.HandleListByPost)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", a.Comments.HandleCreate)
				r.Put("/{comment_id}", a.Comments.HandleUpdate)
				r.Delete("/{comment_id}", a.Comments.HandleDelete)
			})
		})

		r.Route("/likes", func(r chi.Router) {
			r.With(optionalAuth).Get("/post/{post_id}", a.Likes.HandleListByPost)
			r.Get("/user/{user_id}", a.Likes.HandleListByUser)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", a.Likes.HandleLike)
				r.Delete("/{post_id}", a.Likes.HandleUnlike)
			})
		})
	})
}
