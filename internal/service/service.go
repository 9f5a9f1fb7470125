// Package service contains the business rules of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Transport (REST handlers, GraphQL resolvers) → parses requests, writes responses
//	Service                                      → validates, enforces rules, orchestrates
//	Repository (sqlstore)                        → reads/writes the database
//
// Every rule lives here exactly once. The REST handlers and the GraphQL
// resolvers are thin adapters over the same methods, which is what keeps the
// two surfaces in agreement: self-follow is a validation error on both,
// commenting on a post with comments disabled is forbidden on both, and so on.
//
// Services accept primitives and small input structs, never HTTP types, and
// return apperror values that each transport translates on its own.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/socialhub/internal/apperror"
	"github.com/sakif/socialhub/internal/auth"
	"github.com/sakif/socialhub/internal/model"
	"github.com/sakif/socialhub/internal/repository"
)

// Paging bounds.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit far from overflowing.
	MaxPage = 1_000_000
)

// Store is everything the services need from persistence. sqlstore.DB
// satisfies it.
type Store interface {
	repository.UserRepository
	repository.PostRepository
	repository.CommentRepository
	repository.LikeRepository
	repository.FollowRepository
}

// Services bundles one instance of each service, wired to the same store.
type Services struct {
	Users    *UserService
	Posts    *PostService
	Comments *CommentService
	Likes    *LikeService
	Follows  *FollowService
}

// New builds every service over store.
func New(store Store, passwords *auth.PasswordService, tokens *auth.TokenService, logger *slog.Logger) *Services {
	return &Services{
		Users:    NewUserService(store, store, passwords, tokens, logger),
		Posts:    NewPostService(store, store, store, store, logger),
		Comments: NewCommentService(store, store, store, logger),
		Likes:    NewLikeService(store, store, store, logger),
		Follows:  NewFollowService(store, store, logger),
	}
}

// paging turns page/limit as given by a client into store options and the
// page descriptor echoed back. Out-of-range values fall back to the defaults
// or are clamped; they are never an error.
func paging(page, limit int) (repository.ListOptions, model.Page) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if page > MaxPage {
		page = MaxPage
	}
	return repository.ListOptions{Limit: limit, Offset: (page - 1) * limit},
		model.Page{Page: page, Limit: limit}
}

// =========================================================================
// VALIDATION
// =========================================================================

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// validate is shared by all services. Field names in errors come from the
// json tags, so a client sees "full_name", not "FullName".
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
		return handlePattern.MatchString(fl.Field().String())
	})
	// maxbytes limits the UTF-8 length, where max= counts runes.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= n
	})
	return v
}

// validateStruct runs the struct tags and converts the first failure into
// an apperror.ValidationFailed.
func validateStruct(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validating input: %w", err)
	}

	fe := verrs[0]
	field := fe.Field()
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", field)
	case "min":
		msg = fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		msg = fmt.Sprintf("%s must be %s characters or less", field, fe.Param())
	case "maxbytes":
		msg = fmt.Sprintf("%s must be %s bytes or less", field, fe.Param())
	case "email":
		msg = "invalid email format"
	case "url":
		msg = fmt.Sprintf("%s must be a valid URL", field)
	case "handle":
		msg = fmt.Sprintf("%s may contain only letters, numbers and underscores", field)
	default:
		msg = fmt.Sprintf("%s is invalid", field)
	}
	return apperror.ValidationFailed(field, msg)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// =========================================================================
// SHARED RULES
// =========================================================================

// requireActive rejects callers whose account was deleted after their token
// was issued. Tokens cannot be revoked, so this is checked on every write.
func requireActive(ctx context.Context, users repository.UserRepository, userID string) (*model.User, error) {
	user, err := users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("account no longer exists")
		}
		return nil, err
	}
	return user, nil
}

// visiblePost loads a post as seen by viewerID ("" for anonymous).
// Scheduled posts are visible to their owner only; everyone else gets the
// same NotFound as for a post that does not exist.
func visiblePost(ctx context.Context, posts repository.PostRepository, id, viewerID string, now time.Time) (*model.Post, error) {
	post, err := posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.Visible(now) && post.UserID != viewerID {
		return nil, apperror.NotFound("post", id)
	}
	return post, nil
}
