package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/socialhub/internal/apperror"
	"github.com/sakif/socialhub/internal/auth"
	"github.com/sakif/socialhub/internal/model"
	"github.com/sakif/socialhub/internal/repository"
)

// invalidCredentials is the one message for both an unknown email and a
// wrong password, so login cannot be used to probe for accounts.
const invalidCredentials = "invalid email or password"

// RegisterInput is the sign-up form. REST decodes the request body straight
// into it; GraphQL builds it from mutation arguments.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=30,handle"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,maxbytes=72"`
	FullName string `json:"full_name" validate:"max=100"`
}

// ProfileInput holds optional profile changes; nil leaves a field unchanged.
type ProfileInput struct {
	FullName *string `json:"full_name" validate:"omitempty,max=100"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Bio      *string `json:"bio" validate:"omitempty,max=500"`
	Avatar   *string `json:"avatar" validate:"omitempty,url,max=2048"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// UserService handles accounts, credentials and profiles.
type UserService struct {
	users     repository.UserRepository
	follows   repository.FollowRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	follows repository.FollowRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		follows:   follows,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

// Register creates an account and logs it in.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)

	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("registering %q: %w", in.Username, err)
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("username", in.Username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("registering %q: %w", in.Username, err)
	}

	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("id", user.ID),
		slog.String("username", user.Username),
	)
	return &AuthResult{Token: token, User: user}, nil
}

// Login checks the credentials and issues a fresh token.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("logging in: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("failed login", slog.String("user_id", user.ID))
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("logging in: %w", err)
	}

	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("id", user.ID))
	return &AuthResult{Token: token, User: user}, nil
}

// Me returns the caller's own profile.
func (s *UserService) Me(ctx context.Context, userID string) (*model.Profile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Unauthorized("account no longer exists")
	}
	return profile, err
}

// GetProfile returns a user with follower and following counts.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	counts, err := s.follows.CountFollows(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.Profile{
		User:           *user,
		FollowerCount:  counts.FollowerCount,
		FollowingCount: counts.FollowingCount,
	}, nil
}

// GetUser returns a user without counts. Used by GraphQL field resolvers.
func (s *UserService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// Search matches username and full name, case-insensitively.
func (s *UserService) Search(ctx context.Context, query string, page, limit int) ([]model.User, model.Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.Page{}, apperror.ValidationFailed("q", "search query is required")
	}

	opts, pg := paging(page, limit)
	users, hasMore, err := s.users.SearchUsers(ctx, query, opts)
	if err != nil {
		return nil, pg, err
	}
	pg.HasMore = hasMore
	return users, pg, nil
}

// UpdateProfile applies the non-nil fields of in.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*model.User, error) {
	in.FullName = trimPtr(in.FullName)
	in.Bio = trimPtr(in.Bio)
	in.Avatar = trimPtr(in.Avatar)
	if in.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*in.Email))
		in.Email = &e
		if e == "" {
			return nil, apperror.ValidationFailed("email", "email cannot be empty")
		}
	}

	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateUser(ctx, userID, model.UserUpdate{
		FullName: in.FullName,
		Email:    in.Email,
		Bio:      in.Bio,
		Avatar:   in.Avatar,
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("account no longer exists")
		}
		return nil, err
	}

	s.logger.Info("profile updated", slog.String("id", userID))
	return user, nil
}

// DeleteAccount soft-deletes the caller. Their posts, comments, likes and
// follow edges stay in the database but drop out of every read.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.SoftDeleteUser(ctx, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.Unauthorized("account no longer exists")
		}
		return err
	}
	s.logger.Info("account deleted", slog.String("id", userID))
	return nil
}
