package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// Table-driven: one struct per case, one loop of assertions.

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("post", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("content", "content is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("user", "email"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("invalid credentials"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "wrapped NotFound still matches",
			err:       fmt.Errorf("getting post: %w", NotFound("post", "abc123")),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("post", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("comment", "abc123"),
			wantMessage: "comment not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("username", "username is required"),
			wantMessage: "username is required",
		},
		{
			name:        "Conflict message names the field",
			err:         Conflict("user", "username"),
			wantMessage: "user with this username already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", ValidationFailed("x", "bad"), CodeValidation},
		{"not found", NotFound("post", "1"), CodeNotFound},
		{"forbidden", Forbidden("no"), CodeForbidden},
		{"conflict", Conflict("user", "email"), CodeConflict},
		{"unauthorized", Unauthorized("who are you"), CodeUnauthorized},
		{"rate limited", RateLimited("slow down"), CodeRateLimited},
		{"unavailable", Unavailable("redis down"), CodeUnavailable},
		{"wrapped", fmt.Errorf("outer: %w", Forbidden("no")), CodeForbidden},
		{"plain error", errors.New("disk on fire"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Code(tt.err); got != tt.want {
				t.Errorf("Code() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPublicMessage_HidesInternalErrors(t *testing.T) {
	internal := fmt.Errorf("sqlstore: querying posts: %w", errors.New("connection refused"))
	if got := PublicMessage(internal); got != "An internal error occurred" {
		t.Errorf("PublicMessage() = %q, leaked internal detail", got)
	}

	if got := PublicMessage(Forbidden("comments are disabled for this post")); got != "comments are disabled for this post" {
		t.Errorf("PublicMessage() = %q", got)
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("post", "abc123")
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "invalid email format")
	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}
