// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. Go favours composition over
// inheritance, so a Profile embeds a User instead of extending it.
package model

import "time"

// User represents a registered account.
//
// PasswordHash carries the `json:"-"` tag so the hash can never leak into an
// API response, no matter which handler serializes the struct.
//
// Deleted is the soft-delete flag. Users are never hard-deleted; every query
// in the store filters on it.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Bio          string    `json:"bio"`
	Avatar       string    `json:"avatar"`
	Deleted      bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile is a user together with the size of their social graph.
type Profile struct {
	User
	FollowerCount  int `json:"follower_count"`
	FollowingCount int `json:"following_count"`
}

// UserUpdate holds optional profile changes. A nil field means "keep the
// current value" (COALESCE semantics in SQL).
type UserUpdate struct {
	FullName *string
	Email    *string
	Bio      *string
	Avatar   *string
}
