package model

import "time"

// Post is a piece of content authored by a user.
//
// VISIBILITY:
// A post shows up in feeds, listings and search only when it is not deleted
// and ScheduledAt is nil or already in the past. Visible() is the Go version
// of the same predicate the SQL queries use.
type Post struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Content         string     `json:"content"`
	MediaURL        string     `json:"media_url"`
	CommentsEnabled bool       `json:"comments_enabled"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
	Deleted         bool       `json:"is_deleted"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Author fields, filled by joins on users.
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// Visible reports whether the post may be shown to users other than its owner.
func (p *Post) Visible(now time.Time) bool {
	if p.Deleted {
		return false
	}
	return p.ScheduledAt == nil || !p.ScheduledAt.After(now)
}

// PostUpdate holds optional post changes; nil means unchanged.
type PostUpdate struct {
	Content         *string
	MediaURL        *string
	CommentsEnabled *bool
}
