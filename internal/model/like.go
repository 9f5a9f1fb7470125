package model

import "time"

// Like is the (user, post) relation. The pair is unique.
type Like struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PostID    string    `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PostLike is a row of "who liked this post".
type PostLike struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

// LikedPost is a row of "what this user liked".
type LikedPost struct {
	PostID    string    `json:"post_id"`
	Content   string    `json:"content"`
	MediaURL  string    `json:"media_url"`
	CreatedAt time.Time `json:"created_at"`
	LikedAt   time.Time `json:"liked_at"`
}
