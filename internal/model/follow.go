package model

import "time"

// Follow is a directed edge: FollowerID follows FollowingID.
// Self-loops are rejected by the service layer.
type Follow struct {
	ID          string    `json:"id"`
	FollowerID  string    `json:"follower_id"`
	FollowingID string    `json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// FollowUser is the short user card used in follower/following lists.
type FollowUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// FollowCounts is the size of a user's social graph.
type FollowCounts struct {
	FollowerCount  int `json:"follower_count"`
	FollowingCount int `json:"following_count"`
}
