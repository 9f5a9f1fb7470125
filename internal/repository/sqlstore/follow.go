package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/socialhub/internal/apperror"
	"github.com/sakif/socialhub/internal/model"
	"github.com/sakif/socialhub/internal/repository"
)

// Follow creates the edge followerID -> followingID if it does not exist.
//
// The conflict-ignoring insert and the read-back of an existing edge share a
// transaction, so the result is one observable unit: the edge as stored, and
// created=true only for the call that actually inserted it.
func (db *DB) Follow(ctx context.Context, followerID, followingID string) (*model.Follow, bool, error) {
	follow := &model.Follow{
		ID:          xid.New().String(),
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   db.now(),
	}
	created := true

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var id string
		err := db.queryRow(ctx, tx, "insert", "follow",
			`INSERT INTO follow (id, follower_id, following_id, created_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT (follower_id, following_id) DO NOTHING
			 RETURNING id`,
			follow.ID, follow.FollowerID, follow.FollowingID, follow.CreatedAt,
		).Scan(&id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("sqlstore: inserting follow: %w", err)
		}

		created = false
		err = db.queryRow(ctx, tx, "select", "follow",
			`SELECT id, created_at FROM follow WHERE follower_id = ? AND following_id = ?`,
			followerID, followingID,
		).Scan(&follow.ID, &follow.CreatedAt)
		if err != nil {
			return fmt.Errorf("sqlstore: reading existing follow: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return follow, created, nil
}

// Unfollow removes the edge. NotFound when there was none.
func (db *DB) Unfollow(ctx context.Context, followerID, followingID string) error {
	res, err := db.exec(ctx, db.conn, "delete", "follow",
		`DELETE FROM follow WHERE follower_id = ? AND following_id = ?`,
		followerID, followingID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting follow: %w", err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("follow", followingID)
	}
	return nil
}

// ListFollowers lists the users who follow userID.
func (db *DB) ListFollowers(ctx context.Context, userID string, opts repository.ListOptions) ([]model.FollowUser, bool, error) {
	return db.listFollowUsers(ctx, opts,
		`SELECT u.id, u.username, u.full_name
		 FROM follow f JOIN users u ON u.id = f.follower_id AND u.is_deleted = FALSE
		 WHERE f.following_id = ?
		 ORDER BY f.created_at DESC, f.id DESC
		 LIMIT ? OFFSET ?`,
		userID,
	)
}

// ListFollowing lists the users userID follows.
func (db *DB) ListFollowing(ctx context.Context, userID string, opts repository.ListOptions) ([]model.FollowUser, bool, error) {
	return db.listFollowUsers(ctx, opts,
		`SELECT u.id, u.username, u.full_name
		 FROM follow f JOIN users u ON u.id = f.following_id AND u.is_deleted = FALSE
		 WHERE f.follower_id = ?
		 ORDER BY f.created_at DESC, f.id DESC
		 LIMIT ? OFFSET ?`,
		userID,
	)
}

func (db *DB) listFollowUsers(ctx context.Context, opts repository.ListOptions, query, userID string) ([]model.FollowUser, bool, error) {
	limit, offset, fetch := window(opts)

	rows, err := db.query(ctx, db.conn, "select", "follow", query, userID, fetch, offset)
	if err != nil {
		return nil, false, fmt.Errorf("sqlstore: listing follows for %s: %w", userID, err)
	}
	defer rows.Close()

	users := make([]model.FollowUser, 0, fetch)
	for rows.Next() {
		var u model.FollowUser
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName); err != nil {
			return nil, false, fmt.Errorf("sqlstore: scanning follow row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("sqlstore: iterating follows: %w", err)
	}

	users, hasMore := trimPage(users, limit)
	return users, hasMore, nil
}

// CountFollows returns both sides of the graph in one round trip.
// Soft-deleted users are not counted, matching the lists above.
func (db *DB) CountFollows(ctx context.Context, userID string) (model.FollowCounts, error) {
	var counts model.FollowCounts
	err := db.queryRow(ctx, db.conn, "count", "follow",
		`SELECT
		   (SELECT COUNT(*) FROM follow f JOIN users u ON u.id = f.follower_id AND u.is_deleted = FALSE
		     WHERE f.following_id = ?),
		   (SELECT COUNT(*) FROM follow f JOIN users u ON u.id = f.following_id AND u.is_deleted = FALSE
		     WHERE f.follower_id = ?)`,
		userID, userID,
	).Scan(&counts.FollowerCount, &counts.FollowingCount)
	if err != nil {
		return counts, fmt.Errorf("sqlstore: counting follows for %s: %w", userID, err)
	}
	return counts, nil
}
