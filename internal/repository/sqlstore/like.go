package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/socialhub/internal/apperror"
	"github.com/sakif/socialhub/internal/model"
	"github.com/sakif/socialhub/internal/repository"
)

// Like records that userID likes postID.
//
// IDEMPOTENCY:
// The insert uses ON CONFLICT DO NOTHING against the (user_id, post_id)
// unique key. RETURNING yields a row only when the insert happened; when it
// yields nothing the pair already existed and we read it back. Both steps run
// in one transaction so the caller gets a single answer: the like row, and
// whether this call created it.
func (db *DB) Like(ctx context.Context, userID, postID string) (*model.Like, bool, error) {
	like := &model.Like{
		ID:        xid.New().String(),
		UserID:    userID,
		PostID:    postID,
		CreatedAt: db.now(),
	}
	created := true

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var id string
		err := db.queryRow(ctx, tx, "insert", "like",
			`INSERT INTO "like" (id, user_id, post_id, created_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT (user_id, post_id) DO NOTHING
			 RETURNING id`,
			like.ID, like.UserID, like.PostID, like.CreatedAt,
		).Scan(&id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("sqlstore: inserting like: %w", err)
		}

		created = false
		err = db.queryRow(ctx, tx, "select", "like",
			`SELECT id, created_at FROM "like" WHERE user_id = ? AND post_id = ?`,
			userID, postID,
		).Scan(&like.ID, &like.CreatedAt)
		if err != nil {
			return fmt.Errorf("sqlstore: reading existing like: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return like, created, nil
}

// Unlike removes the pair. NotFound when the post was not liked.
func (db *DB) Unlike(ctx context.Context, userID, postID string) error {
	res, err := db.exec(ctx, db.conn, "delete", "like",
		`DELETE FROM "like" WHERE user_id = ? AND post_id = ?`,
		userID, postID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting like: %w", err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("like", postID)
	}
	return nil
}

// ListLikesByPost lists who liked a post, most recent first.
func (db *DB) ListLikesByPost(ctx context.Context, postID string, opts repository.ListOptions) ([]model.PostLike, bool, error) {
	limit, offset, fetch := window(opts)

	rows, err := db.query(ctx, db.conn, "select", "like",
		`SELECT l.id, l.post_id, l.user_id, u.username, u.full_name, l.created_at
		 FROM "like" l JOIN users u ON u.id = l.user_id AND u.is_deleted = FALSE
		 WHERE l.post_id = ?
		 ORDER BY l.created_at DESC, l.id DESC
		 LIMIT ? OFFSET ?`,
		postID, fetch, offset,
	)
	if err != nil {
		return nil, false, fmt.Errorf("sqlstore: listing likes for post %s: %w", postID, err)
	}
	defer rows.Close()

	likes := make([]model.PostLike, 0, fetch)
	for rows.Next() {
		var l model.PostLike
		if err := rows.Scan(&l.ID, &l.PostID, &l.UserID, &l.Username, &l.FullName, &l.CreatedAt); err != nil {
			return nil, false, fmt.Errorf("sqlstore: scanning like row: %w", err)
		}
		likes = append(likes, l)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("sqlstore: iterating likes: %w", err)
	}

	likes, hasMore := trimPage(likes, limit)
	return likes, hasMore, nil
}

// ListLikesByUser lists the visible posts a user liked, most recently liked first.
func (db *DB) ListLikesByUser(ctx context.Context, userID string, now time.Time, opts repository.ListOptions) ([]model.LikedPost, bool, error) {
	limit, offset, fetch := window(opts)

	rows, err := db.query(ctx, db.conn, "select", "like",
		`SELECT p.id, p.content, p.media_url, p.created_at, l.created_at
		 FROM "like" l
		 JOIN posts p ON p.id = l.post_id
		 JOIN users u ON u.id = p.user_id AND u.is_deleted = FALSE
		 WHERE l.user_id = ? AND p.is_deleted = FALSE
		   AND (p.scheduled_at IS NULL OR p.scheduled_at <= ?)
		 ORDER BY l.created_at DESC, l.id DESC
		 LIMIT ? OFFSET ?`,
		userID, now.UTC(), fetch, offset,
	)
	if err != nil {
		return nil, false, fmt.Errorf("sqlstore: listing likes by user %s: %w", userID, err)
	}
	defer rows.Close()

	liked := make([]model.LikedPost, 0, fetch)
	for rows.Next() {
		var lp model.LikedPost
		if err := rows.Scan(&lp.PostID, &lp.Content, &lp.MediaURL, &lp.CreatedAt, &lp.LikedAt); err != nil {
			return nil, false, fmt.Errorf("sqlstore: scanning liked post row: %w", err)
		}
		liked = append(liked, lp)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("sqlstore: iterating liked posts: %w", err)
	}

	liked, hasMore := trimPage(liked, limit)
	return liked, hasMore, nil
}

// CountLikesByPost counts the same rows ListLikesByPost returns: likes by
// deleted accounts are left out.
func (db *DB) CountLikesByPost(ctx context.Context, postID string) (int, error) {
	var n int
	err := db.queryRow(ctx, db.conn, "count", "like",
		`SELECT COUNT(*)
		 FROM "like" l JOIN users u ON u.id = l.user_id AND u.is_deleted = FALSE
		 WHERE l.post_id = ?`, postID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: counting likes for post %s: %w", postID, err)
	}
	return n, nil
}
