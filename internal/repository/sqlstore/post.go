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

// Every post query joins the author so responses can show username and full
// name, and so posts by soft-deleted users disappear with them.
const (
	postColumns = `p.id, p.user_id, p.content, p.media_url, p.comments_enabled, p.scheduled_at,
		p.is_deleted, p.created_at, p.updated_at, u.username, u.full_name`
	postFrom = `FROM posts p JOIN users u ON u.id = p.user_id AND u.is_deleted = FALSE`

	// visiblePost is the listing predicate. It takes one argument: now.
	visiblePost = `p.is_deleted = FALSE AND (p.scheduled_at IS NULL OR p.scheduled_at <= ?)`
)

func scanPost(row interface{ Scan(...any) error }) (*model.Post, error) {
	var (
		p         model.Post
		scheduled sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Content,
		&p.MediaURL,
		&p.CommentsEnabled,
		&scheduled,
		&p.Deleted,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Username,
		&p.FullName,
	)
	if err != nil {
		return nil, err
	}
	if scheduled.Valid {
		t := scheduled.Time.UTC()
		p.ScheduledAt = &t
	}
	return &p, nil
}

// CreatePost inserts a post. CreatedAt is kept when the caller already set it,
// otherwise it is now.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	now := db.now()
	post.ID = xid.New().String()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	if post.ScheduledAt != nil {
		t := post.ScheduledAt.UTC().Truncate(time.Microsecond)
		post.ScheduledAt = &t
	}

	_, err := db.exec(ctx, db.conn, "insert", "posts",
		`INSERT INTO posts (id, user_id, content, media_url, comments_enabled, scheduled_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.UserID,
		post.Content,
		post.MediaURL,
		post.CommentsEnabled,
		post.ScheduledAt,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: creating post: %w", err)
	}
	return nil
}

// GetPostByID returns a post that is not soft-deleted. Scheduled posts are
// returned as well; whether the caller may see one is a service decision.
func (db *DB) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	return db.getPost(ctx, db.conn, id)
}

func (db *DB) getPost(ctx context.Context, q querier, id string) (*model.Post, error) {
	row := db.queryRow(ctx, q, "select", "posts",
		`SELECT `+postColumns+` `+postFrom+` WHERE p.id = ? AND p.is_deleted = FALSE`,
		id,
	)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlstore: getting post %s: %w", id, err)
	}
	return p, nil
}

// ListPostsByUser lists one author's posts, newest first. includeScheduled is
// set when the author is looking at their own posts.
func (db *DB) ListPostsByUser(ctx context.Context, userID string, includeScheduled bool, now time.Time, opts repository.ListOptions) ([]model.Post, bool, error) {
	limit, offset, fetch := window(opts)

	if includeScheduled {
		return db.listPosts(ctx, limit,
			`SELECT `+postColumns+` `+postFrom+`
			 WHERE p.user_id = ? AND p.is_deleted = FALSE
			 ORDER BY p.created_at DESC, p.id DESC
			 LIMIT ? OFFSET ?`,
			userID, fetch, offset,
		)
	}
	return db.listPosts(ctx, limit,
		`SELECT `+postColumns+` `+postFrom+`
		 WHERE p.user_id = ? AND `+visiblePost+`
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT ? OFFSET ?`,
		userID, now.UTC(), fetch, offset,
	)
}

// ListRecentPosts returns every visible post, newest first.
func (db *DB) ListRecentPosts(ctx context.Context, now time.Time, opts repository.ListOptions) ([]model.Post, bool, error) {
	limit, offset, fetch := window(opts)
	return db.listPosts(ctx, limit,
		`SELECT `+postColumns+` `+postFrom+`
		 WHERE `+visiblePost+`
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT ? OFFSET ?`,
		now.UTC(), fetch, offset,
	)
}

// Feed returns visible posts written by userID or by anyone userID follows,
// newest first.
func (db *DB) Feed(ctx context.Context, userID string, now time.Time, opts repository.ListOptions) ([]model.Post, bool, error) {
	limit, offset, fetch := window(opts)
	return db.listPosts(ctx, limit,
		`SELECT `+postColumns+` `+postFrom+`
		 WHERE (p.user_id = ? OR p.user_id IN (SELECT following_id FROM follow WHERE follower_id = ?))
		   AND `+visiblePost+`
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT ? OFFSET ?`,
		userID, userID, now.UTC(), fetch, offset,
	)
}

// SearchPosts matches content case-insensitively. No ranking: newest first.
func (db *DB) SearchPosts(ctx context.Context, query string, now time.Time, opts repository.ListOptions) ([]model.Post, bool, error) {
	limit, offset, fetch := window(opts)
	return db.listPosts(ctx, limit,
		`SELECT `+postColumns+` `+postFrom+`
		 WHERE LOWER(p.content) LIKE LOWER(?) ESCAPE '\' AND `+visiblePost+`
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT ? OFFSET ?`,
		likePattern(query), now.UTC(), fetch, offset,
	)
}

func (db *DB) listPosts(ctx context.Context, limit int, query string, args ...any) ([]model.Post, bool, error) {
	rows, err := db.query(ctx, db.conn, "select", "posts", query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("sqlstore: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, limit+1)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, false, fmt.Errorf("sqlstore: scanning post row: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("sqlstore: iterating posts: %w", err)
	}

	posts, hasMore := trimPage(posts, limit)
	return posts, hasMore, nil
}

// UpdatePost applies the non-nil fields of upd to a post owned by ownerID.
// Zero rows affected (missing, deleted or not owned) is NotFound.
func (db *DB) UpdatePost(ctx context.Context, id, ownerID string, upd model.PostUpdate) (*model.Post, error) {
	var updated *model.Post
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := db.exec(ctx, tx, "update", "posts",
			`UPDATE posts
			 SET content = COALESCE(?, content),
			     media_url = COALESCE(?, media_url),
			     comments_enabled = COALESCE(?, comments_enabled),
			     updated_at = ?
			 WHERE id = ? AND user_id = ? AND is_deleted = FALSE`,
			upd.Content,
			upd.MediaURL,
			upd.CommentsEnabled,
			db.now(),
			id,
			ownerID,
		)
		if err != nil {
			return fmt.Errorf("sqlstore: updating post %s: %w", id, err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperror.NotFound("post", id)
		}

		updated, err = db.getPost(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SoftDeletePost flags a post owned by ownerID as deleted.
func (db *DB) SoftDeletePost(ctx context.Context, id, ownerID string) error {
	res, err := db.exec(ctx, db.conn, "update", "posts",
		`UPDATE posts SET is_deleted = TRUE, updated_at = ?
		 WHERE id = ? AND user_id = ? AND is_deleted = FALSE`,
		db.now(), id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting post %s: %w", id, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("post", id)
	}
	return nil
}
