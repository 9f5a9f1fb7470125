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

const commentColumns = `c.id, c.post_id, c.user_id, c.content, c.created_at, c.updated_at, u.username, u.full_name`

func scanComment(row interface{ Scan(...any) error }) (*model.Comment, error) {
	var c model.Comment
	if err := row.Scan(
		&c.ID,
		&c.PostID,
		&c.UserID,
		&c.Content,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.Username,
		&c.FullName,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateComment inserts a comment and fills in the author's display fields.
// The caller has already checked that the post exists and accepts comments.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	now := db.now()
	comment.ID = xid.New().String()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	_, err := db.exec(ctx, db.conn, "insert", "comment",
		`INSERT INTO comment (id, post_id, user_id, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		comment.ID,
		comment.PostID,
		comment.UserID,
		comment.Content,
		comment.CreatedAt,
		comment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: creating comment: %w", err)
	}

	stored, err := db.GetCommentByID(ctx, comment.ID)
	if err != nil {
		return err
	}
	*comment = *stored
	return nil
}

func (db *DB) GetCommentByID(ctx context.Context, id string) (*model.Comment, error) {
	row := db.queryRow(ctx, db.conn, "select", "comment",
		`SELECT `+commentColumns+`
		 FROM comment c JOIN users u ON u.id = c.user_id
		 WHERE c.id = ?`,
		id,
	)
	c, err := scanComment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlstore: getting comment %s: %w", id, err)
	}
	return c, nil
}

// ListCommentsByPost returns a post's comments in conversation order (oldest first).
func (db *DB) ListCommentsByPost(ctx context.Context, postID string, opts repository.ListOptions) ([]model.Comment, bool, error) {
	limit, offset, fetch := window(opts)

	rows, err := db.query(ctx, db.conn, "select", "comment",
		`SELECT `+commentColumns+`
		 FROM comment c JOIN users u ON u.id = c.user_id AND u.is_deleted = FALSE
		 WHERE c.post_id = ?
		 ORDER BY c.created_at ASC, c.id ASC
		 LIMIT ? OFFSET ?`,
		postID, fetch, offset,
	)
	if err != nil {
		return nil, false, fmt.Errorf("sqlstore: listing comments for post %s: %w", postID, err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0, fetch)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, false, fmt.Errorf("sqlstore: scanning comment row: %w", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("sqlstore: iterating comments: %w", err)
	}

	comments, hasMore := trimPage(comments, limit)
	return comments, hasMore, nil
}

// UpdateComment rewrites the content of a comment owned by ownerID.
func (db *DB) UpdateComment(ctx context.Context, id, ownerID, content string) (*model.Comment, error) {
	res, err := db.exec(ctx, db.conn, "update", "comment",
		`UPDATE comment SET content = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		content, db.now(), id, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: updating comment %s: %w", id, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperror.NotFound("comment", id)
	}
	return db.GetCommentByID(ctx, id)
}

// DeleteComment hard-deletes a comment owned by ownerID.
func (db *DB) DeleteComment(ctx context.Context, id, ownerID string) error {
	res, err := db.exec(ctx, db.conn, "delete", "comment",
		`DELETE FROM comment WHERE id = ? AND user_id = ?`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting comment %s: %w", id, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("comment", id)
	}
	return nil
}

// CountCommentsByPost matches ListCommentsByPost: comments by deleted
// accounts are not counted.
func (db *DB) CountCommentsByPost(ctx context.Context, postID string) (int, error) {
	var n int
	err := db.queryRow(ctx, db.conn, "count", "comment",
		`SELECT COUNT(*)
		 FROM comment c JOIN users u ON u.id = c.user_id AND u.is_deleted = FALSE
		 WHERE c.post_id = ?`, postID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: counting comments for post %s: %w", postID, err)
	}
	return n, nil
}
