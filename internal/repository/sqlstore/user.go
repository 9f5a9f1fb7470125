package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/socialhub/internal/apperror"
	"github.com/sakif/socialhub/internal/model"
	"github.com/sakif/socialhub/internal/repository"
)

const userColumns = `id, username, email, password_hash, full_name, bio, avatar, is_deleted, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.Bio,
		&u.Avatar,
		&u.Deleted,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// userConflict maps a unique violation on users to the offending field.
func userConflict(detail string) *apperror.AppError {
	if strings.Contains(detail, "email") {
		return apperror.Conflict("user", "email")
	}
	return apperror.Conflict("user", "username")
}

// CreateUser inserts a new account. The ID and timestamps are generated here
// and written back into user.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := db.now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.exec(ctx, db.conn, "insert", "users",
		`INSERT INTO users (id, username, email, password_hash, full_name, bio, avatar, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Bio,
		user.Avatar,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if detail, ok := uniqueViolation(err); ok {
			return userConflict(detail)
		}
		return fmt.Errorf("sqlstore: creating user %q: %w", user.Username, err)
	}
	return nil
}

// GetUserByID returns an active (not soft-deleted) user.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id", id)
}

// GetUserByEmail is used by login. Emails are stored lower-cased by the service.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, "email", email)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, "username", username)
}

// getUser looks a user up by one of the unique columns. column is always a
// constant from this file, never user input.
func (db *DB) getUser(ctx context.Context, column, value string) (*model.User, error) {
	row := db.queryRow(ctx, db.conn, "select", "users",
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ? AND is_deleted = FALSE`,
		value,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlstore: getting user by %s: %w", column, err)
	}
	return u, nil
}

// SearchUsers does a case-insensitive substring match on username and full name.
func (db *DB) SearchUsers(ctx context.Context, query string, opts repository.ListOptions) ([]model.User, bool, error) {
	limit, offset, fetch := window(opts)
	pattern := likePattern(query)

	rows, err := db.query(ctx, db.conn, "select", "users",
		`SELECT `+userColumns+`
		 FROM users
		 WHERE (LOWER(username) LIKE LOWER(?) ESCAPE '\' OR LOWER(full_name) LIKE LOWER(?) ESCAPE '\')
		   AND is_deleted = FALSE
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		pattern, pattern, fetch, offset,
	)
	if err != nil {
		return nil, false, fmt.Errorf("sqlstore: searching users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, fetch)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, false, fmt.Errorf("sqlstore: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("sqlstore: iterating users: %w", err)
	}

	users, hasMore := trimPage(users, limit)
	return users, hasMore, nil
}

// UpdateUser applies the non-nil fields of upd and returns the fresh row.
func (db *DB) UpdateUser(ctx context.Context, id string, upd model.UserUpdate) (*model.User, error) {
	res, err := db.exec(ctx, db.conn, "update", "users",
		`UPDATE users
		 SET full_name = COALESCE(?, full_name),
		     email = COALESCE(?, email),
		     bio = COALESCE(?, bio),
		     avatar = COALESCE(?, avatar),
		     updated_at = ?
		 WHERE id = ? AND is_deleted = FALSE`,
		upd.FullName,
		upd.Email,
		upd.Bio,
		upd.Avatar,
		db.now(),
		id,
	)
	if err != nil {
		if detail, ok := uniqueViolation(err); ok {
			return nil, userConflict(detail)
		}
		return nil, fmt.Errorf("sqlstore: updating user %s: %w", id, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperror.NotFound("user", id)
	}

	return db.GetUserByID(ctx, id)
}

// SoftDeleteUser flags the account as deleted. Rows that reference the user
// stay in place; queries hide them by joining on users.is_deleted.
func (db *DB) SoftDeleteUser(ctx context.Context, id string) error {
	res, err := db.exec(ctx, db.conn, "update", "users",
		`UPDATE users SET is_deleted = TRUE, updated_at = ? WHERE id = ? AND is_deleted = FALSE`,
		db.now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting user %s: %w", id, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}
