package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Table names keep the historical mix of plural and singular so existing data
// keeps working. "like" is a keyword in both dialects and is always quoted.
//
// {{ts}} is the timestamp type: DATETIME for SQLite (modernc maps it to
// time.Time), TIMESTAMPTZ for Postgres.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL,
		email         TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		full_name     TEXT NOT NULL DEFAULT '',
		bio           TEXT NOT NULL DEFAULT '',
		avatar        TEXT NOT NULL DEFAULT '',
		is_deleted    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    {{ts}} NOT NULL,
		updated_at    {{ts}} NOT NULL,
		CONSTRAINT users_username_key UNIQUE (username),
		CONSTRAINT users_email_key UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL REFERENCES users(id),
		content          TEXT NOT NULL,
		media_url        TEXT NOT NULL DEFAULT '',
		comments_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		scheduled_at     {{ts}},
		is_deleted       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at       {{ts}} NOT NULL,
		updated_at       {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_user_created ON posts(user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at)`,
	`CREATE TABLE IF NOT EXISTS comment (
		id         TEXT PRIMARY KEY,
		post_id    TEXT NOT NULL REFERENCES posts(id),
		user_id    TEXT NOT NULL REFERENCES users(id),
		content    TEXT NOT NULL,
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comment_post_created ON comment(post_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS "like" (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		post_id    TEXT NOT NULL REFERENCES posts(id),
		created_at {{ts}} NOT NULL,
		CONSTRAINT like_user_post_key UNIQUE (user_id, post_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_like_post ON "like"(post_id)`,
	`CREATE TABLE IF NOT EXISTS follow (
		id           TEXT PRIMARY KEY,
		follower_id  TEXT NOT NULL REFERENCES users(id),
		following_id TEXT NOT NULL REFERENCES users(id),
		created_at   {{ts}} NOT NULL,
		CONSTRAINT follow_pair_key UNIQUE (follower_id, following_id),
		CONSTRAINT follow_no_self CHECK (follower_id <> following_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_follow_following ON follow(following_id)`,
}

// Migrate creates every table and index that does not exist yet.
// CREATE ... IF NOT EXISTS makes it safe to run on every start.
func (db *DB) Migrate(ctx context.Context) error {
	tsType := "DATETIME"
	if db.dialect == DialectPostgres {
		tsType = "TIMESTAMPTZ"
	}

	for i, stmt := range schema {
		stmt = strings.ReplaceAll(stmt, "{{ts}}", tsType)
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema statement %d: %w", i+1, err)
		}
	}

	db.logger.Debug("database schema up to date",
		slog.String("dialect", string(db.dialect)),
		slog.Int("statements", len(schema)),
	)
	return nil
}
