package sqlstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/socialhub/internal/apperror"
	"github.com/sakif/socialhub/internal/model"
)

// The Postgres dialect is exercised against sqlmock: it checks the rebound
// placeholders and the pgconn error mapping without a running server.
func setupMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWithConn(conn, DialectPostgres, logger), mock
}

func TestPostgres_GetUserByID_UsesDollarPlaceholders(t *testing.T) {
	db, mock := setupMockDB(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1 AND is_deleted = FALSE`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "email", "password_hash", "full_name", "bio", "avatar", "is_deleted", "created_at", "updated_at",
		}).AddRow("u1", "alice", "alice@example.com", "hash", "Alice", "", "", false, now, now))

	user, err := db.GetUserByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.CreatedAt.Equal(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateUser_UniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := db.CreateUser(context.Background(), &model.User{Username: "alice", Email: "alice@example.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrConflict))

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "email", appErr.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Follow_ExistingEdge(t *testing.T) {
	db, mock := setupMockDB(t)
	existingAt := time.Date(2025, 12, 24, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (follower_id, following_id) DO NOTHING`)).
		WithArgs(sqlmock.AnyArg(), "a", "b", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, created_at FROM follow WHERE follower_id = $1 AND following_id = $2`)).
		WithArgs("a", "b").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("f-existing", existingAt))
	mock.ExpectCommit()

	follow, created, err := db.Follow(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "f-existing", follow.ID)
	assert.True(t, follow.CreatedAt.Equal(existingAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Like_RollsBackOnError(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "like"`)).
		WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	_, _, err := db.Like(context.Background(), "u1", "p1")
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInternal, apperror.Code(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateComment_ZeroRowsIsNotFound(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE comment SET content = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`)).
		WithArgs("new", sqlmock.AnyArg(), "c1", "someone-else").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := db.UpdateComment(context.Background(), "c1", "someone-else", "new")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
