package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/socialhub/internal/auth"
	"github.com/sakif/socialhub/internal/handler"
	"github.com/sakif/socialhub/internal/repository/sqlstore"
	"github.com/sakif/socialhub/internal/service"
)

// =============================================================================
// TEST HELPERS
// =============================================================================
// The handlers run against the real services over an in-memory SQLite
// store. httptest.NewRecorder captures each response so tests can assert on
// status and decoded JSON without opening a socket.

type testAPI struct {
	router *chi.Mux
	svc    *service.Services
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := newTestLogger()

	store, err := sqlstore.Open(context.Background(), sqlstore.Options{Driver: "sqlite", DSN: ":memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	svc := service.New(store, auth.NewPasswordServiceWithCost(bcrypt.MinCost), tokens, logger)
	router := chi.NewRouter()
	handler.NewAPI(svc, store, logger).Routes(router, tokens, nil)

	return &testAPI{router: router, svc: svc}
}

// do sends a request with an optional JSON body and bearer token.
func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// register creates an account through the API and returns its token and id.
func (a *testAPI) register(t *testing.T, username string) (token, id string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username":  username,
		"email":     username + "@example.com",
		"password":  "password123",
		"full_name": "User " + username,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp handler.AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Token, resp.User.ID
}

// createPost publishes a post and returns its id.
func (a *testAPI) createPost(t *testing.T, token string, body map[string]any) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/posts", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Post struct {
			ID string `json:"id"`
		} `json:"post"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Post.ID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, rec.Code, rec.Body.String())

	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, code, resp.Error)
	assert.NotEmpty(t, resp.Message)
}

// =============================================================================
// AUTH
// =============================================================================

func TestRegisterAndLogin(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "alice")

	rec := api.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "ALICE@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handler.AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.User.Username)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRegister_Errors(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "alice")

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "malformed JSON",
			body:       `{"username": `,
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
		},
		{
			name:       "empty body",
			body:       "",
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
		},
		{
			name:       "short password",
			body:       map[string]string{"username": "bob", "email": "bob@example.com", "password": "short"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
		},
		{
			name:       "duplicate username",
			body:       map[string]string{"username": "alice", "email": "other@example.com", "password": "password123"},
			wantStatus: http.StatusConflict,
			wantCode:   "conflict",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/auth/register", "", tt.body)
			assertError(t, rec, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestLogin_SameMessageForUnknownEmailAndWrongPassword(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "alice")

	wrong := api.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "not-the-password",
	})
	unknown := api.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "password123",
	})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, decode(t, wrong)["message"], decode(t, unknown)["message"])
}

func TestBodyTooLarge(t *testing.T) {
	api := newTestAPI(t)
	big := `{"username":"` + strings.Repeat("a", 2<<20) + `"}`

	rec := api.do(t, http.MethodPost, "/api/auth/register", "", big)
	assertError(t, rec, http.StatusBadRequest, "validation_error")
}

// =============================================================================
// USERS
// =============================================================================

func TestMe(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, id := api.register(t, "alice")
	rec = api.do(t, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, id, body["id"])
	assert.Equal(t, float64(0), body["follower_count"])
}

func TestUpdateMe(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register(t, "alice")

	rec := api.do(t, http.MethodPut, "/api/users/me", token, map[string]string{"bio": "hello"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "hello", user["bio"])

	rec = api.do(t, http.MethodPut, "/api/users/me", token, map[string]string{"avatar": "not a url"})
	assertError(t, rec, http.StatusBadRequest, "validation_error")
}

func TestDeletedAccount_TokenStopsWorking(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register(t, "alice")

	rec := api.do(t, http.MethodDelete, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/posts", token, map[string]any{"content": "ghost"})
	assertError(t, rec, http.StatusUnauthorized, "unauthorized")

	rec = api.do(t, http.MethodGet, "/api/users/me", token, nil)
	assertError(t, rec, http.StatusUnauthorized, "unauthorized")
}

func TestSearchUsers(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "alice")
	api.register(t, "bob")

	rec := api.do(t, http.MethodGet, "/api/users/search?q=ALI", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["users"], 1)
	assert.Equal(t, false, body["pagination"].(map[string]any)["has_more"])

	rec = api.do(t, http.MethodGet, "/api/users/search?q=", "", nil)
	assertError(t, rec, http.StatusBadRequest, "validation_error")

	rec = api.do(t, http.MethodGet, "/api/users/search?q=a&page=two", "", nil)
	assertError(t, rec, http.StatusBadRequest, "validation_error")
}

func TestFollowFlow(t *testing.T) {
	api := newTestAPI(t)
	aliceToken, aliceID := api.register(t, "alice")
	_, bobID := api.register(t, "bob")

	rec := api.do(t, http.MethodPost, "/api/users/"+bobID+"/follow", aliceToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["created"])

	rec = api.do(t, http.MethodPost, "/api/users/"+bobID+"/follow", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["created"])

	rec = api.do(t, http.MethodGet, "/api/users/"+bobID+"/follow-counts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["follower_count"])

	rec = api.do(t, http.MethodGet, "/api/users/"+bobID+"/followers", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	followers := decode(t, rec)["followers"].([]any)
	require.Len(t, followers, 1)
	assert.Equal(t, aliceID, followers[0].(map[string]any)["id"])

	rec = api.do(t, http.MethodDelete, "/api/users/"+bobID+"/unfollow", aliceToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/users/"+bobID+"/unfollow", aliceToken, nil)
	assertError(t, rec, http.StatusNotFound, "not_found")
}

func TestFollow_Errors(t *testing.T) {
	api := newTestAPI(t)
	token, id := api.register(t, "alice")

	rec := api.do(t, http.MethodPost, "/api/users/"+id+"/follow", token, nil)
	assertError(t, rec, http.StatusBadRequest, "validation_error")

	rec = api.do(t, http.MethodPost, "/api/users/doesnotexist/follow", token, nil)
	assertError(t, rec, http.StatusNotFound, "not_found")

	rec = api.do(t, http.MethodPost, "/api/users/"+id+"/follow", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// =============================================================================
// POSTS
// =============================================================================

func TestPostCRUD(t *testing.T) {
	api := newTestAPI(t)
	aliceToken, _ := api.register(t, "alice")
	bobToken, _ := api.register(t, "bob")

	postID := api.createPost(t, aliceToken, map[string]any{"content": "hello world"})

	rec := api.do(t, http.MethodGet, "/api/posts/"+postID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	post := decode(t, rec)["post"].(map[string]any)
	assert.Equal(t, "hello world", post["content"])
	assert.Equal(t, "alice", post["username"])

	// Someone else's post looks like a missing one.
	rec = api.do(t, http.MethodPut, "/api/posts/"+postID, bobToken, map[string]any{"content": "hijacked"})
	assertError(t, rec, http.StatusNotFound, "not_found")

	rec = api.do(t, http.MethodPut, "/api/posts/"+postID, aliceToken, map[string]any{"content": "edited"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "edited", decode(t, rec)["post"].(map[string]any)["content"])

	rec = api.do(t, http.MethodDelete, "/api/posts/"+postID, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/posts/"+postID, aliceToken, nil)
	assertError(t, rec, http.StatusNotFound, "not_found")
}

func TestCreatePost_Validation(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register(t, "alice")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"empty content", map[string]any{"content": "   "}},
		{"too long", map[string]any{"content": strings.Repeat("x", service.MaxPostLength+1)}},
		{"bad media url", map[string]any{"content": "hi", "media_url": "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/posts", token, tt.body)
			assertError(t, rec, http.StatusBadRequest, "validation_error")
		})
	}
}

func TestScheduledPost_OnlyOwnerSeesIt(t *testing.T) {
	api := newTestAPI(t)
	aliceToken, aliceID := api.register(t, "alice")
	bobToken, _ := api.register(t, "bob")

	future := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
	postID := api.createPost(t, aliceToken, map[string]any{"content": "later", "scheduled_at": future})

	rec := api.do(t, http.MethodGet, "/api/posts/"+postID, aliceToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/posts/"+postID, bobToken, nil)
	assertError(t, rec, http.StatusNotFound, "not_found")

	rec = api.do(t, http.MethodGet, "/api/posts/"+postID, "", nil)
	assertError(t, rec, http.StatusNotFound, "not_found")

	rec = api.do(t, http.MethodGet, "/api/posts/me", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["posts"], 1)

	rec = api.do(t, http.MethodGet, "/api/posts/user/"+aliceID, bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["posts"], 0)
}

func TestFeedAndSearch(t *testing.T) {
	api := newTestAPI(t)
	aliceToken, _ := api.register(t, "alice")
	bobToken, bobID := api.register(t, "bob")
	api.register(t, "carol")

	api.createPost(t, bobToken, map[string]any{"content": "bob says hi"})
	api.createPost(t, aliceToken, map[string]any{"content": "alice says hi"})

	rec := api.do(t, http.MethodGet, "/api/posts/feed", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["posts"], 1)

	api.do(t, http.MethodPost, "/api/users/"+bobID+"/follow", aliceToken, nil)

	rec = api.do(t, http.MethodGet, "/api/posts/feed?limit=1", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["posts"], 1)
	assert.Equal(t, true, body["pagination"].(map[string]any)["has_more"])

	rec = api.do(t, http.MethodGet, "/api/posts/search?q=BOB", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["posts"], 1)

	rec = api.do(t, http.MethodGet, "/api/posts/feed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// =============================================================================
// COMMENTS AND LIKES
// =============================================================================

func TestComments(t *testing.T) {
	api := newTestAPI(t)
	aliceToken, _ := api.register(t, "alice")
	bobToken, _ := api.register(t, "bob")

	open := api.createPost(t, aliceToken, map[string]any{"content": "talk to me"})
	closed := api.createPost(t, aliceToken, map[string]any{"content": "quiet", "comments_enabled": false})

	rec := api.do(t, http.MethodPost, "/api/comments", bobToken, map[string]string{"post_id": open, "content": "hi"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	commentID := decode(t, rec)["comment"].(map[string]any)["id"].(string)

	rec = api.do(t, http.MethodPost, "/api/comments", bobToken, map[string]string{"post_id": closed, "content": "hi"})
	assertError(t, rec, http.StatusForbidden, "forbidden")

	rec = api.do(t, http.MethodPost, "/api/comments", bobToken, map[string]string{"post_id": "missing", "content": "hi"})
	assertError(t, rec, http.StatusNotFound, "not_found")

	rec = api.do(t, http.MethodPut, "/api/comments/"+commentID, aliceToken, map[string]string{"content": "not mine"})
	assertError(t, rec, http.StatusNotFound, "not_found")

	rec = api.do(t, http.MethodPut, "/api/comments/"+commentID, bobToken, map[string]string{"content": "edited"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/comments/post/"+open, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	comments := decode(t, rec)["comments"].([]any)
	require.Len(t, comments, 1)
	assert.Equal(t, "edited", comments[0].(map[string]any)["content"])

	rec = api.do(t, http.MethodDelete, "/api/comments/"+commentID, bobToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLikes(t *testing.T) {
	api := newTestAPI(t)
	aliceToken, _ := api.register(t, "alice")
	bobToken, bobID := api.register(t, "bob")
	postID := api.createPost(t, aliceToken, map[string]any{"content": "like me"})

	rec := api.do(t, http.MethodPost, "/api/likes", bobToken, map[string]string{"post_id": postID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode(t, rec)["like"].(map[string]any)["id"]

	rec = api.do(t, http.MethodPost, "/api/likes", bobToken, map[string]string{"post_id": postID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first, decode(t, rec)["like"].(map[string]any)["id"])

	rec = api.do(t, http.MethodGet, "/api/likes/post/"+postID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["likes"], 1)

	rec = api.do(t, http.MethodGet, "/api/likes/user/"+bobID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["likes"], 1)

	rec = api.do(t, http.MethodDelete, "/api/likes/"+postID, bobToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/likes/"+postID, bobToken, nil)
	assertError(t, rec, http.StatusNotFound, "not_found")

	rec = api.do(t, http.MethodPost, "/api/likes", bobToken, map[string]string{"post_id": "missing"})
	assertError(t, rec, http.StatusNotFound, "not_found")
}

// =============================================================================
// HEALTH
// =============================================================================

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		pinger     handler.Pinger
		wantStatus int
		wantBody   string
	}{
		{"database up", stubPinger{}, http.StatusOK, "ok"},
		{"database down", stubPinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewHealthHandler(tt.pinger, newTestLogger())
			rec := httptest.NewRecorder()
			h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, decode(t, rec)["status"])
		})
	}
}
