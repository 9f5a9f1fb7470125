package graphapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/socialhub/internal/apperror"
	"github.com/sakif/socialhub/internal/auth"
	"github.com/sakif/socialhub/internal/graphapi"
	"github.com/sakif/socialhub/internal/repository/sqlstore"
	"github.com/sakif/socialhub/internal/service"
)

type gqlResponse struct {
	Data   map[string]any `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

type testGraph struct {
	handler http.Handler
	svc     *service.Services
}

func newTestGraph(t *testing.T, opts ...graphapi.Option) *testGraph {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := sqlstore.Open(context.Background(), sqlstore.Options{Driver: "sqlite", DSN: ":memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokenService("graphql-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	svc := service.New(store, auth.NewPasswordServiceWithCost(bcrypt.MinCost), tokens, logger)
	h, err := graphapi.New(svc, logger, opts...)
	require.NoError(t, err)

	return &testGraph{handler: auth.OptionalAuth(tokens)(h), svc: svc}
}

func (g *testGraph) post(t *testing.T, token, query string, vars map[string]any) gqlResponse {
	t.Helper()
	body, err := json.Marshal(graphapi.Request{Query: query, Variables: vars})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	g.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp gqlResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func (g *testGraph) register(t *testing.T, username string) *service.AuthResult {
	t.Helper()
	res, err := g.svc.Users.Register(context.Background(), service.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
		FullName: "User " + username,
	})
	require.NoError(t, err)
	return res
}

func errorCode(t *testing.T, resp gqlResponse) string {
	t.Helper()
	require.NotEmpty(t, resp.Errors, "expected a GraphQL error")
	code, _ := resp.Errors[0].Extensions["code"].(string)
	return code
}

// =============================================================================
// TESTS
// =============================================================================

func TestRegisterAndMe(t *testing.T) {
	g := newTestGraph(t)

	resp := g.post(t, "", `mutation($u: String!, $e: String!) {
		register(username: $u, email: $e, password: "password123", full_name: "Alice") {
			token
			user { id username }
		}
	}`, map[string]any{"u": "alice", "e": "alice@example.com"})
	require.Empty(t, resp.Errors)

	payload := resp.Data["register"].(map[string]any)
	token := payload["token"].(string)
	require.NotEmpty(t, token)

	resp = g.post(t, token, `{ me { username email followersCount followingCount } }`, nil)
	require.Empty(t, resp.Errors)
	me := resp.Data["me"].(map[string]any)
	assert.Equal(t, "alice", me["username"])
	assert.Equal(t, "alice@example.com", me["email"])
	assert.Equal(t, float64(0), me["followersCount"])
}

func TestLogin_WrongPassword(t *testing.T) {
	g := newTestGraph(t)
	g.register(t, "alice")

	resp := g.post(t, "", `mutation { login(email: "alice@example.com", password: "wrong-password") { token } }`, nil)
	assert.Equal(t, "unauthorized", errorCode(t, resp))
	assert.Equal(t, "invalid email or password", resp.Errors[0].Message)
}

// budgetLimiter allows a fixed number of calls, then reports rate_limited.
type budgetLimiter struct{ left int }

func (l *budgetLimiter) Allow(context.Context) error {
	if l.left == 0 {
		return apperror.RateLimited("rate limit exceeded")
	}
	l.left--
	return nil
}

func TestAuthMutations_SpendLimiterBudget(t *testing.T) {
	limiter := &budgetLimiter{left: 2}
	g := newTestGraph(t, graphapi.WithAuthLimiter(limiter))

	resp := g.post(t, "", `mutation { register(username: "alice", email: "alice@example.com", password: "password123") { token } }`, nil)
	require.Empty(t, resp.Errors)

	resp = g.post(t, "", `mutation { login(email: "alice@example.com", password: "wrong-password") { token } }`, nil)
	assert.Equal(t, "unauthorized", errorCode(t, resp))

	resp = g.post(t, "", `mutation { login(email: "alice@example.com", password: "password123") { token } }`, nil)
	assert.Equal(t, "rate_limited", errorCode(t, resp))
	assert.Equal(t, "rate limit exceeded", resp.Errors[0].Message)

	// Other operations do not touch the budget.
	resp = g.post(t, "", `{ posts { id } }`, nil)
	assert.Empty(t, resp.Errors)
}

func TestMutationsRequireAuth(t *testing.T) {
	g := newTestGraph(t)

	resp := g.post(t, "", `mutation { createPost(content: "hi") { id } }`, nil)
	assert.Equal(t, "unauthorized", errorCode(t, resp))

	resp = g.post(t, "not-a-jwt", `mutation { createPost(content: "hi") { id } }`, nil)
	assert.Equal(t, "unauthorized", errorCode(t, resp))
}

func TestPostGraph(t *testing.T) {
	g := newTestGraph(t)
	alice := g.register(t, "alice")
	bob := g.register(t, "bob")

	resp := g.post(t, alice.Token, `mutation { createPost(content: "hello graph", image: "https://img.example.com/1.png") { id image commentsEnabled } }`, nil)
	require.Empty(t, resp.Errors)
	created := resp.Data["createPost"].(map[string]any)
	postID := created["id"].(string)
	assert.Equal(t, "https://img.example.com/1.png", created["image"])
	assert.Equal(t, true, created["commentsEnabled"])

	resp = g.post(t, bob.Token, `mutation($id: ID!) { likePost(postId: $id) { id user { username } } }`, map[string]any{"id": postID})
	require.Empty(t, resp.Errors)

	resp = g.post(t, bob.Token, `mutation($id: ID!) { commentPost(postId: $id, content: "nice") { id post { id } } }`, map[string]any{"id": postID})
	require.Empty(t, resp.Errors)

	resp = g.post(t, "", `query($id: ID!) {
		post(id: $id) {
			content
			user { username }
			likeCount
			commentCount
			comments { content user { username } }
			likes { user { username } }
		}
	}`, map[string]any{"id": postID})
	require.Empty(t, resp.Errors)

	post := resp.Data["post"].(map[string]any)
	assert.Equal(t, "hello graph", post["content"])
	assert.Equal(t, "alice", post["user"].(map[string]any)["username"])
	assert.Equal(t, float64(1), post["likeCount"])
	assert.Equal(t, float64(1), post["commentCount"])
	comments := post["comments"].([]any)
	require.Len(t, comments, 1)
	assert.Equal(t, "bob", comments[0].(map[string]any)["user"].(map[string]any)["username"])

	resp = g.post(t, "", `{ posts { id } }`, nil)
	require.Empty(t, resp.Errors)
	assert.Len(t, resp.Data["posts"], 1)

	resp = g.post(t, bob.Token, `mutation($id: ID!) { deletePost(id: $id) }`, map[string]any{"id": postID})
	assert.Equal(t, "not_found", errorCode(t, resp))

	resp = g.post(t, alice.Token, `mutation($id: ID!) { deletePost(id: $id) }`, map[string]any{"id": postID})
	require.Empty(t, resp.Errors)
	assert.Equal(t, true, resp.Data["deletePost"])

	resp = g.post(t, "", `query($id: ID!) { post(id: $id) { id } }`, map[string]any{"id": postID})
	assert.Equal(t, "not_found", errorCode(t, resp))
	assert.Nil(t, resp.Data["post"])
}

func TestFollowGraph(t *testing.T) {
	g := newTestGraph(t)
	alice := g.register(t, "alice")
	bob := g.register(t, "bob")

	resp := g.post(t, alice.Token, `mutation($id: ID!) { followUser(userId: $id) { follower { username } following { username } } }`,
		map[string]any{"id": bob.User.ID})
	require.Empty(t, resp.Errors)
	follow := resp.Data["followUser"].(map[string]any)
	assert.Equal(t, "alice", follow["follower"].(map[string]any)["username"])
	assert.Equal(t, "bob", follow["following"].(map[string]any)["username"])

	resp = g.post(t, "", `query($id: ID!) { followers(userId: $id) { username } }`, map[string]any{"id": bob.User.ID})
	require.Empty(t, resp.Errors)
	assert.Len(t, resp.Data["followers"], 1)

	resp = g.post(t, alice.Token, `mutation($id: ID!) { followUser(userId: $id) { id } }`, map[string]any{"id": alice.User.ID})
	assert.Equal(t, "validation_error", errorCode(t, resp))
	assert.Equal(t, "you cannot follow yourself", resp.Errors[0].Message)

	resp = g.post(t, alice.Token, `mutation($id: ID!) { unfollowUser(userId: $id) }`, map[string]any{"id": bob.User.ID})
	require.Empty(t, resp.Errors)

	resp = g.post(t, alice.Token, `mutation($id: ID!) { unfollowUser(userId: $id) }`, map[string]any{"id": bob.User.ID})
	assert.Equal(t, "not_found", errorCode(t, resp))
}

func TestFeedRequiresAuth(t *testing.T) {
	g := newTestGraph(t)
	alice := g.register(t, "alice")

	resp := g.post(t, "", `{ feed { id } }`, nil)
	assert.Equal(t, "unauthorized", errorCode(t, resp))

	resp = g.post(t, alice.Token, `{ feed(limit: 5) { id } }`, nil)
	require.Empty(t, resp.Errors)
	assert.Len(t, resp.Data["feed"], 0)
}

func TestServeHTTP_Transport(t *testing.T) {
	g := newTestGraph(t)
	g.register(t, "alice")

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{
			name:       "GET query",
			method:     http.MethodGet,
			target:     "/graphql?query=" + url.QueryEscape(`{ users(search: "ali") { username } }`),
			wantStatus: http.StatusOK,
		},
		{
			name:       "GET mutation is rejected",
			method:     http.MethodGet,
			target:     "/graphql?query=" + url.QueryEscape(`mutation { deletePost(id: "x") }`),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			method:     http.MethodPost,
			target:     "/graphql",
			body:       `{"query": `,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing query",
			method:     http.MethodPost,
			target:     "/graphql",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unsupported method",
			method:     http.MethodPut,
			target:     "/graphql",
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			g.handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}
