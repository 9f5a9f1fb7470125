// Package graphapi serves the GraphQL surface of the API.
//
// The schema is assembled at startup with graphql-go. Resolvers are thin:
// each one reads its arguments, calls a service method and returns the
// result, the same way the REST handlers do. Identity comes from the
// request context (auth.OptionalAuth), so an absent or invalid token simply
// means an anonymous caller.
package graphapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/sakif/socialhub/internal/apperror"
	"github.com/sakif/socialhub/internal/service"
)

const maxBodyBytes = 1 << 20

// Request is the standard GraphQL-over-HTTP request body.
type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

type Handler struct {
	schema graphql.Schema
	logger *slog.Logger
}

// Limiter spends one unit of a caller's budget, or returns the apperror that
// explains why it cannot. middleware.Limiter implements it.
type Limiter interface {
	Allow(ctx context.Context) error
}

type Option func(*resolver)

// WithAuthLimiter guards the register and login mutations. Pass the limiter
// that wraps the REST auth routes so both surfaces share one budget.
func WithAuthLimiter(l Limiter) Option {
	return func(r *resolver) { r.authLimit = l }
}

// New builds the schema over svc.
func New(svc *service.Services, logger *slog.Logger, opts ...Option) (*Handler, error) {
	r := &resolver{svc: svc, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	schema, err := newSchema(r)
	if err != nil {
		return nil, err
	}
	return &Handler{schema: schema, logger: logger}, nil
}

// Execute runs one GraphQL operation.
func (h *Handler) Execute(ctx context.Context, req Request) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
}

// ServeHTTP accepts POST with a JSON body, or GET with ?query= for reads.
// A request that parses is always answered 200, with failures reported in
// the "errors" array.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if vars := q.Get("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				h.badRequest(w, "variables must be a JSON object")
				return
			}
		}
	case http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.badRequest(w, "invalid JSON body")
			return
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		h.writeJSON(w, http.StatusMethodNotAllowed, errorBody(apperror.CodeValidation, "method not allowed"))
		return
	}

	if req.Query == "" {
		h.badRequest(w, "query is required")
		return
	}

	// GET must not change state.
	if r.Method == http.MethodGet && isMutation(req) {
		h.badRequest(w, "mutations must use POST")
		return
	}

	h.writeJSON(w, http.StatusOK, h.Execute(r.Context(), req))
}

func (h *Handler) badRequest(w http.ResponseWriter, msg string) {
	h.writeJSON(w, http.StatusBadRequest, errorBody(apperror.CodeValidation, msg))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode graphql response", slog.String("error", err.Error()))
	}
}

func errorBody(code, msg string) map[string]any {
	return map[string]any{
		"errors": []map[string]any{{
			"message":    msg,
			"extensions": map[string]string{"code": code},
		}},
	}
}
