package graphapi

import (
	"log/slog"

	"github.com/sakif/socialhub/internal/apperror"
)

// Error is a resolver failure as GraphQL clients see it. graphql-go copies
// Extensions() into the "extensions" member of the formatted error, so
// extensions.code carries the same value as the REST "error" field.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Code}
}

// toError converts a service error. Internal errors are logged and reduced
// to a generic message.
func toError(logger *slog.Logger, field string, err error) error {
	code := apperror.Code(err)
	if code == apperror.CodeInternal {
		logger.Error("graphql resolver failed",
			slog.String("field", field),
			slog.String("error", err.Error()),
		)
	}
	return &Error{Code: code, Message: apperror.PublicMessage(err)}
}
