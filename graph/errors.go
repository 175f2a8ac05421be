package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"

	"github.com/AbdullaK123/book-api/internal/domain"
)

// ErrorPresenter tags resolver errors with extensions.code. Internal
// failures are logged and replaced by a generic message; parse and
// validation errors pass through untouched.
func ErrorPresenter(log *zap.Logger) graphql.ErrorPresenterFunc {
	return func(ctx context.Context, err error) *gqlerror.Error {
		gqlErr := graphql.DefaultErrorPresenter(ctx, err)
		cause := errors.Unwrap(gqlErr)
		if cause == nil {
			return gqlErr
		}

		code := domain.Code(cause)
		if code == domain.CodeInternal {
			log.Error("graphql internal error", zap.String("path", gqlErr.Path.String()), zap.Error(cause))
			gqlErr.Message = "internal error"
		}
		if gqlErr.Extensions == nil {
			gqlErr.Extensions = map[string]interface{}{}
		}
		gqlErr.Extensions["code"] = code
		return gqlErr
	}
}

// RecoverFunc logs resolver panics and reports them as internal errors.
func RecoverFunc(log *zap.Logger) graphql.RecoverFunc {
	return func(ctx context.Context, p interface{}) error {
		log.Error("graphql resolver panic", zap.String("panic", fmt.Sprint(p)), zap.Stack("stack"))
		return &domain.FatalError{Op: "resolve", Err: fmt.Errorf("panic: %v", p)}
	}
}
