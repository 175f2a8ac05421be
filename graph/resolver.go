// graph/resolver.go

package graph

//go:generate go run github.com/99designs/gqlgen generate

import (
	"go.uber.org/zap"

	"github.com/AbdullaK123/book-api/internal/comments"
	"github.com/AbdullaK123/book-api/internal/events"
)

// This file will not be regenerated automatically.
//
// It serves as dependency injection for your app, add any dependencies you require here.

// Resolver is the root resolver. It holds everything the query and mutation
// fields need.
type Resolver struct {
	CommentService *comments.Service
	Observer       *events.Observer
	Log            *zap.Logger
}
