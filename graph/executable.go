package graph

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/AbdullaK123/book-api/graph/model"
	"github.com/AbdullaK123/book-api/internal/domain"
)

//go:embed schema.graphqls
var sourceSchema string

var parsedSchema = gqlparser.MustLoadSchema(&ast.Source{Name: "schema.graphqls", Input: sourceSchema, BuiltIn: false})

// Config wires resolvers into NewExecutableSchema.
type Config struct {
	Resolvers ResolverRoot
}

type ResolverRoot interface {
	Comment() CommentResolver
	Mutation() MutationResolver
	Query() QueryResolver
	Review() ReviewResolver
	Subscription() SubscriptionResolver
}

type CommentResolver interface {
	User(ctx context.Context, obj *domain.Comment) (*domain.User, error)
	Parent(ctx context.Context, obj *domain.Comment) (*domain.Comment, error)
	Replies(ctx context.Context, obj *domain.Comment, orderBy *domain.OrderBy, page *int, perPage *int) ([]*domain.Comment, error)
	LikedByMe(ctx context.Context, obj *domain.Comment) (bool, error)
}

type MutationResolver interface {
	CreateComment(ctx context.Context, input model.CommentInput) (*domain.Comment, error)
	UpdateComment(ctx context.Context, commentID int64, input model.CommentUpdate) (*domain.Comment, error)
	DeleteComment(ctx context.Context, commentID int64) (*domain.Comment, error)
	LikeComment(ctx context.Context, commentID int64) (*domain.Comment, error)
	UnlikeComment(ctx context.Context, commentID int64) (*domain.Comment, error)
}

type QueryResolver interface {
	GetCommentByID(ctx context.Context, commentID int64) (*domain.Comment, error)
	GetCommentsForReview(ctx context.Context, reviewID int64, orderBy *domain.OrderBy, depth *int, page *int, perPage *int) ([]*domain.Comment, error)
	GetRepliesForComment(ctx context.Context, commentID int64, orderBy *domain.OrderBy, depth *int, page *int, perPage *int) ([]*domain.Comment, error)
	Review(ctx context.Context, id int64) (*domain.Review, error)
}

type ReviewResolver interface {
	User(ctx context.Context, obj *domain.Review) (*domain.User, error)
	Comments(ctx context.Context, obj *domain.Review, orderBy *domain.OrderBy, depth *int, page *int, perPage *int) ([]*domain.Comment, error)
}

type SubscriptionResolver interface {
	CommentAdded(ctx context.Context, reviewID int64) (<-chan *domain.Comment, error)
}

// NewExecutableSchema binds the resolvers to the SDL in schema.graphqls.
func NewExecutableSchema(cfg Config) graphql.ExecutableSchema {
	e := &executableSchema{schema: parsedSchema, resolvers: cfg.Resolvers}
	e.objects = map[string]fieldMap{
		"Query":    e.queryFields(),
		"Mutation": e.mutationFields(),
		"Comment":  e.commentFields(),
		"Review":   e.reviewFields(),
		"User":     userFields(),
	}
	for name, fields := range introspectionFields() {
		e.objects[name] = fields
	}
	e.subscriptions = e.subscriptionFields()
	return e
}

type executableSchema struct {
	schema        *ast.Schema
	resolvers     ResolverRoot
	objects       map[string]fieldMap
	subscriptions map[string]subscribeFunc
}

func (e *executableSchema) Schema() *ast.Schema {
	return e.schema
}

func (e *executableSchema) Complexity(typeName, field string, childComplexity int, rawArgs map[string]interface{}) (int, bool) {
	return 0, false
}

// resolveFunc resolves one field of obj. Arguments already carry the schema
// defaults and variable values.
type resolveFunc func(ctx context.Context, obj any, args map[string]any) (any, error)

type fieldMap map[string]resolveFunc

type subscribeFunc func(ctx context.Context, args map[string]any) (<-chan *domain.Comment, error)

// === Query ===

func (e *executableSchema) queryFields() fieldMap {
	return fieldMap{
		"getCommentById": func(ctx context.Context, _ any, args map[string]any) (any, error) {
			commentID, err := argID(args, "commentId")
			if err != nil {
				return nil, err
			}
			return e.resolvers.Query().GetCommentByID(ctx, commentID)
		},
		"getCommentsForReview": func(ctx context.Context, _ any, args map[string]any) (any, error) {
			reviewID, err := argID(args, "reviewId")
			if err != nil {
				return nil, err
			}
			l, err := listArgs(args, true)
			if err != nil {
				return nil, err
			}
			return e.resolvers.Query().GetCommentsForReview(ctx, reviewID, l.orderBy, l.depth, l.page, l.perPage)
		},
		"getRepliesForComment": func(ctx context.Context, _ any, args map[string]any) (any, error) {
			commentID, err := argID(args, "commentId")
			if err != nil {
				return nil, err
			}
			l, err := listArgs(args, true)
			if err != nil {
				return nil, err
			}
			return e.resolvers.Query().GetRepliesForComment(ctx, commentID, l.orderBy, l.depth, l.page, l.perPage)
		},
		"review": func(ctx context.Context, _ any, args map[string]any) (any, error) {
			id, err := argID(args, "id")
			if err != nil {
				return nil, err
			}
			return e.resolvers.Query().Review(ctx, id)
		},
		"__schema": func(ctx context.Context, _ any, _ map[string]any) (any, error) {
			return e.introspectSchema(ctx)
		},
		"__type": func(ctx context.Context, _ any, args map[string]any) (any, error) {
			name, err := argString(args, "name")
			if err != nil {
				return nil, err
			}
			return e.introspectType(ctx, name)
		},
	}
}

// === Mutation ===

func (e *executableSchema) mutationFields() fieldMap {
	byID := func(call func(MutationResolver, context.Context, int64) (*domain.Comment, error)) resolveFunc {
		return func(ctx context.Context, _ any, args map[string]any) (any, error) {
			commentID, err := argID(args, "commentId")
			if err != nil {
				return nil, err
			}
			return call(e.resolvers.Mutation(), ctx, commentID)
		}
	}

	return fieldMap{
		"createComment": func(ctx context.Context, _ any, args map[string]any) (any, error) {
			input, err := argCommentInput(args, "input")
			if err != nil {
				return nil, err
			}
			return e.resolvers.Mutation().CreateComment(ctx, input)
		},
		"updateComment": func(ctx context.Context, _ any, args map[string]any) (any, error) {
			commentID, err := argID(args, "commentId")
			if err != nil {
				return nil, err
			}
			input, err := argCommentUpdate(args, "input")
			if err != nil {
				return nil, err
			}
			return e.resolvers.Mutation().UpdateComment(ctx, commentID, input)
		},
		"deleteComment": byID(MutationResolver.DeleteComment),
		"likeComment":   byID(MutationResolver.LikeComment),
		"unlikeComment": byID(MutationResolver.UnlikeComment),
	}
}

// === Subscription ===

func (e *executableSchema) subscriptionFields() map[string]subscribeFunc {
	return map[string]subscribeFunc{
		"commentAdded": func(ctx context.Context, args map[string]any) (<-chan *domain.Comment, error) {
			reviewID, err := argID(args, "reviewId")
			if err != nil {
				return nil, err
			}
			return e.resolvers.Subscription().CommentAdded(ctx, reviewID)
		},
	}
}

// === Comment ===

func (e *executableSchema) commentFields() fieldMap {
	field := func(get func(c *domain.Comment) any) resolveFunc {
		return func(_ context.Context, obj any, _ map[string]any) (any, error) {
			return get(obj.(*domain.Comment)), nil
		}
	}

	return fieldMap{
		"id":         field(func(c *domain.Comment) any { return c.ID }),
		"content":    field(func(c *domain.Comment) any { return c.Content }),
		"path":       field(func(c *domain.Comment) any { return c.Path }),
		"depth":      field(func(c *domain.Comment) any { return c.Depth }),
		"createdAt":  field(func(c *domain.Comment) any { return c.CreatedAt }),
		"updatedAt":  field(func(c *domain.Comment) any { return c.UpdatedAt }),
		"likesCount": field(func(c *domain.Comment) any { return c.LikesCount }),
		"isDeleted":  field(func(c *domain.Comment) any { return c.IsDeleted }),
		"isEdited":   field(func(c *domain.Comment) any { return c.IsEdited() }),
		"reviewId":   field(func(c *domain.Comment) any { return c.ReviewID }),
		"userId":     field(func(c *domain.Comment) any { return c.UserID }),
		"parentId":   field(func(c *domain.Comment) any { return c.ParentID }),
		"user": func(ctx context.Context, obj any, _ map[string]any) (any, error) {
			return e.resolvers.Comment().User(ctx, obj.(*domain.Comment))
		},
		"parent": func(ctx context.Context, obj any, _ map[string]any) (any, error) {
			return e.resolvers.Comment().Parent(ctx, obj.(*domain.Comment))
		},
		"replies": func(ctx context.Context, obj any, args map[string]any) (any, error) {
			l, err := listArgs(args, false)
			if err != nil {
				return nil, err
			}
			return e.resolvers.Comment().Replies(ctx, obj.(*domain.Comment), l.orderBy, l.page, l.perPage)
		},
		"likedByMe": func(ctx context.Context, obj any, _ map[string]any) (any, error) {
			return e.resolvers.Comment().LikedByMe(ctx, obj.(*domain.Comment))
		},
	}
}

// === Review ===

func (e *executableSchema) reviewFields() fieldMap {
	field := func(get func(r *domain.Review) any) resolveFunc {
		return func(_ context.Context, obj any, _ map[string]any) (any, error) {
			return get(obj.(*domain.Review)), nil
		}
	}

	return fieldMap{
		"id":         field(func(r *domain.Review) any { return r.ID }),
		"bookId":     field(func(r *domain.Review) any { return r.BookID }),
		"userId":     field(func(r *domain.Review) any { return r.UserID }),
		"rating":     field(func(r *domain.Review) any { return r.Rating }),
		"content":    field(func(r *domain.Review) any { return r.Content }),
		"likesCount": field(func(r *domain.Review) any { return r.LikesCount }),
		"createdAt":  field(func(r *domain.Review) any { return r.CreatedAt }),
		"updatedAt":  field(func(r *domain.Review) any { return r.UpdatedAt }),
		"user": func(ctx context.Context, obj any, _ map[string]any) (any, error) {
			return e.resolvers.Review().User(ctx, obj.(*domain.Review))
		},
		"comments": func(ctx context.Context, obj any, args map[string]any) (any, error) {
			l, err := listArgs(args, true)
			if err != nil {
				return nil, err
			}
			return e.resolvers.Review().Comments(ctx, obj.(*domain.Review), l.orderBy, l.depth, l.page, l.perPage)
		},
	}
}

// === User ===

func userFields() fieldMap {
	return fieldMap{
		"id": func(_ context.Context, obj any, _ map[string]any) (any, error) {
			return obj.(*domain.User).ID, nil
		},
		"username": func(_ context.Context, obj any, _ map[string]any) (any, error) {
			return obj.(*domain.User).Username, nil
		},
	}
}

// === Leaf values ===

// marshalScalar writes a resolved leaf value. Enums are written by name.
func marshalScalar(typeName string, v any) (graphql.Marshaler, error) {
	switch v := v.(type) {
	case int64:
		if typeName == "ID" {
			return model.MarshalID(v), nil
		}
		return graphql.MarshalInt64(v), nil
	case *int64:
		return marshalScalar(typeName, *v)
	case int:
		return graphql.MarshalInt(v), nil
	case string:
		if typeName == "ID" {
			return graphql.MarshalID(v), nil
		}
		return graphql.MarshalString(v), nil
	case *string:
		return marshalScalar(typeName, *v)
	case bool:
		return graphql.MarshalBoolean(v), nil
	case time.Time:
		return graphql.MarshalTime(v), nil
	case domain.OrderBy:
		return graphql.MarshalString(string(v)), nil
	default:
		return nil, fmt.Errorf("cannot marshal %T as %s", v, typeName)
	}
}
