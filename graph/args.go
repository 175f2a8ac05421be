package graph

import (
	"fmt"

	"github.com/99designs/gqlgen/graphql"

	"github.com/AbdullaK123/book-api/graph/model"
	"github.com/AbdullaK123/book-api/internal/domain"
)

// Argument values arrive either from literals (int64, string) or from JSON
// variables (json.Number, string), so everything goes through gqlgen's
// unmarshalers.

func argID(args map[string]any, name string) (int64, error) {
	id, err := model.UnmarshalID(args[name])
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, name, err)
	}
	return id, nil
}

func argString(args map[string]any, name string) (string, error) {
	s, err := graphql.UnmarshalString(args[name])
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, name, err)
	}
	return s, nil
}

func argIntPtr(args map[string]any, name string) (*int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	n, err := graphql.UnmarshalInt(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, name, err)
	}
	return &n, nil
}

func argOrderBy(args map[string]any, name string) (*domain.OrderBy, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	s, err := graphql.UnmarshalString(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, name, err)
	}
	order := domain.OrderBy(s)
	if !order.Valid() {
		return nil, fmt.Errorf("%w: %s: %q is not a valid CommentOrderBy", domain.ErrInvalidInput, name, s)
	}
	return &order, nil
}

type listArguments struct {
	orderBy *domain.OrderBy
	depth   *int
	page    *int
	perPage *int
}

func listArgs(args map[string]any, withDepth bool) (listArguments, error) {
	var (
		l   listArguments
		err error
	)
	if l.orderBy, err = argOrderBy(args, "orderBy"); err != nil {
		return l, err
	}
	if withDepth {
		if l.depth, err = argIntPtr(args, "depth"); err != nil {
			return l, err
		}
	}
	if l.page, err = argIntPtr(args, "page"); err != nil {
		return l, err
	}
	if l.perPage, err = argIntPtr(args, "perPage"); err != nil {
		return l, err
	}
	return l, nil
}

func argObject(args map[string]any, name string) (map[string]any, error) {
	m, ok := args[name].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be an object", domain.ErrInvalidInput, name)
	}
	return m, nil
}

func argCommentInput(args map[string]any, name string) (model.CommentInput, error) {
	var input model.CommentInput
	obj, err := argObject(args, name)
	if err != nil {
		return input, err
	}

	if input.Content, err = argString(obj, "content"); err != nil {
		return input, err
	}
	if input.ReviewID, err = argID(obj, "reviewId"); err != nil {
		return input, err
	}
	if v, ok := obj["parentId"]; ok && v != nil {
		parentID, err := argID(obj, "parentId")
		if err != nil {
			return input, err
		}
		input.ParentID = &parentID
	}
	return input, nil
}

func argCommentUpdate(args map[string]any, name string) (model.CommentUpdate, error) {
	var input model.CommentUpdate
	obj, err := argObject(args, name)
	if err != nil {
		return input, err
	}
	input.Content, err = argString(obj, "content")
	return input, err
}
