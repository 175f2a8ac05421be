package model

import (
	"fmt"
	"strconv"

	"github.com/99designs/gqlgen/graphql"
)

// MarshalID renders a numeric row id as a GraphQL ID.
func MarshalID(id int64) graphql.Marshaler {
	return graphql.MarshalID(strconv.FormatInt(id, 10))
}

// UnmarshalID accepts string and numeric IDs from literals or variables.
func UnmarshalID(v interface{}) (int64, error) {
	if v == nil {
		return 0, fmt.Errorf("id is required")
	}
	s, err := graphql.UnmarshalID(v)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a numeric id", s)
	}
	return id, nil
}
