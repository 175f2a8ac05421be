package graph

import (
	"context"
	"errors"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/introspection"
)

var errIntrospectionDisabled = errors.New("introspection disabled")

func (e *executableSchema) introspectSchema(ctx context.Context) (*introspection.Schema, error) {
	if graphql.GetOperationContext(ctx).DisableIntrospection {
		return nil, errIntrospectionDisabled
	}
	return introspection.WrapSchema(e.schema), nil
}

func (e *executableSchema) introspectType(ctx context.Context, name string) (*introspection.Type, error) {
	if graphql.GetOperationContext(ctx).DisableIntrospection {
		return nil, errIntrospectionDisabled
	}
	def := e.schema.Types[name]
	if def == nil {
		return nil, nil
	}
	return introspection.WrapTypeFromDef(e.schema, def), nil
}

// introspectionFields resolves the __ types of the prelude over gqlgen's
// introspection wrappers.
func introspectionFields() map[string]fieldMap {
	return map[string]fieldMap{
		"__Schema": {
			"description":      schemaField(func(s *introspection.Schema, _ map[string]any) any { return s.Description() }),
			"types":            schemaField(func(s *introspection.Schema, _ map[string]any) any { return s.Types() }),
			"queryType":        schemaField(func(s *introspection.Schema, _ map[string]any) any { return s.QueryType() }),
			"mutationType":     schemaField(func(s *introspection.Schema, _ map[string]any) any { return s.MutationType() }),
			"subscriptionType": schemaField(func(s *introspection.Schema, _ map[string]any) any { return s.SubscriptionType() }),
			"directives":       schemaField(func(s *introspection.Schema, _ map[string]any) any { return s.Directives() }),
		},
		"__Type": {
			"kind":           typeField(func(t *introspection.Type, _ map[string]any) any { return t.Kind() }),
			"name":           typeField(func(t *introspection.Type, _ map[string]any) any { return t.Name() }),
			"description":    typeField(func(t *introspection.Type, _ map[string]any) any { return t.Description() }),
			"specifiedByURL": typeField(func(t *introspection.Type, _ map[string]any) any { return t.SpecifiedByURL() }),
			"fields": typeField(func(t *introspection.Type, args map[string]any) any {
				return t.Fields(includeDeprecated(args))
			}),
			"interfaces":    typeField(func(t *introspection.Type, _ map[string]any) any { return t.Interfaces() }),
			"possibleTypes": typeField(func(t *introspection.Type, _ map[string]any) any { return t.PossibleTypes() }),
			"enumValues": typeField(func(t *introspection.Type, args map[string]any) any {
				return t.EnumValues(includeDeprecated(args))
			}),
			"inputFields": typeField(func(t *introspection.Type, _ map[string]any) any { return t.InputFields() }),
			"ofType":      typeField(func(t *introspection.Type, _ map[string]any) any { return t.OfType() }),
		},
		"__Field": {
			"name":              fieldField(func(f *introspection.Field) any { return f.Name }),
			"description":       fieldField(func(f *introspection.Field) any { return f.Description() }),
			"args":              fieldField(func(f *introspection.Field) any { return f.Args }),
			"type":              fieldField(func(f *introspection.Field) any { return f.Type }),
			"isDeprecated":      fieldField(func(f *introspection.Field) any { return f.IsDeprecated() }),
			"deprecationReason": fieldField(func(f *introspection.Field) any { return f.DeprecationReason() }),
		},
		"__InputValue": {
			"name":         inputValueField(func(v *introspection.InputValue) any { return v.Name }),
			"description":  inputValueField(func(v *introspection.InputValue) any { return v.Description() }),
			"type":         inputValueField(func(v *introspection.InputValue) any { return v.Type }),
			"defaultValue": inputValueField(func(v *introspection.InputValue) any { return v.DefaultValue }),
		},
		"__EnumValue": {
			"name":              enumValueField(func(v *introspection.EnumValue) any { return v.Name }),
			"description":       enumValueField(func(v *introspection.EnumValue) any { return v.Description() }),
			"isDeprecated":      enumValueField(func(v *introspection.EnumValue) any { return v.IsDeprecated() }),
			"deprecationReason": enumValueField(func(v *introspection.EnumValue) any { return v.DeprecationReason() }),
		},
		"__Directive": {
			"name":         directiveField(func(d *introspection.Directive) any { return d.Name }),
			"description":  directiveField(func(d *introspection.Directive) any { return d.Description() }),
			"locations":    directiveField(func(d *introspection.Directive) any { return d.Locations }),
			"args":         directiveField(func(d *introspection.Directive) any { return d.Args }),
			"isRepeatable": directiveField(func(d *introspection.Directive) any { return d.IsRepeatable }),
		},
	}
}

func includeDeprecated(args map[string]any) bool {
	b, _ := args["includeDeprecated"].(bool)
	return b
}

func schemaField(get func(*introspection.Schema, map[string]any) any) resolveFunc {
	return func(_ context.Context, obj any, args map[string]any) (any, error) {
		return get(obj.(*introspection.Schema), args), nil
	}
}

func typeField(get func(*introspection.Type, map[string]any) any) resolveFunc {
	return func(_ context.Context, obj any, args map[string]any) (any, error) {
		return get(obj.(*introspection.Type), args), nil
	}
}

func fieldField(get func(*introspection.Field) any) resolveFunc {
	return func(_ context.Context, obj any, _ map[string]any) (any, error) {
		return get(obj.(*introspection.Field)), nil
	}
}

func inputValueField(get func(*introspection.InputValue) any) resolveFunc {
	return func(_ context.Context, obj any, _ map[string]any) (any, error) {
		return get(obj.(*introspection.InputValue)), nil
	}
}

func enumValueField(get func(*introspection.EnumValue) any) resolveFunc {
	return func(_ context.Context, obj any, _ map[string]any) (any, error) {
		return get(obj.(*introspection.EnumValue)), nil
	}
}

func directiveField(get func(*introspection.Directive) any) resolveFunc {
	return func(_ context.Context, obj any, _ map[string]any) (any, error) {
		return get(obj.(*introspection.Directive)), nil
	}
}
