package graph

import (
	"bytes"
	"context"
	"io"
	"reflect"
	"sync"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
)

type executionContext struct {
	*graphql.OperationContext
	*executableSchema
}

func (e *executableSchema) Exec(ctx context.Context) graphql.ResponseHandler {
	rc := graphql.GetOperationContext(ctx)
	ec := executionContext{rc, e}

	switch rc.Operation.Operation {
	case ast.Query, ast.Mutation:
		root := e.schema.Query
		if rc.Operation.Operation == ast.Mutation {
			root = e.schema.Mutation
		}
		first := true
		return func(ctx context.Context) *graphql.Response {
			if !first {
				return nil
			}
			first = false

			data := ec.execRoot(ctx, root, rc.Operation.SelectionSet)
			var buf bytes.Buffer
			data.MarshalGQL(&buf)
			return &graphql.Response{Data: buf.Bytes()}
		}

	case ast.Subscription:
		next := ec.execSubscription(ctx, rc.Operation.SelectionSet)
		var buf bytes.Buffer
		return func(ctx context.Context) *graphql.Response {
			buf.Reset()
			data := next(ctx)
			if data == nil {
				return nil
			}
			data.MarshalGQL(&buf)
			return &graphql.Response{Data: buf.Bytes()}
		}

	default:
		return graphql.OneShot(graphql.ErrorResponse(ctx, "unsupported GraphQL operation"))
	}
}

// execRoot resolves the top-level fields one after another, which gives
// mutations their required serial order.
func (ec *executionContext) execRoot(ctx context.Context, root *ast.Definition, sel ast.SelectionSet) graphql.Marshaler {
	if root == nil {
		graphql.AddErrorf(ctx, "schema does not support this operation")
		return graphql.Null
	}
	out, ok := ec.execObject(ctx, root.Name, sel, nil)
	if !ok {
		return graphql.Null
	}
	return out
}

// execObject resolves sel against obj. It reports false when a non-null
// field ended up null, in which case the object itself becomes null.
func (ec *executionContext) execObject(ctx context.Context, typeName string, sel ast.SelectionSet, obj any) (graphql.Marshaler, bool) {
	fields := graphql.CollectFields(ec.OperationContext, sel, []string{typeName})
	out := graphql.NewFieldSet(fields)

	for i, field := range fields {
		if field.Name == "__typename" {
			out.Values[i] = graphql.MarshalString(typeName)
			continue
		}
		v, ok := ec.execField(ctx, typeName, field, obj)
		if !ok {
			return graphql.Null, false
		}
		out.Values[i] = v
	}
	return out, true
}

func (ec *executionContext) execField(ctx context.Context, typeName string, field graphql.CollectedField, obj any) (ret graphql.Marshaler, ok bool) {
	args := field.ArgumentMap(ec.Variables)
	fc := &graphql.FieldContext{
		Parent:     graphql.GetFieldContext(ctx),
		Object:     typeName,
		Field:      field,
		Args:       args,
		IsMethod:   true,
		IsResolver: true,
	}
	ctx = graphql.WithFieldContext(ctx, fc)

	defer func() {
		if r := recover(); r != nil {
			ec.Error(ctx, ec.Recover(ctx, r))
			ret, ok = graphql.Null, !field.Definition.Type.NonNull
		}
	}()

	var res any
	if resolve := ec.objects[typeName][field.Name]; resolve != nil {
		next := func(rctx context.Context) (any, error) {
			return resolve(rctx, obj, args)
		}
		var err error
		if ec.ResolverMiddleware != nil {
			res, err = ec.ResolverMiddleware(ctx, next)
		} else {
			res, err = next(ctx)
		}
		if err != nil {
			ec.Error(ctx, err)
			res = nil
		}
	}
	fc.Result = res

	return ec.complete(ctx, field.Definition.Type, field, res)
}

// complete turns a resolved value into its response shape following the
// field type.
func (ec *executionContext) complete(ctx context.Context, typ *ast.Type, field graphql.CollectedField, v any) (graphql.Marshaler, bool) {
	if isNil(v) {
		if typ.NonNull {
			if !graphql.HasFieldError(ctx, graphql.GetFieldContext(ctx)) {
				graphql.AddErrorf(ctx, "must not be null")
			}
			return graphql.Null, false
		}
		return graphql.Null, true
	}

	if typ.Elem != nil {
		return ec.completeList(ctx, typ, field, v)
	}

	def := ec.schema.Types[typ.NamedType]
	if def == nil {
		graphql.AddErrorf(ctx, "unknown type %s", typ.NamedType)
		return graphql.Null, !typ.NonNull
	}

	switch def.Kind {
	case ast.Scalar, ast.Enum:
		m, err := marshalScalar(def.Name, v)
		if err != nil {
			ec.Error(ctx, err)
			return graphql.Null, !typ.NonNull
		}
		return m, true
	case ast.Object:
		m, ok := ec.execObject(ctx, def.Name, field.Selections, v)
		if !ok {
			return graphql.Null, !typ.NonNull
		}
		return m, true
	default:
		graphql.AddErrorf(ctx, "cannot complete %s values", def.Kind)
		return graphql.Null, !typ.NonNull
	}
}

// completeList completes every element concurrently so their loader calls
// land in the same batch.
func (ec *executionContext) completeList(ctx context.Context, typ *ast.Type, field graphql.CollectedField, v any) (graphql.Marshaler, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		graphql.AddErrorf(ctx, "expected a list, got %T", v)
		return graphql.Null, !typ.NonNull
	}

	n := rv.Len()
	out := make(graphql.Array, n)
	valid := make([]bool, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		item := element(rv.Index(i))
		fc := &graphql.FieldContext{Index: &i, Result: item}
		ictx := graphql.WithFieldContext(ctx, fc)

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					ec.Error(ictx, ec.Recover(ictx, r))
					out[i], valid[i] = graphql.Null, false
				}
			}()
			out[i], valid[i] = ec.complete(ictx, typ.Elem, field, item)
		}()
	}
	wg.Wait()

	for _, ok := range valid {
		if !ok {
			return graphql.Null, !typ.NonNull
		}
	}
	return out, true
}

// execSubscription starts the single subscribed stream and returns a reader
// of its next payload.
func (ec *executionContext) execSubscription(ctx context.Context, sel ast.SelectionSet) func(ctx context.Context) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, []string{"Subscription"})
	if len(fields) != 1 {
		ec.Errorf(ctx, "must subscribe to exactly one stream")
		return func(context.Context) graphql.Marshaler { return nil }
	}
	field := fields[0]

	subscribe := ec.subscriptions[field.Name]
	if subscribe == nil {
		ec.Errorf(ctx, "unknown subscription %s", field.Name)
		return func(context.Context) graphql.Marshaler { return nil }
	}

	args := field.ArgumentMap(ec.Variables)
	fc := &graphql.FieldContext{
		Object:     "Subscription",
		Field:      field,
		Args:       args,
		IsMethod:   true,
		IsResolver: true,
	}
	ctx = graphql.WithFieldContext(ctx, fc)

	ch, err := subscribe(ctx, args)
	if err != nil {
		ec.Error(ctx, err)
		return func(context.Context) graphql.Marshaler { return nil }
	}

	return func(rctx context.Context) graphql.Marshaler {
		select {
		case c, ok := <-ch:
			if !ok {
				return nil
			}
			rctx = graphql.WithFieldContext(rctx, &graphql.FieldContext{
				Object: "Subscription",
				Field:  field,
				Args:   args,
				Result: c,
			})
			m, _ := ec.complete(rctx, field.Definition.Type, field, c)
			return graphql.WriterFunc(func(w io.Writer) {
				w.Write([]byte{'{'})
				graphql.MarshalString(field.Alias).MarshalGQL(w)
				w.Write([]byte{':'})
				m.MarshalGQL(w)
				w.Write([]byte{'}'})
			})
		case <-rctx.Done():
			return nil
		}
	}
}

// isNil reports whether v resolves to null. A nil slice is an empty list.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

// element returns a list item; addressable struct items are handed out by
// pointer so their pointer-receiver methods are reachable.
func element(v reflect.Value) any {
	if v.Kind() == reflect.Struct && v.CanAddr() {
		return v.Addr().Interface()
	}
	return v.Interface()
}
