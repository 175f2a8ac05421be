package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/AbdullaK123/book-api/internal/domain"
	"github.com/AbdullaK123/book-api/internal/storage"
)

type contextKey string

const key = contextKey("dataloaders")

const defaultWait = time.Millisecond

// Loaders holds the per-request batch loaders.
type Loaders struct {
	UserByID    *dataloader.Loader
	CommentByID *dataloader.Loader
}

// NewLoaders creates loaders that collect keys for wait before hitting the
// store once.
func NewLoaders(store storage.Storage, wait time.Duration) *Loaders {
	return &Loaders{
		UserByID:    dataloader.NewBatchedLoader(batch(store.GetUsersByIDs), dataloader.WithWait(wait)),
		CommentByID: dataloader.NewBatchedLoader(batch(store.GetCommentsByIDs), dataloader.WithWait(wait)),
	}
}

// Middleware injects fresh loaders into every request context.
func Middleware(store storage.Storage, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithLoaders(r.Context(), NewLoaders(store, defaultWait))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithLoaders returns ctx carrying l.
func WithLoaders(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, key, l)
}

// For returns the loaders of the request, or nil outside of Middleware.
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(key).(*Loaders)
	return l
}

// User loads one user. A missing user yields nil without error.
func (l *Loaders) User(ctx context.Context, id int64) (*domain.User, error) {
	v, err := l.UserByID.Load(ctx, idKey(id))()
	if err != nil {
		return nil, err
	}
	u, _ := v.(*domain.User)
	return u, nil
}

// Comment loads one comment regardless of its deletion state. A missing
// comment yields nil without error.
func (l *Loaders) Comment(ctx context.Context, id int64) (*domain.Comment, error) {
	v, err := l.CommentByID.Load(ctx, idKey(id))()
	if err != nil {
		return nil, err
	}
	c, _ := v.(*domain.Comment)
	return c, nil
}

func idKey(id int64) dataloader.Key {
	return dataloader.StringKey(strconv.FormatInt(id, 10))
}

// batch adapts a store lookup keyed by id into a batch function. Results are
// returned in key order.
func batch[T any](fetch func(ctx context.Context, ids []int64) (map[int64]T, error)) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		ids := make([]int64, len(keys))
		for i, k := range keys {
			id, err := strconv.ParseInt(k.String(), 10, 64)
			if err != nil {
				return fill(results, fmt.Errorf("dataloader: bad key %q: %w", k.String(), err))
			}
			ids[i] = id
		}

		// One query for the whole batch.
		found, err := fetch(ctx, ids)
		if err != nil {
			return fill(results, err)
		}

		for i, id := range ids {
			if v, ok := found[id]; ok {
				results[i] = &dataloader.Result{Data: v}
			} else {
				results[i] = &dataloader.Result{}
			}
		}
		return results
	}
}

func fill(results []*dataloader.Result, err error) []*dataloader.Result {
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}
