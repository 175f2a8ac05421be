package dataloader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdullaK123/book-api/internal/domain"
	"github.com/AbdullaK123/book-api/internal/storage"
	"github.com/AbdullaK123/book-api/internal/storage/inmemory"
)

// countingStore records every batch handed to the user lookup.
type countingStore struct {
	storage.Storage

	mu      sync.Mutex
	batches [][]int64
	err     error
}

func (s *countingStore) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*domain.User, error) {
	s.mu.Lock()
	s.batches = append(s.batches, append([]int64(nil), ids...))
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.Storage.GetUsersByIDs(ctx, ids)
}

func newCountingStore() *countingStore {
	mem := inmemory.New()
	mem.PutUser(domain.User{ID: 1, Username: "ada"})
	mem.PutUser(domain.User{ID: 2, Username: "grace"})
	return &countingStore{Storage: mem}
}

func TestLoaders_BatchesUsers(t *testing.T) {
	store := newCountingStore()
	l := NewLoaders(store, 20*time.Millisecond)
	ctx := context.Background()

	thunks := []func() (interface{}, error){
		l.UserByID.Load(ctx, idKey(1)),
		l.UserByID.Load(ctx, idKey(2)),
		l.UserByID.Load(ctx, idKey(99)),
	}
	for _, th := range thunks {
		_, err := th()
		require.NoError(t, err)
	}

	require.Len(t, store.batches, 1)
	assert.ElementsMatch(t, []int64{1, 2, 99}, store.batches[0])

	u, err := l.User(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "grace", u.Username)

	missing, err := l.User(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Cached per loader.
	assert.Len(t, store.batches, 1)
}

func TestLoaders_PropagatesErrors(t *testing.T) {
	store := newCountingStore()
	store.err = errors.New("db down")
	l := NewLoaders(store, time.Millisecond)

	_, err := l.User(context.Background(), 1)
	assert.EqualError(t, err, "db down")
}

func TestLoaders_Comment(t *testing.T) {
	mem := inmemory.New()
	ctx := context.Background()
	_, err := mem.CreateReview(ctx, &domain.Review{ID: 1, BookID: 1, UserID: 1, Rating: 5})
	require.NoError(t, err)

	var inserted domain.Comment
	err = mem.WithinTx(ctx, func(tx storage.Tx) error {
		inserted = domain.Comment{Content: "hello", Path: domain.RootPath, ReviewID: 1, UserID: 1}
		return tx.InsertComment(ctx, &inserted)
	})
	require.NoError(t, err)

	l := NewLoaders(mem, time.Millisecond)
	c, err := l.Comment(ctx, inserted.ID)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "hello", c.Content)
}

func TestMiddleware_InjectsFreshLoaders(t *testing.T) {
	var seen []*Loaders
	h := Middleware(inmemory.New(), http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = append(seen, For(r.Context()))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/query", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/query", nil))

	require.Len(t, seen, 2)
	assert.NotNil(t, seen[0])
	assert.NotSame(t, seen[0], seen[1])
	assert.Nil(t, For(context.Background()))
}
