package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/AbdullaK123/book-api/internal/domain"
	"github.com/AbdullaK123/book-api/internal/storage"
)

// newTestStore connects to TEST_DATABASE_URL and empties the tables.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	s, err := New(dsn, Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.db.Exec("TRUNCATE comment_likes, comments, reviews, users RESTART IDENTITY CASCADE").Error)
	require.NoError(t, s.db.Create(&domain.User{ID: 1, Username: "ada", Role: "user"}).Error)
	require.NoError(t, s.db.Create(&domain.User{ID: 2, Username: "grace", Role: "user"}).Error)
	require.NoError(t, s.db.Create(&domain.Review{ID: 10, BookID: 1, UserID: 1, Rating: 5}).Error)
	return s
}

func insertComment(t *testing.T, s *Store, c *domain.Comment) *domain.Comment {
	t.Helper()
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	err := s.WithinTx(context.Background(), func(tx storage.Tx) error {
		return tx.InsertComment(context.Background(), c)
	})
	require.NoError(t, err)
	return c
}

func TestStore_InsertAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	root := insertComment(t, s, &domain.Comment{Content: "root", Path: domain.RootPath, ReviewID: 10, UserID: 1})
	require.NotZero(t, root.ID)
	reply := insertComment(t, s, &domain.Comment{
		Content: "reply", Path: "root.1", Depth: 1, ReviewID: 10, UserID: 2, ParentID: &root.ID,
	})

	all, err := s.ListComments(ctx, storage.CommentFilter{ReviewID: &root.ReviewID},
		storage.ListArgs{OrderBy: domain.OrderOldest, Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, root.ID, all[0].ID)

	replies, err := s.ListComments(ctx, storage.CommentFilter{ParentID: &root.ID},
		storage.ListArgs{OrderBy: domain.OrderNewest, Limit: 10})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, reply.ID, replies[0].ID)

	empty, err := s.ListComments(ctx, storage.CommentFilter{ReviewID: &root.ReviewID},
		storage.ListArgs{OrderBy: domain.OrderNewest, Offset: 10, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_LikesAreUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := insertComment(t, s, &domain.Comment{Content: "root", Path: domain.RootPath, ReviewID: 10, UserID: 1})

	err := s.WithinTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.LockCommentByID(ctx, c.ID); err != nil {
			return err
		}
		if err := tx.InsertLike(ctx, &domain.CommentLike{CommentID: c.ID, UserID: 2, CreatedAt: time.Now()}); err != nil {
			return err
		}
		_, err := tx.AddLikes(ctx, c.ID, 1, time.Now())
		return err
	})
	require.NoError(t, err)

	err = s.WithinTx(ctx, func(tx storage.Tx) error {
		return tx.InsertLike(ctx, &domain.CommentLike{CommentID: c.ID, UserID: 2, CreatedAt: time.Now()})
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateLike)

	has, err := s.HasLike(ctx, c.ID, 2)
	require.NoError(t, err)
	assert.True(t, has)

	got, err := s.GetCommentByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikesCount)
}

func TestStore_RollbackAndNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetCommentByID(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	exists, err := s.ReviewExists(ctx, 10)
	require.NoError(t, err)
	assert.True(t, exists)

	boom := assert.AnError
	err = s.WithinTx(ctx, func(tx storage.Tx) error {
		c := &domain.Comment{Content: "gone", Path: domain.RootPath, ReviewID: 10, UserID: 1,
			CreatedAt: time.Now(), UpdatedAt: time.Now()}
		if err := tx.InsertComment(ctx, c); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	rid := int64(10)
	list, err := s.ListComments(ctx, storage.CommentFilter{ReviewID: &rid}, storage.ListArgs{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, list)
}
