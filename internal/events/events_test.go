package events

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AbdullaK123/book-api/internal/domain"
)

func sampleComment() *domain.Comment {
	return &domain.Comment{ID: 4, ReviewID: 10, UserID: 1, Content: "hi", Path: domain.RootPath}
}

func TestNew_CopiesComment(t *testing.T) {
	c := sampleComment()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	ev := New(CommentLiked, c, 7, at)
	c.Content = "changed"

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, CommentLiked, ev.Type)
	assert.Equal(t, int64(4), ev.CommentID)
	assert.Equal(t, int64(10), ev.ReviewID)
	assert.Equal(t, int64(7), ev.UserID)
	assert.Equal(t, at, ev.OccurredAt)
	assert.Equal(t, "hi", ev.Comment.Content)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "books.comments.created", Subject(CommentCreated))
	assert.Equal(t, "books.comments.unliked", Subject(CommentUnliked))
}

type failing struct{ err error }

func (f failing) Notify(context.Context, Event) error { return f.err }

type counting struct{ n int }

func (c *counting) Notify(context.Context, Event) error {
	c.n++
	return nil
}

func TestMulti_FansOutAndReportsFirstError(t *testing.T) {
	first, second := errors.New("first"), errors.New("second")
	c := &counting{}

	err := Multi{failing{first}, c, failing{second}, Noop{}}.Notify(context.Background(), New(CommentCreated, sampleComment(), 1, time.Now()))

	assert.ErrorIs(t, err, first)
	assert.Equal(t, 1, c.n)
}

func TestObserver_DeliversCreatedComments(t *testing.T) {
	o := NewObserver()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := o.Subscribe(ctx, 10)
	other := o.Subscribe(ctx, 11)
	assert.Equal(t, 1, o.Subscribers(10))

	require.NoError(t, o.Notify(ctx, New(CommentLiked, sampleComment(), 1, time.Now())))
	require.NoError(t, o.Notify(ctx, New(CommentCreated, sampleComment(), 1, time.Now())))

	select {
	case c := <-ch:
		assert.Equal(t, int64(4), c.ID)
	case <-time.After(time.Second):
		t.Fatal("no comment delivered")
	}

	select {
	case c := <-other:
		t.Fatalf("unexpected delivery for review 11: %+v", c)
	default:
	}
}

func TestObserver_DropsWhenSubscriberIsSlow(t *testing.T) {
	o := NewObserver()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := o.Subscribe(ctx, 10)

	for i := 0; i < 3; i++ {
		require.NoError(t, o.Notify(ctx, New(CommentCreated, sampleComment(), 1, time.Now())))
	}

	<-ch
	select {
	case <-ch:
		t.Fatal("buffer should hold one pending comment")
	default:
	}
}

func TestObserver_UnsubscribesOnCancel(t *testing.T) {
	o := NewObserver()
	ctx, cancel := context.WithCancel(context.Background())
	ch := o.Subscribe(ctx, 10)

	cancel()

	require.Eventually(t, func() bool { return o.Subscribers(10) == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-ch
	assert.False(t, open)
}

func TestPublisher_Integration(t *testing.T) {
	url := os.Getenv("TEST_NATS_URL")
	if url == "" {
		t.Skip("TEST_NATS_URL not set")
	}

	p, err := NewPublisher(url, "BOOKS_COMMENTS_TEST", zap.NewNop())
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Notify(context.Background(), New(CommentCreated, sampleComment(), 1, time.Now())))
}
