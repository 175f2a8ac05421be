package events

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/AbdullaK123/book-api/internal/domain"
)

// Observer feeds commentAdded subscriptions with comment.created events.
type Observer struct {
	mu sync.RWMutex
	//   map[reviewID] map[subscriberID] channel
	subs map[int64]map[string]chan *domain.Comment
}

// NewObserver returns an observer without subscribers.
func NewObserver() *Observer {
	return &Observer{
		subs: make(map[int64]map[string]chan *domain.Comment),
	}
}

// Subscribe registers a subscriber for reviewID. The channel is closed and
// the subscriber dropped once ctx is done.
func (o *Observer) Subscribe(ctx context.Context, reviewID int64) <-chan *domain.Comment {
	ch := make(chan *domain.Comment, 1)
	subID := uuid.NewString()

	o.mu.Lock()
	if o.subs[reviewID] == nil {
		o.subs[reviewID] = make(map[string]chan *domain.Comment)
	}
	o.subs[reviewID][subID] = ch
	o.mu.Unlock()

	go func() {
		<-ctx.Done()
		o.mu.Lock()
		if reviewSubs, ok := o.subs[reviewID]; ok {
			delete(reviewSubs, subID)
			if len(reviewSubs) == 0 {
				delete(o.subs, reviewID)
			}
		}
		close(ch)
		o.mu.Unlock()
	}()

	return ch
}

// Notify delivers created comments without blocking; a subscriber that is
// not keeping up misses the event.
func (o *Observer) Notify(_ context.Context, ev Event) error {
	if ev.Type != CommentCreated || ev.Comment == nil {
		return nil
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, ch := range o.subs[ev.ReviewID] {
		c := *ev.Comment
		select {
		case ch <- &c:
		default:
		}
	}
	return nil
}

// Subscribers returns the number of live subscribers for reviewID.
func (o *Observer) Subscribers(reviewID int64) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs[reviewID])
}
