// Package events carries comment notifications out of the service after the
// mutating transaction has committed.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AbdullaK123/book-api/internal/domain"
)

// Type names a comment lifecycle event.
type Type string

const (
	CommentCreated Type = "comment.created"
	CommentUpdated Type = "comment.updated"
	CommentDeleted Type = "comment.deleted"
	CommentLiked   Type = "comment.liked"
	CommentUnliked Type = "comment.unliked"
)

// Event is the payload handed to notifiers.
type Event struct {
	EventID    string          `json:"event_id"`
	Type       Type            `json:"type"`
	CommentID  int64           `json:"comment_id"`
	ReviewID   int64           `json:"review_id"`
	UserID     int64           `json:"user_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Comment    *domain.Comment `json:"comment,omitempty"`
}

// New builds an event for comment c caused by actor.
func New(t Type, c *domain.Comment, actor int64, at time.Time) Event {
	cp := *c
	return Event{
		EventID:    uuid.NewString(),
		Type:       t,
		CommentID:  c.ID,
		ReviewID:   c.ReviewID,
		UserID:     actor,
		OccurredAt: at,
		Comment:    &cp,
	}
}

// Notifier receives committed events. Implementations must not block the
// caller for long; errors are logged by the caller and otherwise ignored.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Notify(context.Context, Event) error { return nil }

// Multi fans an event out to several notifiers and returns the first error.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
