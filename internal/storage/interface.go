package storage

import (
	"context"
	"errors"
	"time"

	"github.com/AbdullaK123/book-api/internal/domain"
)

// ErrRecordNotFound is returned by point lookups that match nothing.
var ErrRecordNotFound = errors.New("record not found")

// ErrDuplicateLike is returned by InsertLike when the (comment, user) pair
// already exists. Backends enforce it with a uniqueness constraint.
var ErrDuplicateLike = errors.New("duplicate comment like")

// ListArgs selects one page of an ordered listing.
type ListArgs struct {
	OrderBy domain.OrderBy
	Offset  int
	Limit   int
}

// CommentFilter narrows a listing. Exactly one of ReviewID or ParentID is
// expected to be set. Soft-deleted rows are always excluded.
type CommentFilter struct {
	ReviewID *int64
	ParentID *int64
}

// Reader is the read side shared by the store and open transactions.
type Reader interface {
	GetCommentByID(ctx context.Context, id int64) (*domain.Comment, error)
	ReviewExists(ctx context.Context, id int64) (bool, error)
	HasLike(ctx context.Context, commentID, userID int64) (bool, error)
}

// Tx is the unit of work a mutation runs in. Lock methods hold the row
// until the transaction ends.
type Tx interface {
	Reader

	LockCommentByID(ctx context.Context, id int64) (*domain.Comment, error)
	InsertComment(ctx context.Context, c *domain.Comment) error
	UpdateComment(ctx context.Context, c *domain.Comment) error
	InsertLike(ctx context.Context, like *domain.CommentLike) error
	DeleteLike(ctx context.Context, commentID, userID int64) (bool, error)
	AddLikes(ctx context.Context, commentID int64, delta int, at time.Time) (int, error)
}

// Storage is the comment store contract.
type Storage interface {
	Reader

	// WithinTx runs fn atomically. A non-nil error from fn rolls back every
	// write fn made.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	ListComments(ctx context.Context, filter CommentFilter, args ListArgs) ([]*domain.Comment, error)
	GetReviewByID(ctx context.Context, id int64) (*domain.Review, error)

	// Batch lookups for dataloaders.
	GetCommentsByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Comment, error)
	GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*domain.User, error)
}
