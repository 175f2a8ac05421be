// Package comments implements the threaded comment tree of a review: path
// and depth assignment, ownership checks, soft deletion, likes and the
// paginated listings.
package comments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/AbdullaK123/book-api/internal/domain"
	"github.com/AbdullaK123/book-api/internal/events"
	"github.com/AbdullaK123/book-api/internal/storage"
)

const (
	DefaultPerPage   = 20
	MaxPerPage       = 100
	MaxContentLength = 2000
)

// Service runs comment mutations in one transaction each and notifies
// collaborators after commit.
type Service struct {
	store    storage.Storage
	notifier events.Notifier
	log      *zap.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the post-commit notifier.
func WithNotifier(n events.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the logger used for fatal errors and failed notifications.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service over store.
func New(store storage.Storage, opts ...Option) *Service {
	s := &Service{
		store:    store,
		notifier: events.Noop{},
		log:      zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput is the payload of CreateComment.
type CreateInput struct {
	Content  string
	ReviewID int64
	ParentID *int64
}

// ListOptions selects one page of a listing. Depth is accepted and ignored:
// listings are never filtered by nesting level.
type ListOptions struct {
	OrderBy domain.OrderBy
	Depth   *int
	Page    int
	PerPage int
}

// ChildPath returns the materialized path of a direct reply to parent.
func ChildPath(parent *domain.Comment) string {
	return parent.Path + "." + strconv.FormatInt(parent.ID, 10)
}

// === Tree Operations ===

// CreateComment inserts a root comment (no ParentID, or ParentID 0) or a
// reply. The review id is taken from the input as is, also for replies.
func (s *Service) CreateComment(ctx context.Context, in CreateInput, userID int64) (*domain.Comment, error) {
	if in.ParentID != nil && *in.ParentID == 0 {
		in.ParentID = nil
	}

	content, err := validateContent(in.Content)
	if err != nil {
		return nil, err
	}

	var created domain.Comment
	err = s.store.WithinTx(ctx, func(tx storage.Tx) error {
		exists, err := tx.ReviewExists(ctx, in.ReviewID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: review %d", domain.ErrNotFound, in.ReviewID)
		}

		path, depth := domain.RootPath, 0
		if in.ParentID != nil {
			// Soft-deleted parents still accept replies.
			parent, err := tx.GetCommentByID(ctx, *in.ParentID)
			if errors.Is(err, storage.ErrRecordNotFound) {
				return fmt.Errorf("%w: parent comment %d", domain.ErrNotFound, *in.ParentID)
			}
			if err != nil {
				return err
			}
			if parent.Depth >= domain.MaxDepth {
				return fmt.Errorf("%w: parent comment %d is at depth %d", domain.ErrDepthExceeded, parent.ID, parent.Depth)
			}
			path, depth = ChildPath(parent), parent.Depth+1
		}

		now := s.now()
		created = domain.Comment{
			Content:   content,
			Path:      path,
			Depth:     depth,
			ReviewID:  in.ReviewID,
			UserID:    userID,
			ParentID:  in.ParentID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.InsertComment(ctx, &created)
	})
	if err != nil {
		return nil, s.fail("create comment", err)
	}

	s.notify(ctx, events.New(events.CommentCreated, &created, userID, created.CreatedAt))
	return &created, nil
}

// UpdateComment replaces the content of a visible comment owned by userID.
func (s *Service) UpdateComment(ctx context.Context, commentID, userID int64, content string) (*domain.Comment, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}

	var updated *domain.Comment
	err = s.store.WithinTx(ctx, func(tx storage.Tx) error {
		c, err := lockVisible(ctx, tx, commentID)
		if err != nil {
			return err
		}
		if c.UserID != userID {
			return fmt.Errorf("%w: comment %d belongs to another user", domain.ErrForbidden, commentID)
		}

		c.Content = content
		c.UpdatedAt = s.now()
		if err := tx.UpdateComment(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, s.fail("update comment", err)
	}

	s.notify(ctx, events.New(events.CommentUpdated, updated, userID, updated.UpdatedAt))
	return updated, nil
}

// DeleteComment soft-deletes a visible comment. The author and admins may
// do so. Replies are left untouched.
func (s *Service) DeleteComment(ctx context.Context, commentID, userID int64, role string) (*domain.Comment, error) {
	actor := domain.Identity{UserID: userID, Role: role}

	var deleted *domain.Comment
	err := s.store.WithinTx(ctx, func(tx storage.Tx) error {
		c, err := lockVisible(ctx, tx, commentID)
		if err != nil {
			return err
		}
		if c.UserID != actor.UserID && !actor.IsAdmin() {
			return fmt.Errorf("%w: comment %d belongs to another user", domain.ErrForbidden, commentID)
		}

		c.IsDeleted = true
		c.UpdatedAt = s.now()
		if err := tx.UpdateComment(ctx, c); err != nil {
			return err
		}
		deleted = c
		return nil
	})
	if err != nil {
		return nil, s.fail("delete comment", err)
	}

	s.notify(ctx, events.New(events.CommentDeleted, deleted, userID, deleted.UpdatedAt))
	return deleted, nil
}

// LikeComment adds userID to the comment's likes.
func (s *Service) LikeComment(ctx context.Context, commentID, userID int64) (*domain.Comment, error) {
	var liked *domain.Comment
	err := s.store.WithinTx(ctx, func(tx storage.Tx) error {
		c, err := lockVisible(ctx, tx, commentID)
		if err != nil {
			return err
		}

		has, err := tx.HasLike(ctx, commentID, userID)
		if err != nil {
			return err
		}
		alreadyLiked := fmt.Errorf("%w: user %d already liked comment %d", domain.ErrAlreadyDone, userID, commentID)
		if has {
			return alreadyLiked
		}

		now := s.now()
		err = tx.InsertLike(ctx, &domain.CommentLike{CommentID: commentID, UserID: userID, CreatedAt: now})
		if errors.Is(err, storage.ErrDuplicateLike) {
			return alreadyLiked
		}
		if err != nil {
			return err
		}

		count, err := tx.AddLikes(ctx, commentID, 1, now)
		if err != nil {
			return err
		}
		c.LikesCount, c.UpdatedAt = count, now
		liked = c
		return nil
	})
	if err != nil {
		return nil, s.fail("like comment", err)
	}

	s.notify(ctx, events.New(events.CommentLiked, liked, userID, liked.UpdatedAt))
	return liked, nil
}

// UnlikeComment removes userID from the comment's likes.
func (s *Service) UnlikeComment(ctx context.Context, commentID, userID int64) (*domain.Comment, error) {
	var unliked *domain.Comment
	err := s.store.WithinTx(ctx, func(tx storage.Tx) error {
		c, err := lockVisible(ctx, tx, commentID)
		if err != nil {
			return err
		}

		removed, err := tx.DeleteLike(ctx, commentID, userID)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%w: user %d has not liked comment %d", domain.ErrNotDone, userID, commentID)
		}

		now := s.now()
		count, err := tx.AddLikes(ctx, commentID, -1, now)
		if err != nil {
			return err
		}
		c.LikesCount, c.UpdatedAt = count, now
		unliked = c
		return nil
	})
	if err != nil {
		return nil, s.fail("unlike comment", err)
	}

	s.notify(ctx, events.New(events.CommentUnliked, unliked, userID, unliked.UpdatedAt))
	return unliked, nil
}

// === Queries ===

// GetCommentByID returns a comment unless it is missing or soft-deleted.
func (s *Service) GetCommentByID(ctx context.Context, commentID int64) (*domain.Comment, error) {
	c, err := s.store.GetCommentByID(ctx, commentID)
	if errors.Is(err, storage.ErrRecordNotFound) || (err == nil && c.IsDeleted) {
		return nil, fmt.Errorf("%w: comment %d", domain.ErrNotFound, commentID)
	}
	if err != nil {
		return nil, s.fail("get comment", err)
	}
	return c, nil
}

// GetCommentsForReview lists the visible comments of a review at every
// depth.
func (s *Service) GetCommentsForReview(ctx context.Context, reviewID int64, opts ListOptions) ([]*domain.Comment, error) {
	args, err := listArgs(opts)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, storage.CommentFilter{ReviewID: &reviewID}, args)
	if err != nil {
		return nil, s.fail("list review comments", err)
	}
	return comments, nil
}

// GetRepliesForComment lists the visible direct replies of a comment.
func (s *Service) GetRepliesForComment(ctx context.Context, commentID int64, opts ListOptions) ([]*domain.Comment, error) {
	args, err := listArgs(opts)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, storage.CommentFilter{ParentID: &commentID}, args)
	if err != nil {
		return nil, s.fail("list replies", err)
	}
	return comments, nil
}

// HasLiked reports whether userID is in the comment's likes.
func (s *Service) HasLiked(ctx context.Context, commentID, userID int64) (bool, error) {
	ok, err := s.store.HasLike(ctx, commentID, userID)
	if err != nil {
		return false, s.fail("has liked", err)
	}
	return ok, nil
}

// GetReviewByID returns the review comments are attached to.
func (s *Service) GetReviewByID(ctx context.Context, reviewID int64) (*domain.Review, error) {
	r, err := s.store.GetReviewByID(ctx, reviewID)
	if errors.Is(err, storage.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: review %d", domain.ErrNotFound, reviewID)
	}
	if err != nil {
		return nil, s.fail("get review", err)
	}
	return r, nil
}

// GetUserByID returns an author, or nil when the account is unknown here.
func (s *Service) GetUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	users, err := s.store.GetUsersByIDs(ctx, []int64{userID})
	if err != nil {
		return nil, s.fail("get user", err)
	}
	return users[userID], nil
}

// === helpers ===

func lockVisible(ctx context.Context, tx storage.Tx, commentID int64) (*domain.Comment, error) {
	c, err := tx.LockCommentByID(ctx, commentID)
	if errors.Is(err, storage.ErrRecordNotFound) || (err == nil && c.IsDeleted) {
		return nil, fmt.Errorf("%w: comment %d", domain.ErrNotFound, commentID)
	}
	return c, err
}

func validateContent(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: comment content cannot be empty", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", fmt.Errorf("%w: comment content is too long", domain.ErrInvalidInput)
	}
	return content, nil
}

func listArgs(opts ListOptions) (storage.ListArgs, error) {
	order := opts.OrderBy
	if order == "" {
		order = domain.OrderNewest
	}
	if !order.Valid() {
		return storage.ListArgs{}, fmt.Errorf("%w: unknown order %q", domain.ErrInvalidInput, order)
	}

	page, perPage := opts.Page, opts.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	// Pages whose offset would overflow land past the end of every listing.
	offset := math.MaxInt - perPage
	if page-1 <= offset/perPage {
		offset = (page - 1) * perPage
	}
	return storage.ListArgs{OrderBy: order, Offset: offset, Limit: perPage}, nil
}

func (s *Service) fail(op string, err error) error {
	err = domain.Fatal(op, err)
	var fe *domain.FatalError
	if errors.As(err, &fe) {
		s.log.Error("comment storage failure", zap.String("op", op), zap.Error(fe.Err))
	}
	return err
}

func (s *Service) notify(ctx context.Context, ev events.Event) {
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.log.Warn("comment notification failed",
			zap.String("type", string(ev.Type)),
			zap.Int64("comment_id", ev.CommentID),
			zap.Error(err),
		)
	}
}
