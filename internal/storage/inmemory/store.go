package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AbdullaK123/book-api/internal/domain"
	"github.com/AbdullaK123/book-api/internal/storage"
)

type likeKey struct {
	commentID int64
	userID    int64
}

// Store implements storage.Storage in memory. Transactions serialize on a
// single store-wide lock.
type Store struct {
	mu               sync.RWMutex
	lastCommentID    int64
	lastReviewID     int64
	users            map[int64]*domain.User
	reviews          map[int64]*domain.Review
	comments         map[int64]*domain.Comment
	likes            map[likeKey]domain.CommentLike
	commentsByReview map[int64][]int64 // map[reviewID][]commentID, all depths
	commentsByParent map[int64][]int64 // map[parentID][]commentID
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:            make(map[int64]*domain.User),
		reviews:          make(map[int64]*domain.Review),
		comments:         make(map[int64]*domain.Comment),
		likes:            make(map[likeKey]domain.CommentLike),
		commentsByReview: make(map[int64][]int64),
		commentsByParent: make(map[int64][]int64),
	}
}

// === Read model seeding ===

// PutUser registers a user. Users are owned elsewhere; this exists for
// development data and tests.
func (s *Store) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = &u
}

// CreateReview registers a review and assigns its id when unset.
func (s *Store) CreateReview(_ context.Context, r *domain.Review) (*domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == 0 {
		s.lastReviewID++
		r.ID = s.lastReviewID
	} else if r.ID > s.lastReviewID {
		s.lastReviewID = r.ID
	}
	if _, ok := s.reviews[r.ID]; ok {
		return nil, fmt.Errorf("review %d already exists", r.ID)
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	cp := *r
	s.reviews[r.ID] = &cp
	return r, nil
}

// === Reader ===

func (s *Store) GetCommentByID(_ context.Context, id int64) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getComment(id)
}

func (s *Store) ReviewExists(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.reviews[id]
	return ok, nil
}

func (s *Store) HasLike(_ context.Context, commentID, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.likes[likeKey{commentID, userID}]
	return ok, nil
}

func (s *Store) GetReviewByID(_ context.Context, id int64) (*domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	if !ok {
		return nil, storage.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) getComment(id int64) (*domain.Comment, error) {
	c, ok := s.comments[id]
	if !ok {
		return nil, storage.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

// === Listing ===

func (s *Store) ListComments(_ context.Context, filter storage.CommentFilter, args storage.ListArgs) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	switch {
	case filter.ReviewID != nil:
		ids = s.commentsByReview[*filter.ReviewID]
	case filter.ParentID != nil:
		ids = s.commentsByParent[*filter.ParentID]
	default:
		return nil, fmt.Errorf("comment filter requires a review or parent id")
	}

	visible := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.comments[id]; ok && !c.IsDeleted {
			visible = append(visible, c)
		}
	}

	// Index slices are in insertion order; a stable sort keeps it for ties.
	sortComments(visible, args.OrderBy)

	return page(visible, args.Offset, args.Limit), nil
}

func sortComments(comments []*domain.Comment, order domain.OrderBy) {
	switch order {
	case domain.OrderOldest:
		sort.SliceStable(comments, func(i, j int) bool {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		})
	case domain.OrderMostLiked:
		sort.SliceStable(comments, func(i, j int) bool {
			return comments[i].LikesCount > comments[j].LikesCount
		})
	default:
		sort.SliceStable(comments, func(i, j int) bool {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		})
	}
}

func page(comments []*domain.Comment, offset, limit int) []*domain.Comment {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(comments) {
		return []*domain.Comment{}
	}
	end := len(comments)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]*domain.Comment, 0, end-offset)
	for _, c := range comments[offset:end] {
		cp := *c
		out = append(out, &cp)
	}
	return out
}

// === Dataloader Methods ===

func (s *Store) GetCommentsByIDs(_ context.Context, ids []int64) (map[int64]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]*domain.Comment, len(ids))
	for _, id := range ids {
		if c, ok := s.comments[id]; ok {
			cp := *c
			out[id] = &cp
		}
	}
	return out, nil
}

func (s *Store) GetUsersByIDs(_ context.Context, ids []int64) (map[int64]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			cp := *u
			out[id] = &cp
		}
	}
	return out, nil
}

// === Transactions ===

// WithinTx holds the write lock while fn runs and replays the undo log if
// fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{s: s}
	if err := fn(t); err != nil {
		t.rollback()
		return err
	}
	return nil
}

type tx struct {
	s    *Store
	undo []func()
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) GetCommentByID(_ context.Context, id int64) (*domain.Comment, error) {
	return t.s.getComment(id)
}

func (t *tx) LockCommentByID(_ context.Context, id int64) (*domain.Comment, error) {
	return t.s.getComment(id)
}

func (t *tx) ReviewExists(_ context.Context, id int64) (bool, error) {
	_, ok := t.s.reviews[id]
	return ok, nil
}

func (t *tx) HasLike(_ context.Context, commentID, userID int64) (bool, error) {
	_, ok := t.s.likes[likeKey{commentID, userID}]
	return ok, nil
}

func (t *tx) InsertComment(_ context.Context, c *domain.Comment) error {
	s := t.s
	s.lastCommentID++
	c.ID = s.lastCommentID

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}

	cp := *c
	s.comments[c.ID] = &cp
	s.commentsByReview[c.ReviewID] = append(s.commentsByReview[c.ReviewID], c.ID)
	if c.ParentID != nil {
		s.commentsByParent[*c.ParentID] = append(s.commentsByParent[*c.ParentID], c.ID)
	}

	id, reviewID, parentID := c.ID, c.ReviewID, c.ParentID
	t.undo = append(t.undo, func() {
		delete(s.comments, id)
		s.commentsByReview[reviewID] = dropLast(s.commentsByReview[reviewID], id)
		if parentID != nil {
			s.commentsByParent[*parentID] = dropLast(s.commentsByParent[*parentID], id)
		}
	})
	return nil
}

func (t *tx) UpdateComment(_ context.Context, c *domain.Comment) error {
	stored, ok := t.s.comments[c.ID]
	if !ok {
		return storage.ErrRecordNotFound
	}
	prev := *stored
	stored.Content = c.Content
	stored.IsDeleted = c.IsDeleted
	stored.UpdatedAt = c.UpdatedAt

	t.undo = append(t.undo, func() { *stored = prev })
	return nil
}

func (t *tx) InsertLike(_ context.Context, like *domain.CommentLike) error {
	key := likeKey{like.CommentID, like.UserID}
	if _, ok := t.s.likes[key]; ok {
		return storage.ErrDuplicateLike
	}
	if like.CreatedAt.IsZero() {
		like.CreatedAt = time.Now().UTC()
	}
	t.s.likes[key] = *like
	t.undo = append(t.undo, func() { delete(t.s.likes, key) })
	return nil
}

func (t *tx) DeleteLike(_ context.Context, commentID, userID int64) (bool, error) {
	key := likeKey{commentID, userID}
	prev, ok := t.s.likes[key]
	if !ok {
		return false, nil
	}
	delete(t.s.likes, key)
	t.undo = append(t.undo, func() { t.s.likes[key] = prev })
	return true, nil
}

func (t *tx) AddLikes(_ context.Context, commentID int64, delta int, at time.Time) (int, error) {
	stored, ok := t.s.comments[commentID]
	if !ok {
		return 0, storage.ErrRecordNotFound
	}
	prevUpdatedAt := stored.UpdatedAt
	stored.LikesCount += delta
	stored.UpdatedAt = at
	t.undo = append(t.undo, func() {
		stored.LikesCount -= delta
		stored.UpdatedAt = prevUpdatedAt
	})
	return stored.LikesCount, nil
}

func dropLast(ids []int64, id int64) []int64 {
	for i := len(ids) - 1; i >= 0; i-- {
		if ids[i] == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
