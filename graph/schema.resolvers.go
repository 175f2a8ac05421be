package graph

import (
	"context"

	"go.uber.org/zap"

	"github.com/AbdullaK123/book-api/graph/model"
	"github.com/AbdullaK123/book-api/internal/auth"
	"github.com/AbdullaK123/book-api/internal/comments"
	"github.com/AbdullaK123/book-api/internal/dataloader"
	"github.com/AbdullaK123/book-api/internal/domain"
)

// === Comment Resolvers ===

// User resolves the author through the request's batch loader.
func (r *commentResolver) User(ctx context.Context, obj *domain.Comment) (*domain.User, error) {
	return r.loadUser(ctx, obj.UserID)
}

// Parent resolves the immediate parent. Soft-deleted parents resolve to null.
func (r *commentResolver) Parent(ctx context.Context, obj *domain.Comment) (*domain.Comment, error) {
	if obj.ParentID == nil {
		return nil, nil
	}

	if loaders := dataloader.For(ctx); loaders != nil {
		parent, err := loaders.Comment(ctx, *obj.ParentID)
		if err != nil || parent == nil || parent.IsDeleted {
			return nil, err
		}
		return parent, nil
	}

	parent, err := r.CommentService.GetCommentByID(ctx, *obj.ParentID)
	if domain.Code(err) == domain.CodeNotFound {
		return nil, nil
	}
	return parent, err
}

// Replies lists the visible direct replies. Pagination is per parent, so it
// goes to the store directly instead of through a loader.
func (r *commentResolver) Replies(ctx context.Context, obj *domain.Comment, orderBy *domain.OrderBy, page *int, perPage *int) ([]*domain.Comment, error) {
	return r.CommentService.GetRepliesForComment(ctx, obj.ID, listOptions(orderBy, nil, page, perPage))
}

// LikedByMe is false for anonymous callers.
func (r *commentResolver) LikedByMe(ctx context.Context, obj *domain.Comment) (bool, error) {
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return false, nil
	}
	return r.CommentService.HasLiked(ctx, obj.ID, id.UserID)
}

// === Review Resolvers ===

func (r *reviewResolver) User(ctx context.Context, obj *domain.Review) (*domain.User, error) {
	return r.loadUser(ctx, obj.UserID)
}

func (r *reviewResolver) Comments(ctx context.Context, obj *domain.Review, orderBy *domain.OrderBy, depth *int, page *int, perPage *int) ([]*domain.Comment, error) {
	return r.CommentService.GetCommentsForReview(ctx, obj.ID, listOptions(orderBy, depth, page, perPage))
}

// === Mutation Resolvers ===

func (r *mutationResolver) CreateComment(ctx context.Context, input model.CommentInput) (*domain.Comment, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return r.CommentService.CreateComment(ctx, comments.CreateInput{
		Content:  input.Content,
		ReviewID: input.ReviewID,
		ParentID: input.ParentID,
	}, id.UserID)
}

func (r *mutationResolver) UpdateComment(ctx context.Context, commentID int64, input model.CommentUpdate) (*domain.Comment, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return r.CommentService.UpdateComment(ctx, commentID, id.UserID, input.Content)
}

func (r *mutationResolver) DeleteComment(ctx context.Context, commentID int64) (*domain.Comment, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return r.CommentService.DeleteComment(ctx, commentID, id.UserID, id.Role)
}

func (r *mutationResolver) LikeComment(ctx context.Context, commentID int64) (*domain.Comment, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return r.CommentService.LikeComment(ctx, commentID, id.UserID)
}

func (r *mutationResolver) UnlikeComment(ctx context.Context, commentID int64) (*domain.Comment, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return r.CommentService.UnlikeComment(ctx, commentID, id.UserID)
}

// === Query Resolvers ===

func (r *queryResolver) GetCommentByID(ctx context.Context, commentID int64) (*domain.Comment, error) {
	return r.CommentService.GetCommentByID(ctx, commentID)
}

// GetCommentsForReview accepts depth but never filters on it.
func (r *queryResolver) GetCommentsForReview(ctx context.Context, reviewID int64, orderBy *domain.OrderBy, depth *int, page *int, perPage *int) ([]*domain.Comment, error) {
	return r.CommentService.GetCommentsForReview(ctx, reviewID, listOptions(orderBy, depth, page, perPage))
}

func (r *queryResolver) GetRepliesForComment(ctx context.Context, commentID int64, orderBy *domain.OrderBy, depth *int, page *int, perPage *int) ([]*domain.Comment, error) {
	return r.CommentService.GetRepliesForComment(ctx, commentID, listOptions(orderBy, depth, page, perPage))
}

func (r *queryResolver) Review(ctx context.Context, id int64) (*domain.Review, error) {
	return r.CommentService.GetReviewByID(ctx, id)
}

// === Subscription Resolvers ===

func (r *subscriptionResolver) CommentAdded(ctx context.Context, reviewID int64) (<-chan *domain.Comment, error) {
	// The review must exist before anyone can listen on it.
	if _, err := r.CommentService.GetReviewByID(ctx, reviewID); err != nil {
		return nil, err
	}

	ch := r.Observer.Subscribe(ctx, reviewID)
	if r.Log != nil {
		r.Log.Debug("commentAdded subscriber attached", zap.Int64("review_id", reviewID))
	}
	return ch, nil
}

// === helpers ===

func (r *Resolver) loadUser(ctx context.Context, userID int64) (*domain.User, error) {
	if loaders := dataloader.For(ctx); loaders != nil {
		return loaders.User(ctx, userID)
	}
	return r.CommentService.GetUserByID(ctx, userID)
}

func requireIdentity(ctx context.Context) (domain.Identity, error) {
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return id, nil
}

func listOptions(orderBy *domain.OrderBy, depth *int, page *int, perPage *int) comments.ListOptions {
	opts := comments.ListOptions{Depth: depth}
	if orderBy != nil {
		opts.OrderBy = *orderBy
	}
	if page != nil {
		opts.Page = *page
	}
	if perPage != nil {
		opts.PerPage = *perPage
	}
	return opts
}

// === Boilerplate: binding resolvers to the executable schema ===

// Comment returns CommentResolver implementation.
func (r *Resolver) Comment() CommentResolver { return &commentResolver{r} }

// Mutation returns MutationResolver implementation.
func (r *Resolver) Mutation() MutationResolver { return &mutationResolver{r} }

// Query returns QueryResolver implementation.
func (r *Resolver) Query() QueryResolver { return &queryResolver{r} }

// Review returns ReviewResolver implementation.
func (r *Resolver) Review() ReviewResolver { return &reviewResolver{r} }

// Subscription returns SubscriptionResolver implementation.
func (r *Resolver) Subscription() SubscriptionResolver { return &subscriptionResolver{r} }

type commentResolver struct{ *Resolver }
type mutationResolver struct{ *Resolver }
type queryResolver struct{ *Resolver }
type reviewResolver struct{ *Resolver }
type subscriptionResolver struct{ *Resolver }
