package model

// CommentInput is the payload of createComment. ParentID is nil for a
// top-level comment.
type CommentInput struct {
	Content  string `json:"content"`
	ReviewID int64  `json:"reviewId"`
	ParentID *int64 `json:"parentId,omitempty"`
}

// CommentUpdate is the payload of updateComment.
type CommentUpdate struct {
	Content string `json:"content"`
}
