package domain

import "time"

// MaxDepth is the deepest level a reply can sit at. A parent whose depth
// has reached it cannot receive replies.
const MaxDepth = 5

// RootPath is the materialized path of every top-level comment.
const RootPath = "root"

// RoleAdmin may soft-delete comments it does not own.
const RoleAdmin = "admin"

// User is the read model of an account owned by the auth subsystem.
type User struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"type:varchar(255);not null;uniqueIndex"`
	Role      string    `json:"role" gorm:"type:varchar(32);not null;default:user"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;default:now()"`
}

// Review is the read model of a book review. Comments hang off it.
type Review struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	BookID     int64     `json:"bookId" gorm:"not null;index"`
	UserID     int64     `json:"userId" gorm:"not null;index"`
	Rating     int       `json:"rating" gorm:"not null"`
	Content    *string   `json:"content,omitempty" gorm:"type:text"`
	LikesCount int       `json:"likesCount" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"createdAt" gorm:"not null;default:now()"`
	UpdatedAt  time.Time `json:"updatedAt" gorm:"not null;default:now()"`
}

// Comment is a node of a review's discussion tree.
//
// Path holds the ancestor chain ("root", "root.12", "root.12.40") and,
// together with Depth and ParentID, never changes after creation.
type Comment struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	Path       string    `json:"path" gorm:"type:varchar(255);not null;index:idx_comment_path"`
	Depth      int       `json:"depth" gorm:"not null;default:0"`
	ReviewID   int64     `json:"reviewId" gorm:"not null;index:idx_comment_review"`
	UserID     int64     `json:"userId" gorm:"not null;index:idx_comment_user"`
	ParentID   *int64    `json:"parentId,omitempty" gorm:"index:idx_comment_parent"`
	LikesCount int       `json:"likesCount" gorm:"not null;default:0"`
	IsDeleted  bool      `json:"isDeleted" gorm:"not null;default:false"`
	CreatedAt  time.Time `json:"createdAt" gorm:"not null"`
	UpdatedAt  time.Time `json:"updatedAt" gorm:"not null"`
}

// IsRoot reports whether the comment is attached directly to its review.
func (c *Comment) IsRoot() bool { return c.ParentID == nil }

// IsEdited reports whether the row was mutated after creation.
func (c *Comment) IsEdited() bool { return c.UpdatedAt.After(c.CreatedAt) }

// CommentLike is one row of the liked-by relation. (CommentID, UserID) is
// unique.
type CommentLike struct {
	CommentID int64     `json:"commentId" gorm:"not null;uniqueIndex:unique_comment_like"`
	UserID    int64     `json:"userId" gorm:"not null;uniqueIndex:unique_comment_like"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
}

// OrderBy selects how comment listings are sorted.
type OrderBy string

const (
	OrderNewest    OrderBy = "NEWEST"
	OrderOldest    OrderBy = "OLDEST"
	OrderMostLiked OrderBy = "MOST_LIKED"
)

// Valid reports whether o is one of the known orderings.
func (o OrderBy) Valid() bool {
	switch o {
	case OrderNewest, OrderOldest, OrderMostLiked:
		return true
	}
	return false
}

// Identity is the acting principal as supplied by the auth layer.
type Identity struct {
	UserID int64
	Role   string
}

// IsAdmin reports whether the principal holds the administrative role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }
