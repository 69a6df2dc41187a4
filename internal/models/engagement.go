package models

import (
	"time"
)

// Vote values.
const (
	VoteUp   = 1
	VoteDown = -1
)

// Vote is a ±1 judgement by one user on exactly one post or comment.
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_votes_user_post;uniqueIndex:idx_votes_user_comment" json:"user_id"`
	PostID    *uint     `gorm:"index;uniqueIndex:idx_votes_user_post;check:chk_votes_target,(post_id IS NULL) <> (comment_id IS NULL)" json:"post_id,omitempty"`
	CommentID *uint     `gorm:"index;uniqueIndex:idx_votes_user_comment" json:"comment_id,omitempty"`
	Value     int       `gorm:"not null;check:chk_votes_value,value IN (-1, 1)" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Like marks that one user likes exactly one post or comment.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_likes_user_post;uniqueIndex:idx_likes_user_comment" json:"user_id"`
	PostID    *uint     `gorm:"index;uniqueIndex:idx_likes_user_post;check:chk_likes_target,(post_id IS NULL) <> (comment_id IS NULL)" json:"post_id,omitempty"`
	CommentID *uint     `gorm:"index;uniqueIndex:idx_likes_user_comment" json:"comment_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Target identifies the post or comment a vote or like applies to.
type Target struct {
	Type ContentType
	ID   uint
}

// PostTarget returns the target for a post.
func PostTarget(id uint) Target { return Target{Type: ContentPost, ID: id} }

// CommentTarget returns the target for a comment.
func CommentTarget(id uint) Target { return Target{Type: ContentComment, ID: id} }

// Column returns the ledger column referencing this target type.
func (t Target) Column() string {
	if t.Type == ContentComment {
		return "comment_id"
	}
	return "post_id"
}

// Apply sets the matching foreign key on a ledger row and clears the other.
func (t Target) Apply(postID, commentID **uint) {
	id := t.ID
	if t.Type == ContentComment {
		*postID, *commentID = nil, &id
		return
	}
	*postID, *commentID = &id, nil
}

// VoteAction describes what a cast did to the ledger.
type VoteAction string

const (
	VoteCreated VoteAction = "created"
	VoteRemoved VoteAction = "removed"
	VoteChanged VoteAction = "changed"
)

// RevokedToken records a credential identifier that must no longer be accepted.
type RevokedToken struct {
	JTI       string    `gorm:"primaryKey;size:64" json:"jti"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	RevokedAt time.Time `gorm:"not null" json:"revoked_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}
