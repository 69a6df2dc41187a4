package models

import (
	"time"
)

// Comment belongs to a post and optionally replies to another comment of the
// same post.
type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	BodyHTML   string    `gorm:"type:text" json:"body_html"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	PostID     uint      `gorm:"not null;index" json:"post_id"`
	ParentID   *uint     `gorm:"index" json:"parent_id"`
	IsApproved bool      `gorm:"not null;default:false;index" json:"is_approved"`
	IsFlagged  bool      `gorm:"not null;default:false;index" json:"is_flagged"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Engagement
	Author  Author     `gorm:"-" json:"author"`
	Replies []*Comment `gorm:"-" json:"replies,omitempty"`
}

// Finalize fills the derived fields after an aggregation read.
func (c *Comment) Finalize() {
	c.Engagement.Finalize()
	c.Author = Author{ID: c.UserID, Username: c.AuthorUsername, AvatarURL: c.AuthorAvatarURL}
}

// BuildCommentTree nests a flat, creation-ordered list into reply trees and
// returns the roots. Replies whose parent is absent from the list (hidden or
// deleted) are dropped together with their subtree.
func BuildCommentTree(flat []*Comment) []*Comment {
	byID := make(map[uint]*Comment, len(flat))
	for _, c := range flat {
		c.Replies = nil
		byID[c.ID] = c
	}

	roots := make([]*Comment, 0, len(flat))
	for _, c := range flat {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		if parent, ok := byID[*c.ParentID]; ok {
			parent.Replies = append(parent.Replies, c)
		}
	}
	return roots
}
