package models

import (
	"time"
)

// Post is a top-level piece of user content. The engagement fields are not
// persisted; they are filled by the aggregation query on every read.
type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:200;not null;uniqueIndex:idx_posts_user_title" json:"title"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	BodyHTML   string    `gorm:"type:text" json:"body_html"`
	Tags       string    `gorm:"size:400" json:"tags"`
	UserID     uint      `gorm:"not null;index;uniqueIndex:idx_posts_user_title" json:"user_id"`
	IsApproved bool      `gorm:"not null;default:false;index" json:"is_approved"`
	IsFlagged  bool      `gorm:"not null;default:false;index" json:"is_flagged"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Engagement
	Author Author `gorm:"-" json:"author"`
}

// ContentType names the two kinds of moderated content.
type ContentType string

const (
	ContentPost    ContentType = "posts"
	ContentComment ContentType = "comments"
)

// ParseContentType accepts the plural route form as well as the singular.
func ParseContentType(raw string) (ContentType, bool) {
	switch raw {
	case "posts", "post":
		return ContentPost, true
	case "comments", "comment":
		return ContentComment, true
	}
	return "", false
}

// Engagement carries the read-time aggregates shared by posts and comments.
type Engagement struct {
	Upvotes      int  `gorm:"->;-:migration" json:"upvotes"`
	Downvotes    int  `gorm:"->;-:migration" json:"downvotes"`
	TotalVotes   int  `gorm:"-" json:"total_votes"`
	Score        int  `gorm:"-" json:"score"`
	LikesCount   int  `gorm:"->;-:migration" json:"likes_count"`
	RepliesCount int  `gorm:"->;-:migration" json:"replies_count"`
	UserVote     *int `gorm:"->;-:migration" json:"user_vote"`
	Liked        bool `gorm:"->;-:migration" json:"liked"`

	AuthorUsername  string `gorm:"->;-:migration" json:"-"`
	AuthorAvatarURL string `gorm:"->;-:migration" json:"-"`
}

// Finalize derives score and totals from the counted ledger rows.
func (e *Engagement) Finalize() {
	e.TotalVotes = e.Upvotes + e.Downvotes
	e.Score = e.Upvotes - e.Downvotes
}

// Finalize fills the derived fields after an aggregation read.
func (p *Post) Finalize() {
	p.Engagement.Finalize()
	p.Author = Author{ID: p.UserID, Username: p.AuthorUsername, AvatarURL: p.AuthorAvatarURL}
}
