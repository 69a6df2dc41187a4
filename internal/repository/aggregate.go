package repository

import (
	"gorm.io/gorm"
)

// ContentFilter narrows post and comment listings. Zero values mean "no
// restriction" except for visibility, which is always applied unless
// IncludeHidden is set.
type ContentFilter struct {
	ViewerID      uint
	IncludeHidden bool
	AuthorID      uint
	Tag           string
	PendingOnly   bool
	FlaggedOnly   bool
	Limit         int
	Offset        int
}

func (f ContentFilter) page() (limit, offset int) {
	limit, offset = f.Limit, f.Offset
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// applyPostDetails selects posts with their author and every engagement
// aggregate computed from the ledgers in one statement. viewerID 0 matches no
// ledger rows, so anonymous readers get a null user_vote and liked=false.
func applyPostDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.Table("posts").
		Select(
			"posts.*, "+
				"users.username AS author_username, users.avatar_url AS author_avatar_url, "+
				"(SELECT COUNT(*) FROM votes v WHERE v.post_id = posts.id AND v.value = 1) AS upvotes, "+
				"(SELECT COUNT(*) FROM votes v WHERE v.post_id = posts.id AND v.value = -1) AS downvotes, "+
				"(SELECT COUNT(*) FROM likes l WHERE l.post_id = posts.id) AS likes_count, "+
				"(SELECT COUNT(*) FROM comments c WHERE c.post_id = posts.id AND c.parent_id IS NULL AND c.is_approved = ?) AS replies_count, "+
				"(SELECT v.value FROM votes v WHERE v.post_id = posts.id AND v.user_id = ?) AS user_vote, "+
				"EXISTS(SELECT 1 FROM likes l WHERE l.post_id = posts.id AND l.user_id = ?) AS liked",
			true, viewerID, viewerID,
		).
		Joins("JOIN users ON users.id = posts.user_id")
}

// applyCommentDetails is applyPostDetails for comments; replies_count counts
// approved direct replies.
func applyCommentDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.Table("comments").
		Select(
			"comments.*, "+
				"users.username AS author_username, users.avatar_url AS author_avatar_url, "+
				"(SELECT COUNT(*) FROM votes v WHERE v.comment_id = comments.id AND v.value = 1) AS upvotes, "+
				"(SELECT COUNT(*) FROM votes v WHERE v.comment_id = comments.id AND v.value = -1) AS downvotes, "+
				"(SELECT COUNT(*) FROM likes l WHERE l.comment_id = comments.id) AS likes_count, "+
				"(SELECT COUNT(*) FROM comments r WHERE r.parent_id = comments.id AND r.is_approved = ?) AS replies_count, "+
				"(SELECT v.value FROM votes v WHERE v.comment_id = comments.id AND v.user_id = ?) AS user_vote, "+
				"EXISTS(SELECT 1 FROM likes l WHERE l.comment_id = comments.id AND l.user_id = ?) AS liked",
			true, viewerID, viewerID,
		).
		Joins("JOIN users ON users.id = comments.user_id")
}

// applyVisibility restricts table rows to approved content plus the viewer's
// own, unless the filter asks for hidden rows too.
func applyVisibility(db *gorm.DB, table string, f ContentFilter) *gorm.DB {
	if !f.IncludeHidden {
		db = db.Where("("+table+".is_approved = ? OR "+table+".user_id = ?)", true, f.ViewerID)
	}
	if f.AuthorID != 0 {
		db = db.Where(table+".user_id = ?", f.AuthorID)
	}
	if f.PendingOnly {
		db = db.Where(table+".is_approved = ?", false)
	}
	if f.FlaggedOnly {
		db = db.Where(table+".is_flagged = ?", true)
	}
	return db
}
