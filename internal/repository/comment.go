package repository

import (
	"context"
	"time"

	"agora/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint, filter ContentFilter) ([]*models.Comment, error)
	List(ctx context.Context, filter ContentFilter) ([]*models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts the comment after re-checking, inside the same transaction,
// that the post exists and that any parent belongs to that post.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var posts int64
		if err := tx.Model(&models.Post{}).Where("id = ?", comment.PostID).Count(&posts).Error; err != nil {
			return err
		}
		if posts == 0 {
			return models.NewNotFoundError("Post", comment.PostID)
		}

		if comment.ParentID != nil {
			var parent models.Comment
			if err := tx.Select("id", "post_id").Where("id = ?", *comment.ParentID).Take(&parent).Error; err != nil {
				return wrapLookupError(err, "Comment", *comment.ParentID)
			}
			if parent.PostID != comment.PostID {
				return models.NewValidationError("Parent comment does not belong to this post")
			}
		}

		return tx.Create(comment).Error
	})
	if isForeignKeyError(err) {
		return models.NewNotFoundError("Post", comment.PostID)
	}
	return wrapError(err)
}

// GetByID returns the comment with aggregates as seen by viewerID.
func (r *commentRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Comment, error) {
	var comment models.Comment
	err := applyCommentDetails(r.db.WithContext(ctx), viewerID).
		Where("comments.id = ?", id).
		Take(&comment).Error
	if err != nil {
		return nil, wrapLookupError(err, "Comment", id)
	}
	comment.Finalize()
	return &comment, nil
}

// ListByPost returns every comment of the post visible under filter, oldest
// first, so the caller can nest them into reply trees.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint, filter ContentFilter) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := applyVisibility(applyCommentDetails(r.db.WithContext(ctx), filter.ViewerID), "comments", filter).
		Where("comments.post_id = ?", postID).
		Order("comments.created_at ASC").
		Order("comments.id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, c := range comments {
		c.Finalize()
	}
	return comments, nil
}

// List is the paginated, newest-first listing used by moderation.
func (r *commentRepository) List(ctx context.Context, filter ContentFilter) ([]*models.Comment, error) {
	limit, offset := filter.page()
	var comments []*models.Comment
	err := applyVisibility(applyCommentDetails(r.db.WithContext(ctx), filter.ViewerID), "comments", filter).
		Order("comments.created_at DESC").
		Order("comments.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, c := range comments {
		c.Finalize()
	}
	return comments, nil
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	comment.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", comment.ID).
		Updates(map[string]interface{}{
			"body":        comment.Body,
			"body_html":   comment.BodyHTML,
			"is_approved": comment.IsApproved,
			"updated_at":  comment.UpdatedAt,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", comment.ID)
	}
	return nil
}

// Delete removes the comment, its replies (recursively) and their votes and
// likes in one transaction.
func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Comment{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return models.NewNotFoundError("Comment", id)
		}
		return deleteComments(tx, []uint{id})
	})
	return wrapError(err)
}
