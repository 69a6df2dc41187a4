package repository

import (
	"context"
	"strings"
	"time"

	"agora/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	List(ctx context.Context, filter ContentFilter) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

const duplicatePostTitle = "You already have a post with this title"

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError(duplicatePostTitle)
		}
		if isForeignKeyError(err) {
			return models.NewNotFoundError("User", post.UserID)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// GetByID returns the post with aggregates as seen by viewerID. Visibility is
// the caller's decision; hidden posts are returned too.
func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post
	err := applyPostDetails(r.db.WithContext(ctx), viewerID).
		Where("posts.id = ?", id).
		Take(&post).Error
	if err != nil {
		return nil, wrapLookupError(err, "Post", id)
	}
	post.Finalize()
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, filter ContentFilter) ([]*models.Post, error) {
	limit, offset := filter.page()
	query := applyVisibility(applyPostDetails(r.db.WithContext(ctx), filter.ViewerID), "posts", filter)
	if tag := strings.ToLower(strings.TrimSpace(filter.Tag)); tag != "" {
		query = query.Where("(',' || posts.tags || ',') LIKE ?", "%,"+tag+",%")
	}

	var posts []*models.Post
	err := query.
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, p := range posts {
		p.Finalize()
	}
	return posts, nil
}

// Update writes the editable columns of post.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	post.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", post.ID).
		Updates(map[string]interface{}{
			"title":       post.Title,
			"body":        post.Body,
			"body_html":   post.BodyHTML,
			"tags":        post.Tags,
			"is_approved": post.IsApproved,
			"updated_at":  post.UpdatedAt,
		})
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return models.NewConflictError(duplicatePostTitle)
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	return nil
}

// Delete removes the post with its comment tree, votes and likes in one
// transaction.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return deletePosts(tx, []uint{id})
	})
	return wrapError(err)
}
