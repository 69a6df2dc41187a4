package repository

import (
	"context"
	"time"

	"agora/internal/models"

	"gorm.io/gorm"
)

// ModerationRepository applies admin state changes to posts and comments and
// computes platform statistics.
type ModerationRepository interface {
	SetApproved(ctx context.Context, ctype models.ContentType, id uint, approved bool) error
	SetFlagged(ctx context.Context, ctype models.ContentType, id uint, flagged bool) error
	BulkApprove(ctx context.Context, ctype models.ContentType, ids []uint) (int64, error)
	BulkDelete(ctx context.Context, ctype models.ContentType, ids []uint) (int64, error)
	Stats(ctx context.Context) (*models.PlatformStats, error)
}

type moderationRepository struct {
	db *gorm.DB
}

// NewModerationRepository creates a new ModerationRepository
func NewModerationRepository(db *gorm.DB) ModerationRepository {
	return &moderationRepository{db: db}
}

func contentModel(ctype models.ContentType) (interface{}, string) {
	if ctype == models.ContentComment {
		return &models.Comment{}, "Comment"
	}
	return &models.Post{}, "Post"
}

func (r *moderationRepository) SetApproved(ctx context.Context, ctype models.ContentType, id uint, approved bool) error {
	return r.setState(ctx, ctype, id, "is_approved", approved)
}

func (r *moderationRepository) SetFlagged(ctx context.Context, ctype models.ContentType, id uint, flagged bool) error {
	return r.setState(ctx, ctype, id, "is_flagged", flagged)
}

func (r *moderationRepository) setState(ctx context.Context, ctype models.ContentType, id uint, column string, value bool) error {
	model, resource := contentModel(ctype)
	res := r.db.WithContext(ctx).
		Model(model).
		Where("id = ?", id).
		Updates(map[string]interface{}{column: value, "updated_at": time.Now()})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(resource, id)
	}
	return nil
}

// BulkApprove approves every existing id and skips the rest. It returns the
// number of rows matched.
func (r *moderationRepository) BulkApprove(ctx context.Context, ctype models.ContentType, ids []uint) (int64, error) {
	model, _ := contentModel(ctype)
	res := r.db.WithContext(ctx).
		Model(model).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"is_approved": true, "updated_at": time.Now()})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

// BulkDelete removes every existing id with its dependents in one
// transaction and returns how many of the requested ids existed.
func (r *moderationRepository) BulkDelete(ctx context.Context, ctype models.ContentType, ids []uint) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, _ := contentModel(ctype)
		var existing []uint
		if err := tx.Model(model).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
			return err
		}
		if len(existing) == 0 {
			return nil
		}

		if ctype == models.ContentComment {
			// Ids nested under another requested id disappear with their
			// ancestor; they still count as deleted.
			if err := deleteComments(tx, existing); err != nil {
				return err
			}
		} else if err := deletePosts(tx, existing); err != nil {
			return err
		}
		deleted = int64(len(existing))
		return nil
	})
	if err != nil {
		return 0, wrapError(err)
	}
	return deleted, nil
}

// Stats counts everything straight from the tables.
func (r *moderationRepository) Stats(ctx context.Context) (*models.PlatformStats, error) {
	db := r.db.WithContext(ctx)
	stats := &models.PlatformStats{}

	counts := []struct {
		dst    *int64
		model  interface{}
		column string
		value  bool
	}{
		{&stats.Users, &models.User{}, "", false},
		{&stats.BlockedUsers, &models.User{}, "is_blocked", true},
		{&stats.Posts, &models.Post{}, "", false},
		{&stats.PendingPosts, &models.Post{}, "is_approved", false},
		{&stats.FlaggedPosts, &models.Post{}, "is_flagged", true},
		{&stats.Comments, &models.Comment{}, "", false},
		{&stats.PendingComments, &models.Comment{}, "is_approved", false},
		{&stats.FlaggedComments, &models.Comment{}, "is_flagged", true},
		{&stats.Votes, &models.Vote{}, "", false},
		{&stats.Likes, &models.Like{}, "", false},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.column != "" {
			q = q.Where(c.column+" = ?", c.value)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
	}

	err := db.Raw(
		"SELECT COUNT(*) FROM users WHERE EXISTS (SELECT 1 FROM posts WHERE posts.user_id = users.id) " +
			"OR EXISTS (SELECT 1 FROM comments WHERE comments.user_id = users.id)",
	).Scan(&stats.ActiveAuthors).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	if stats.Users > 0 {
		stats.ParticipationRate = float64(stats.ActiveAuthors) / float64(stats.Users)
	}
	return stats, nil
}
