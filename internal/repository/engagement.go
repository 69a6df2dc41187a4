package repository

import (
	"context"
	"errors"
	"time"

	"agora/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EngagementRepository owns the vote and like ledgers.
type EngagementRepository interface {
	CastVote(ctx context.Context, userID uint, target models.Target, value int) (models.VoteAction, error)
	RemoveVote(ctx context.Context, userID uint, target models.Target) (bool, error)
	ToggleLike(ctx context.Context, userID uint, target models.Target) (bool, error)
}

type engagementRepository struct {
	db *gorm.DB
}

// NewEngagementRepository creates a new EngagementRepository
func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &engagementRepository{db: db}
}

const voteAlreadyRecorded = "Vote already recorded"

// CastVote applies the toggle-or-replace rule in one transaction: no vote
// creates one, the same value removes it, the opposite value overwrites it.
func (r *engagementRepository) CastVote(ctx context.Context, userID uint, target models.Target, value int) (models.VoteAction, error) {
	var action models.VoteAction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Vote
		err := tx.Where("user_id = ? AND "+target.Column()+" = ?", userID, target.ID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			vote := models.Vote{UserID: userID, Value: value}
			target.Apply(&vote.PostID, &vote.CommentID)
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
			action = models.VoteCreated
		case err != nil:
			return err
		case existing.Value == value:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			action = models.VoteRemoved
		default:
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"value":      value,
				"updated_at": time.Now(),
			}).Error; err != nil {
				return err
			}
			action = models.VoteChanged
		}
		return nil
	})
	if err != nil {
		return "", translateLedgerError(err, target, voteAlreadyRecorded)
	}
	return action, nil
}

// RemoveVote deletes the user's vote if any and reports whether one existed.
func (r *engagementRepository) RemoveVote(ctx context.Context, userID uint, target models.Target) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND "+target.Column()+" = ?", userID, target.ID).
		Delete(&models.Vote{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ToggleLike deletes an existing like or inserts a new one and returns the
// resulting state. A concurrent duplicate insert is absorbed by ON CONFLICT.
func (r *engagementRepository) ToggleLike(ctx context.Context, userID uint, target models.Target) (bool, error) {
	var liked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND "+target.Column()+" = ?", userID, target.ID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			liked = false
			return nil
		}

		like := models.Like{UserID: userID}
		target.Apply(&like.PostID, &like.CommentID)
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
			return err
		}
		liked = true
		return nil
	})
	if err != nil {
		return false, translateLedgerError(err, target, "Like already recorded")
	}
	return liked, nil
}

func translateLedgerError(err error, target models.Target, conflictMsg string) error {
	switch {
	case isUniqueConstraintError(err):
		return models.NewConflictError(conflictMsg)
	case isForeignKeyError(err):
		if target.Type == models.ContentComment {
			return models.NewNotFoundError("Comment", target.ID)
		}
		return models.NewNotFoundError("Post", target.ID)
	}
	return wrapError(err)
}
