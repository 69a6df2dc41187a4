package repository

import (
	"context"
	"time"

	"agora/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RevokedTokenRepository persists the credential revocation list.
type RevokedTokenRepository interface {
	Revoke(ctx context.Context, jti string, userID uint, expiresAt time.Time) error
	Consume(ctx context.Context, jti string, userID uint, expiresAt time.Time) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type revokedTokenRepository struct {
	db *gorm.DB
}

// NewRevokedTokenRepository creates a new RevokedTokenRepository
func NewRevokedTokenRepository(db *gorm.DB) RevokedTokenRepository {
	return &revokedTokenRepository{db: db}
}

// Revoke is idempotent: revoking the same jti twice is not an error.
func (r *revokedTokenRepository) Revoke(ctx context.Context, jti string, userID uint, expiresAt time.Time) error {
	_, err := r.insert(ctx, jti, userID, expiresAt)
	return err
}

// Consume revokes jti and reports whether this call was the one that did it.
// Refresh rotation relies on it so a refresh token is redeemable once.
func (r *revokedTokenRepository) Consume(ctx context.Context, jti string, userID uint, expiresAt time.Time) (bool, error) {
	return r.insert(ctx, jti, userID, expiresAt)
}

func (r *revokedTokenRepository) insert(ctx context.Context, jti string, userID uint, expiresAt time.Time) (bool, error) {
	row := models.RevokedToken{
		JTI:       jti,
		UserID:    userID,
		RevokedAt: time.Now(),
		ExpiresAt: expiresAt,
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *revokedTokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.RevokedToken{}).Where("jti = ?", jti).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// PurgeExpired drops entries whose credential would be rejected anyway.
func (r *revokedTokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
