package repository

import (
	"agora/internal/models"

	"gorm.io/gorm"
)

// The schema declares ON DELETE CASCADE foreign keys, but SQLite connections
// and AutoMigrate-created schemas do not enforce them, so every delete walks
// its dependents explicitly. All helpers expect to run inside a transaction.

// collectCommentSubtree returns roots plus every transitive reply.
func collectCommentSubtree(tx *gorm.DB, roots []uint) ([]uint, error) {
	all := append([]uint(nil), roots...)
	seen := make(map[uint]struct{}, len(roots))
	for _, id := range roots {
		seen[id] = struct{}{}
	}

	frontier := roots
	for len(frontier) > 0 {
		var children []uint
		if err := tx.Model(&models.Comment{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
			return nil, err
		}
		next := children[:0]
		for _, id := range children {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			next = append(next, id)
		}
		all = append(all, next...)
		frontier = next
	}
	return all, nil
}

// deleteComments removes the given comments, their reply subtrees and every
// vote and like attached to any of them.
func deleteComments(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	subtree, err := collectCommentSubtree(tx, ids)
	if err != nil {
		return err
	}
	if err := tx.Where("comment_id IN ?", subtree).Delete(&models.Vote{}).Error; err != nil {
		return err
	}
	if err := tx.Where("comment_id IN ?", subtree).Delete(&models.Like{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", subtree).Delete(&models.Comment{}).Error
}

// deletePosts removes the given posts with all their comments and every vote
// and like on the posts or their comments.
func deletePosts(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	var commentIDs []uint
	if err := tx.Model(&models.Comment{}).Where("post_id IN ?", ids).Pluck("id", &commentIDs).Error; err != nil {
		return err
	}
	if err := deleteComments(tx, commentIDs); err != nil {
		return err
	}
	if err := tx.Where("post_id IN ?", ids).Delete(&models.Vote{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id IN ?", ids).Delete(&models.Like{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&models.Post{}).Error
}

// deleteUserContent removes everything a user owns or has cast, then the
// user row itself.
func deleteUserContent(tx *gorm.DB, userID uint) error {
	var postIDs []uint
	if err := tx.Model(&models.Post{}).Where("user_id = ?", userID).Pluck("id", &postIDs).Error; err != nil {
		return err
	}
	if err := deletePosts(tx, postIDs); err != nil {
		return err
	}

	var commentIDs []uint
	if err := tx.Model(&models.Comment{}).Where("user_id = ?", userID).Pluck("id", &commentIDs).Error; err != nil {
		return err
	}
	if err := deleteComments(tx, commentIDs); err != nil {
		return err
	}

	if err := tx.Where("user_id = ?", userID).Delete(&models.Vote{}).Error; err != nil {
		return err
	}
	if err := tx.Where("user_id = ?", userID).Delete(&models.Like{}).Error; err != nil {
		return err
	}
	if err := tx.Where("user_id = ?", userID).Delete(&models.RevokedToken{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.User{}, userID).Error
}
