package database

import "agora/internal/models"

// PersistentModels lists every table the API owns, parents before children.
// AutoMigrate creates them in this order and the seeder clears them in
// reverse.
func PersistentModels() []any {
	return []any{
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Vote{},
		&models.Like{},
		&models.RevokedToken{},
	}
}
