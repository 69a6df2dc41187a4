package database_test

import (
	"context"
	"testing"

	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/models"
	"agora/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresSchema_MigrationsAndConstraints(t *testing.T) {
	db := testutil.NewPostgresDB(t)
	ctx := context.Background()

	cfg := &config.Config{Env: "production", DBSchemaMode: database.SchemaModeSQL}
	require.NoError(t, database.ApplySchema(ctx, db, cfg))

	status, err := database.GetSchemaStatus(ctx, db, cfg)
	require.NoError(t, err)
	assert.Empty(t, status.PendingMigrations)
	assert.Equal(t, []int{1}, status.AppliedVersions)

	// Running again is a no-op.
	require.NoError(t, database.RunMigrations(ctx, db))

	user := models.User{Username: "pg_user", Email: "pg@example.com", Password: "hash", IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	dup := models.User{Username: "pg_user2", Email: "PG@example.com", Password: "hash"}
	assert.Error(t, db.Create(&dup).Error, "emails are unique case-insensitively")

	post := models.Post{Title: "t", Body: "b", UserID: user.ID}
	require.NoError(t, db.Create(&post).Error)
	comment := models.Comment{Body: "c", UserID: user.ID, PostID: post.ID}
	require.NoError(t, db.Create(&comment).Error)

	both := models.Vote{UserID: user.ID, PostID: &post.ID, CommentID: &comment.ID, Value: 1}
	assert.Error(t, db.Create(&both).Error)

	vote := models.Vote{UserID: user.ID, PostID: &post.ID, Value: -1}
	require.NoError(t, db.Create(&vote).Error)
	again := models.Vote{UserID: user.ID, PostID: &post.ID, Value: 1}
	assert.Error(t, db.Create(&again).Error, "one vote per user and post")

	// Foreign keys cascade at the store level too.
	require.NoError(t, db.Exec("DELETE FROM users WHERE id = ?", user.ID).Error)
	var remaining int64
	require.NoError(t, db.Model(&models.Vote{}).Count(&remaining).Error)
	assert.Zero(t, remaining)
	require.NoError(t, db.Model(&models.Comment{}).Count(&remaining).Error)
	assert.Zero(t, remaining)

	require.NoError(t, database.RollbackMigration(ctx, db, 1))
	assert.False(t, db.Migrator().HasTable("votes"))
}
