// Package testutil provides shared test databases and fixtures for backend tests.
package testutil

import (
	"fmt"
	"sync"
	"testing"

	"agora/internal/database"
	"agora/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB returns an isolated in-memory database with the full schema.
// The pool is pinned to one connection so every statement, including those
// inside transactions, sees the same memory database.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// TestPassword is the plaintext password of every fixture user.
const TestPassword = "password123"

var fixtureHash = sync.OnceValues(func() ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
})

// fixturePasswordHash hashes TestPassword once at minimum cost.
func fixturePasswordHash(t testing.TB) string {
	h, err := fixtureHash()
	require.NoError(t, err)
	return string(h)
}

// CreateUser inserts an active user whose email is derived from username.
func CreateUser(t testing.TB, db *gorm.DB, username string, admin bool) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: fixturePasswordHash(t),
		IsAdmin:  admin,
		IsActive: true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreatePost inserts a post owned by userID with the given approval state.
func CreatePost(t testing.TB, db *gorm.DB, userID uint, title string, approved bool) *models.Post {
	t.Helper()
	p := &models.Post{
		Title:      title,
		Body:       "body of " + title,
		UserID:     userID,
		IsApproved: approved,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreateComment inserts a comment on postID, optionally replying to parentID.
func CreateComment(t testing.TB, db *gorm.DB, userID, postID uint, parentID *uint, approved bool) *models.Comment {
	t.Helper()
	c := &models.Comment{
		Body:       "comment",
		UserID:     userID,
		PostID:     postID,
		ParentID:   parentID,
		IsApproved: approved,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// Vote inserts a raw vote row.
func Vote(t testing.TB, db *gorm.DB, userID uint, target models.Target, value int) {
	t.Helper()
	v := models.Vote{UserID: userID, Value: value}
	target.Apply(&v.PostID, &v.CommentID)
	require.NoError(t, db.Create(&v).Error)
}

// Like inserts a raw like row.
func Like(t testing.TB, db *gorm.DB, userID uint, target models.Target) {
	t.Helper()
	l := models.Like{UserID: userID}
	target.Apply(&l.PostID, &l.CommentID)
	require.NoError(t, db.Create(&l).Error)
}
