package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"agora/internal/models"
	"agora/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		userID       uint
		mockBehavior func()
		expectedUser *models.User
		expectedCode string
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "username", "email"}).
					AddRow(1, "testuser", "test@example.com")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			expectedUser: &models.User{ID: 1, Username: "testuser", Email: "test@example.com"},
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(99, 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			expectedCode: models.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.expectedCode != "" {
				assert.True(t, models.IsCode(err, tt.expectedCode))
			} else if assert.NotNil(t, user) {
				assert.Equal(t, tt.expectedUser.Username, user.Username)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_CreateConflicts(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "alice", Email: "Alice@Example.com", Password: "x"}))

	err := repo.Create(ctx, &models.User{Username: "alice", Email: "other@example.com", Password: "x"})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConflict))
	assert.Equal(t, "Username already exists", err.Error())

	err = repo.Create(ctx, &models.User{Username: "alice2", Email: "ALICE@example.COM", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, "Email already exists", err.Error())
}

func TestUserRepository_GetByEmailIsCaseInsensitive(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	created := testutil.CreateUser(t, db, "bob", false)

	found, err := repo.GetByEmail(ctx, "  BOB@Example.com ")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_FlagsAndLogin(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "carol", false)

	require.NoError(t, repo.SetBlocked(ctx, u.ID, true))
	require.NoError(t, repo.SetAdmin(ctx, u.ID, true))
	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateLastLogin(ctx, u.ID, at))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsBlocked)
	assert.True(t, got.IsAdmin)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, got.LastLoginAt.Equal(at))

	admins, err := repo.ListAdmins(ctx)
	require.NoError(t, err)
	assert.Len(t, admins, 1)

	err = repo.SetBlocked(ctx, 999, true)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner", false)
	other := testutil.CreateUser(t, db, "other", false)

	ownPost := testutil.CreatePost(t, db, owner.ID, "mine", true)
	otherPost := testutil.CreatePost(t, db, other.ID, "theirs", true)
	onOwn := testutil.CreateComment(t, db, other.ID, ownPost.ID, nil, true)
	ownComment := testutil.CreateComment(t, db, owner.ID, otherPost.ID, nil, true)
	reply := testutil.CreateComment(t, db, other.ID, otherPost.ID, &ownComment.ID, true)
	testutil.Vote(t, db, owner.ID, models.PostTarget(otherPost.ID), models.VoteUp)
	testutil.Like(t, db, other.ID, models.PostTarget(ownPost.ID))
	testutil.Like(t, db, other.ID, models.CommentTarget(reply.ID))

	require.NoError(t, repo.Delete(ctx, owner.ID))

	var n int64
	db.Model(&models.Post{}).Where("id = ?", ownPost.ID).Count(&n)
	assert.Zero(t, n)
	db.Model(&models.Comment{}).Where("id IN ?", []uint{onOwn.ID, ownComment.ID, reply.ID}).Count(&n)
	assert.Zero(t, n, "comments on the user's posts and replies to the user's comments go too")
	db.Model(&models.Vote{}).Count(&n)
	assert.Zero(t, n)
	db.Model(&models.Like{}).Count(&n)
	assert.Zero(t, n)
	db.Model(&models.Post{}).Where("id = ?", otherPost.ID).Count(&n)
	assert.Equal(t, int64(1), n)

	err := repo.Delete(ctx, owner.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
