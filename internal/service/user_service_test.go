package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type avatarStorageStub struct {
	saveFn  func(uint, string, []byte) (string, error)
	removed []string
}

func (s *avatarStorageStub) Save(userID uint, filename string, content []byte) (string, error) {
	return s.saveFn(userID, filename, content)
}

func (s *avatarStorageStub) Remove(url string) error {
	s.removed = append(s.removed, url)
	return nil
}

func TestUserService_UpdateProfile(t *testing.T) {
	t.Parallel()
	db := testutil.NewSQLiteDB(t)
	svc := NewUserService(repository.NewUserRepository(db), nil)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "profile", false)

	updated, err := svc.UpdateProfile(ctx, UpdateProfileInput{UserID: u.ID, Bio: strPtr("  hello there ")})
	require.NoError(t, err)
	assert.Equal(t, "hello there", updated.Bio)

	updated, err = svc.UpdateProfile(ctx, UpdateProfileInput{UserID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, "hello there", updated.Bio, "nil fields are left unchanged")

	_, err = svc.UpdateProfile(ctx, UpdateProfileInput{UserID: u.ID, Bio: strPtr(strings.Repeat("x", 501))})
	assertValidationError(t, err)

	_, err = svc.UpdateProfile(ctx, UpdateProfileInput{UserID: 9999, Bio: strPtr("x")})
	assertNotFoundError(t, err)
}

func TestUserService_UploadAvatar(t *testing.T) {
	t.Parallel()
	db := testutil.NewSQLiteDB(t)
	store := &avatarStorageStub{}
	svc := NewUserService(repository.NewUserRepository(db), store)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "pictured", false)

	store.saveFn = func(_ uint, _ string, _ []byte) (string, error) { return "/media/avatars/first.webp", nil }
	updated, err := svc.UploadAvatar(ctx, UploadAvatarInput{UserID: u.ID, Filename: "a.png", Content: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "/media/avatars/first.webp", updated.AvatarURL)
	assert.Empty(t, store.removed)

	store.saveFn = func(_ uint, _ string, _ []byte) (string, error) { return "/media/avatars/second.webp", nil }
	_, err = svc.UploadAvatar(ctx, UploadAvatarInput{UserID: u.ID, Filename: "b.png", Content: []byte("y")})
	require.NoError(t, err)
	assert.Equal(t, []string{"/media/avatars/first.webp"}, store.removed)

	store.saveFn = func(_ uint, _ string, _ []byte) (string, error) {
		return "", models.NewValidationError("Invalid file type. Allowed: png, jpg, jpeg, gif")
	}
	_, err = svc.UploadAvatar(ctx, UploadAvatarInput{UserID: u.ID, Filename: "c.bmp", Content: []byte("z")})
	assertValidationError(t, err)

	var stored models.User
	require.NoError(t, db.First(&stored, u.ID).Error)
	assert.Equal(t, "/media/avatars/second.webp", stored.AvatarURL)
}

func TestUserService_AdminRole(t *testing.T) {
	t.Parallel()
	db := testutil.NewSQLiteDB(t)
	svc := NewUserService(repository.NewUserRepository(db), nil)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "promoted", false)

	isAdmin, err := svc.IsAdmin(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	_, err = svc.SetAdmin(ctx, u.ID, true)
	require.NoError(t, err)
	isAdmin, err = svc.IsAdmin(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	admins, err := svc.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, u.ID, admins[0].ID)

	isAdmin, err = svc.IsAdmin(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestActor(t *testing.T) {
	t.Parallel()
	owner := Actor{ID: 1}
	stranger := Actor{ID: 2}
	anon := Actor{}
	admin := Actor{ID: 3, IsAdmin: true}

	assert.True(t, owner.CanSee(1, false))
	assert.False(t, stranger.CanSee(1, false))
	assert.False(t, anon.CanSee(0, false), "anonymous never owns content")
	assert.True(t, anon.CanSee(1, true))
	assert.True(t, admin.CanSee(1, false))

	assert.True(t, owner.CanModify(1))
	assert.False(t, stranger.CanModify(1))
	assert.True(t, admin.CanModify(1))

	_, err := resolveActor(context.Background(), failingAdminCheck, 1)
	assert.True(t, errors.Is(err, errStore))
}
