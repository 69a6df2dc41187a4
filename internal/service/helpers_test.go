package service

import (
	"context"
	"errors"
	"testing"

	"agora/internal/featureflags"
	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

// assertUnauthorizedError asserts that err is an AppError with code UNAUTHORIZED.
func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}

func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeForbidden)
}

// contentEnv wires the content services to one SQLite database.
type contentEnv struct {
	db         *gorm.DB
	users      *UserService
	posts      *PostService
	comments   *CommentService
	engagement *EngagementService
	moderation *ModerationService
}

func newContentEnv(t *testing.T, flags string) *contentEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	users := NewUserService(userRepo, nil)
	return &contentEnv{
		db:       db,
		users:    users,
		posts:    NewPostService(postRepo, users.IsAdmin),
		comments: NewCommentService(commentRepo, postRepo, users.IsAdmin),
		engagement: NewEngagementService(
			repository.NewEngagementRepository(db),
			postRepo,
			commentRepo,
			featureflags.NewManager(flags),
			users.IsAdmin,
		),
		moderation: NewModerationService(repository.NewModerationRepository(db), postRepo, commentRepo, userRepo),
	}
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func uintPtr(u uint) *uint { return &u }

var errStore = errors.New("store unavailable")

func failingAdminCheck(_ context.Context, _ uint) (bool, error) {
	return false, errStore
}
