package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type mailerStub struct {
	mu   sync.Mutex
	sent []string
}

func (m *mailerStub) SendWelcome(_ context.Context, to, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
}

func newAuthServiceForTest(t *testing.T) (*AuthService, *gorm.DB, *mailerStub) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	mailer := &mailerStub{}
	svc := NewAuthService(
		repository.NewUserRepository(db),
		repository.NewRevokedTokenRepository(db),
		NewTokenService("test-secret-test-secret-test-secret", time.Hour, 24*time.Hour),
		mailer,
	)
	svc.bcryptCost = bcrypt.MinCost
	return svc, db, mailer
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, models.IsCode(err, code), "expected %s, got %v", code, err)
}

func TestAuthService_Register(t *testing.T) {
	t.Parallel()
	svc, _, mailer := newAuthServiceForTest(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Username: "alice_1", Email: "Alice@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.True(t, res.User.IsActive)
	assert.False(t, res.User.IsAdmin)
	assert.Equal(t, []string{"alice@example.com"}, mailer.sent)

	claims, err := svc.tokens.Parse(res.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	assert.True(t, claims.Fresh)

	_, err = svc.Register(ctx, RegisterInput{Username: "other", Email: "ALICE@example.com", Password: "secret1"})
	assertAppErrorCode(t, err, models.CodeConflict)
	assert.Contains(t, err.Error(), "Email already exists")

	_, err = svc.Register(ctx, RegisterInput{Username: "alice_1", Email: "new@example.com", Password: "secret1"})
	assertAppErrorCode(t, err, models.CodeConflict)
	assert.Contains(t, err.Error(), "Username already exists")
}

func TestAuthService_Register_Validation(t *testing.T) {
	t.Parallel()
	svc, _, mailer := newAuthServiceForTest(t)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"missing fields", RegisterInput{Username: "bob"}},
		{"short username", RegisterInput{Username: "ab", Email: "ab@example.com", Password: "secret1"}},
		{"bad username chars", RegisterInput{Username: "bob!", Email: "b@example.com", Password: "secret1"}},
		{"bad email", RegisterInput{Username: "bob", Email: "bob@", Password: "secret1"}},
		{"short password", RegisterInput{Username: "bob", Email: "bob@example.com", Password: "12345"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.in)
			assertValidationError(t, err)
		})
	}
	assert.Empty(t, mailer.sent)
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()
	svc, db, _ := newAuthServiceForTest(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "carol", false)

	byName, err := svc.Login(ctx, "carol", testutil.TestPassword)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.User.ID)
	require.NotNil(t, byName.User.LastLoginAt)

	byEmail, err := svc.Login(ctx, "CAROL@example.com", testutil.TestPassword)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.User.ID)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.NotNil(t, stored.LastLoginAt)

	_, err = svc.Login(ctx, "carol", "wrong-password")
	assertUnauthorizedError(t, err)
	assert.Contains(t, err.Error(), "Invalid credentials")

	_, err = svc.Login(ctx, "nobody", testutil.TestPassword)
	assertUnauthorizedError(t, err)
	assert.Contains(t, err.Error(), "Invalid credentials")
}

func TestAuthService_Login_AccountStatus(t *testing.T) {
	t.Parallel()
	svc, db, _ := newAuthServiceForTest(t)
	ctx := context.Background()

	blocked := testutil.CreateUser(t, db, "blocked", false)
	require.NoError(t, db.Model(blocked).Update("is_blocked", true).Error)
	inactive := testutil.CreateUser(t, db, "inactive", false)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)

	_, err := svc.Login(ctx, "blocked", "wrong-password")
	assertUnauthorizedError(t, err)

	_, err = svc.Login(ctx, "blocked", testutil.TestPassword)
	assertAppErrorCode(t, err, models.CodeForbidden)
	assert.Equal(t, models.MsgAccountBlocked, err.Error())

	_, err = svc.Login(ctx, "inactive", testutil.TestPassword)
	assertAppErrorCode(t, err, models.CodeForbidden)
	assert.Equal(t, "Account is inactive", err.Error())
}

func TestAuthService_RefreshRotates(t *testing.T) {
	t.Parallel()
	svc, db, _ := newAuthServiceForTest(t)
	ctx := context.Background()
	testutil.CreateUser(t, db, "dave", false)

	login, err := svc.Login(ctx, "dave", testutil.TestPassword)
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	claims, err := svc.tokens.Parse(refreshed.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	assert.False(t, claims.Fresh)

	_, err = svc.Refresh(ctx, login.RefreshToken)
	assertUnauthorizedError(t, err)

	_, err = svc.Refresh(ctx, login.AccessToken)
	assertUnauthorizedError(t, err)
}

func TestAuthService_RefreshRejectsBlocked(t *testing.T) {
	t.Parallel()
	svc, db, _ := newAuthServiceForTest(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "erin", false)

	login, err := svc.Login(ctx, "erin", testutil.TestPassword)
	require.NoError(t, err)
	require.NoError(t, db.Model(user).Update("is_blocked", true).Error)

	_, err = svc.Refresh(ctx, login.RefreshToken)
	assertAppErrorCode(t, err, models.CodeForbidden)
}

func TestAuthService_LogoutRevokes(t *testing.T) {
	t.Parallel()
	svc, db, _ := newAuthServiceForTest(t)
	ctx := context.Background()
	testutil.CreateUser(t, db, "frank", false)

	login, err := svc.Login(ctx, "frank", testutil.TestPassword)
	require.NoError(t, err)

	_, claims, err := svc.Authenticate(ctx, login.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, LogoutInput{Access: claims, RefreshToken: login.RefreshToken}))

	_, _, err = svc.Authenticate(ctx, login.AccessToken)
	assertUnauthorizedError(t, err)

	_, err = svc.Refresh(ctx, login.RefreshToken)
	assertUnauthorizedError(t, err)
}

func TestAuthService_AuthenticateChecksStatus(t *testing.T) {
	t.Parallel()
	svc, db, _ := newAuthServiceForTest(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "gina", false)

	login, err := svc.Login(ctx, "gina", testutil.TestPassword)
	require.NoError(t, err)

	require.NoError(t, db.Model(user).Update("is_active", false).Error)
	_, _, err = svc.Authenticate(ctx, login.AccessToken)
	assertAppErrorCode(t, err, models.CodeForbidden)

	require.NoError(t, db.Model(user).Update("is_blocked", true).Error)
	_, _, err = svc.Authenticate(ctx, login.AccessToken)
	assertAppErrorCode(t, err, models.CodeForbidden)
	assert.Equal(t, models.MsgAccountBlocked, err.Error())

	_, _, err = svc.Authenticate(ctx, "not-a-token")
	assertUnauthorizedError(t, err)
}
