package service

import (
	"context"
	"strings"
	"time"

	"agora/internal/mail"
	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// AuthService owns registration, credential checks and session tokens.
type AuthService struct {
	userRepo    repository.UserRepository
	revokedRepo repository.RevokedTokenRepository
	tokens      *TokenService
	mailer      mail.Mailer
	bcryptCost  int
	now         func() time.Time
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AuthResult is returned by register, login and refresh.
type AuthResult struct {
	*TokenPair
	User *models.User `json:"user"`
}

// LogoutInput carries the presented access token claims and an optional
// refresh token to revoke alongside it.
type LogoutInput struct {
	Access       *Claims
	RefreshToken string
}

func NewAuthService(
	userRepo repository.UserRepository,
	revokedRepo repository.RevokedTokenRepository,
	tokens *TokenService,
	mailer mail.Mailer,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		revokedRepo: revokedRepo,
		tokens:      tokens,
		mailer:      mailer,
		bcryptCost:  bcrypt.DefaultCost,
		now:         time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := validation.NormalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, models.NewValidationError("Username, email, and password are required")
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Email already exists")
	}
	existing, err = s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Username already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	// A concurrent registration can still win the race; the repository maps
	// the unique violation to the same conflict messages.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(user.ID, true)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	if s.mailer != nil {
		s.mailer.SendWelcome(ctx, user.Email, user.Username)
	}
	return &AuthResult{TokenPair: pair, User: user}, nil
}

// Login accepts a username or, when the identifier contains "@", an email.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, models.NewValidationError("Identifier and password are required")
	}

	var (
		user *models.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.userRepo.GetByEmail(ctx, validation.NormalizeEmail(identifier))
	} else {
		user, err = s.userRepo.GetByUsername(ctx, identifier)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	// Status is only revealed once the caller has proven the password.
	if err := CheckAccountStatus(user); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	pair, err := s.tokens.IssuePair(user.ID, true)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{TokenPair: pair, User: user}, nil
}

// Refresh redeems a refresh token once and hands out a rotated pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, models.NewValidationError("refresh_token is required")
	}
	claims, err := s.tokens.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	userID, _ := claims.UserID()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError("Invalid or expired token")
		}
		return nil, err
	}
	if err := CheckAccountStatus(user); err != nil {
		return nil, err
	}

	consumed, err := s.revokedRepo.Consume(ctx, claims.ID, userID, claims.ExpiresAtTime())
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, models.NewUnauthorizedError("Token has been revoked")
	}

	pair, err := s.tokens.IssuePair(userID, false)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{TokenPair: pair, User: user}, nil
}

// Logout revokes the presented access token and, when given, a refresh token
// belonging to the same user. A foreign or malformed refresh token is ignored.
func (s *AuthService) Logout(ctx context.Context, in LogoutInput) error {
	if in.Access == nil {
		return models.NewUnauthorizedError("Invalid or expired token")
	}
	userID, err := in.Access.UserID()
	if err != nil {
		return models.NewUnauthorizedError("Invalid or expired token")
	}
	if err := s.revokedRepo.Revoke(ctx, in.Access.ID, userID, in.Access.ExpiresAtTime()); err != nil {
		return err
	}

	if strings.TrimSpace(in.RefreshToken) == "" {
		return nil
	}
	refresh, err := s.tokens.Parse(in.RefreshToken, TokenTypeRefresh)
	if err != nil {
		return nil
	}
	if owner, _ := refresh.UserID(); owner != userID {
		return nil
	}
	return s.revokedRepo.Revoke(ctx, refresh.ID, userID, refresh.ExpiresAtTime())
}

// Authenticate resolves a bearer access token to an active, non-revoked user.
// It is what the HTTP gate runs on every protected request.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, *Claims, error) {
	claims, err := s.tokens.Parse(accessToken, TokenTypeAccess)
	if err != nil {
		return nil, nil, err
	}
	revoked, err := s.revokedRepo.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, err
	}
	if revoked {
		return nil, nil, models.NewUnauthorizedError("Token has been revoked")
	}

	userID, _ := claims.UserID()
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, nil, models.NewUnauthorizedError("Invalid or expired token")
		}
		return nil, nil, err
	}
	if err := CheckAccountStatus(user); err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

func (s *AuthService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// CheckAccountStatus rejects blocked accounts first, then inactive ones.
func CheckAccountStatus(user *models.User) error {
	if user == nil {
		return models.NewUnauthorizedError("Invalid or expired token")
	}
	if user.IsBlocked {
		return models.NewForbiddenError(models.MsgAccountBlocked)
	}
	if !user.IsActive {
		return models.NewForbiddenError("Account is inactive")
	}
	return nil
}
