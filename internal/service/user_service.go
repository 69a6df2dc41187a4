package service

import (
	"context"
	"errors"
	"log/slog"

	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/validation"
)

// AvatarStorage persists avatar uploads and returns their public URL.
type AvatarStorage interface {
	Save(userID uint, filename string, content []byte) (string, error)
	Remove(url string) error
}

type UserService struct {
	userRepo repository.UserRepository
	avatars  AvatarStorage
}

// UpdateProfileInput carries a partial profile update; nil fields are left
// unchanged.
type UpdateProfileInput struct {
	UserID uint
	Bio    *string
}

type UploadAvatarInput struct {
	UserID   uint
	Filename string
	Content  []byte
}

func NewUserService(userRepo repository.UserRepository, avatars AvatarStorage) *UserService {
	return &UserService{userRepo: userRepo, avatars: avatars}
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// IsAdmin is the AdminChecker handed to the content services.
func (s *UserService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Bio != nil {
		bio, err := validation.ValidateBio(*in.Bio)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Bio = bio
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UploadAvatar stores the new picture, points the profile at it and removes
// the previous one. A failed cleanup is only logged.
func (s *UserService) UploadAvatar(ctx context.Context, in UploadAvatarInput) (*models.User, error) {
	if s.avatars == nil {
		return nil, models.NewInternalError(errors.New("avatar storage not configured"))
	}
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	url, err := s.avatars.Save(in.UserID, in.Filename, in.Content)
	if err != nil {
		return nil, err
	}

	previous := user.AvatarURL
	user.AvatarURL = url
	if err := s.userRepo.Update(ctx, user); err != nil {
		_ = s.avatars.Remove(url)
		return nil, err
	}

	if previous != "" && previous != url {
		if err := s.avatars.Remove(previous); err != nil {
			middleware.Logger.WarnContext(ctx, "Failed to remove previous avatar",
				slog.Uint64("user_id", uint64(in.UserID)),
				slog.String("error", err.Error()),
			)
		}
	}
	return user, nil
}

// SetAdmin grants or revokes the admin role.
func (s *UserService) SetAdmin(ctx context.Context, targetID uint, isAdmin bool) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.SetAdmin(ctx, targetID, isAdmin); err != nil {
		return nil, err
	}
	user.IsAdmin = isAdmin
	return user, nil
}

func (s *UserService) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListAdmins(ctx)
}
