package service

import (
	"context"
	"fmt"
	"log/slog"

	"notevault-server/internal/apperror"
	"notevault-server/internal/domain"
	"notevault-server/internal/repository"
	"notevault-server/pkg/hash"
)

type UserService struct {
	userRepo repository.UserRepository
	logger   *slog.Logger
}

func NewUserService(userRepo repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

func (s *UserService) Get(ctx context.Context, userID int64) (*domain.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *domain.UpdateProfileRequest) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = *req.Email
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", slog.Int64("user_id", user.ID))

	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID int64, req *domain.ChangePasswordRequest) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := hash.Compare(user.PasswordHash, req.CurrentPassword); err != nil {
		return apperror.Unauthorized("current password is incorrect")
	}

	hashedPassword, err := hash.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hashedPassword

	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	s.logger.Info("password changed", slog.Int64("user_id", user.ID))

	return nil
}
