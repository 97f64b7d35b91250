package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"notevault-server/internal/apperror"
	"notevault-server/internal/domain"
	"notevault-server/internal/repository"
	"notevault-server/pkg/hash"
	"notevault-server/pkg/jwt"
)

type AuthService struct {
	userRepo      repository.UserRepository
	jwtSecret     string
	jwtExpiration time.Duration
	logger        *slog.Logger
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, jwtExp time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExp,
		logger:        logger,
	}
}

func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	hashedPassword, err := hash.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hashedPassword,
	}

	// A duplicate email surfaces from the store as a conflict.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.Int64("user_id", user.ID))

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		// Unknown email and wrong password are indistinguishable to the caller.
		return nil, apperror.Unauthorized("invalid credentials")
	}

	if err := hash.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, apperror.Unauthorized("invalid credentials")
	}

	token, err := jwt.GenerateToken(user.ID, s.jwtExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &domain.LoginResponse{
		User:        user,
		AccessToken: token,
		ExpiresIn:   int64(s.jwtExpiration.Seconds()),
	}, nil
}

// ResolveToken verifies the token and re-resolves the referenced user. A
// syntactically valid token for a user that no longer exists is rejected.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := jwt.ValidateToken(token, s.jwtSecret)
	if err != nil {
		return nil, apperror.Unauthorized("invalid or expired token")
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperror.Unauthorized("user not found")
	}

	return user, nil
}
