package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modelfactory/portal/internal/domain"
	"github.com/modelfactory/portal/internal/repository"
	"github.com/modelfactory/portal/pkg/jwt"
	"github.com/modelfactory/portal/pkg/logger"
)

// AuthService handles signup, login and profile lookup
type AuthService interface {
	Signup(ctx context.Context, req *domain.SignupRequest) (*domain.AuthResponse, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error)
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error)
}

type authService struct {
	userRepo   repository.UserRepository
	jwtManager *jwt.Manager
}

func NewAuthService(userRepo repository.UserRepository, jwtManager *jwt.Manager) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
	}
}

func (s *authService) Signup(ctx context.Context, req *domain.SignupRequest) (*domain.AuthResponse, error) {
	logger.Log.Info("Processing signup", zap.String("email", req.Email))

	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		logger.Log.Error("Failed to check email existence", zap.Error(err))
		return nil, err
	}
	if exists {
		logger.Log.Warn("Email already registered", zap.String("email", req.Email))
		return nil, ErrUserAlreadyExists
	}

	user := &domain.User{
		Name:  req.Name,
		Email: req.Email,
	}
	if err := user.SetPassword(req.Password); err != nil {
		logger.Log.Error("Failed to hash password", zap.Error(err))
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	logger.Log.Info("User signed up", zap.String("user_id", user.ID.String()))
	return s.generateAuthResponse(user)
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.CheckPassword(req.Password) {
		logger.Log.Warn("Invalid password attempt", zap.String("email", req.Email))
		return nil, ErrInvalidCredentials
	}

	logger.Log.Info("User logged in", zap.String("user_id", user.ID.String()))
	return s.generateAuthResponse(user)
}

func (s *authService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.ToProfile(), nil
}

func (s *authService) generateAuthResponse(user *domain.User) (*domain.AuthResponse, error) {
	token, expiresAt, err := s.jwtManager.GenerateAccessToken(user.ID.String(), user.Email, user.Name)
	if err != nil {
		logger.Log.Error("Failed to generate access token", zap.Error(err))
		return nil, err
	}

	return &domain.AuthResponse{
		User:        user.ToProfile(),
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, nil
}
