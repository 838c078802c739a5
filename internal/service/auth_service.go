package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet_tracker/internal/logger"
	"wallet_tracker/internal/model"
	"wallet_tracker/internal/repository"
	"wallet_tracker/internal/utils"
)

var (
	ErrUserAlreadyExists  = errors.New("user with this phone number already exists")
	ErrInvalidCredentials = errors.New("invalid phone or password")
)

// AuthService registers wallet owners and issues their access tokens
type AuthService interface {
	Register(ctx context.Context, phone, password string) (*model.User, string, error)
	Login(ctx context.Context, phone, password string) (*model.User, string, error)
}

type authService struct {
	users      repository.UserRepository
	tokens     *utils.JWTUtil
	adminPhone string
}

// NewAuthService creates a new AuthService. A user registering with
// adminPhone becomes an admin.
func NewAuthService(users repository.UserRepository, tokens *utils.JWTUtil, adminPhone string) AuthService {
	return &authService{users: users, tokens: tokens, adminPhone: strings.TrimSpace(adminPhone)}
}

func (s *authService) Register(ctx context.Context, phone, password string) (*model.User, string, error) {
	phone = strings.TrimSpace(phone)

	existing, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		return nil, "", fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, "", ErrUserAlreadyExists
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	user := &model.User{Phone: phone, PasswordHash: hash, Role: model.RoleUser, CreatedAt: time.Now()}
	if s.adminPhone != "" && phone == s.adminPhone {
		user.Role = model.RoleAdmin
	}

	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent sign-up can win between the lookup and the insert.
		if errors.Is(err, repository.ErrDuplicatePhone) {
			return nil, "", ErrUserAlreadyExists
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}
	logger.FromContext(ctx).Info().Int("user_id", user.ID).Str("role", user.Role).Msg("user registered")

	token, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return user, "", fmt.Errorf("user created, token not issued: %w", err)
	}
	return user, token, nil
}

func (s *authService) Login(ctx context.Context, phone, password string) (*model.User, string, error) {
	user, err := s.users.FindByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return nil, "", fmt.Errorf("find user by phone: %w", err)
	}
	if user == nil || !utils.CheckPasswordHash(password, user.PasswordHash) {
		logger.FromContext(ctx).Debug().Msg("login rejected")
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}
