package service

import (
	"context"
	"testing"

	"wallet_tracker/internal/model"
	"wallet_tracker/internal/repository"
	"wallet_tracker/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegister_InitialAdmin(t *testing.T) {
	users := &mockUserRepo{}
	jwtUtil := utils.NewJWTUtil("secret", 1)
	svc := NewAuthService(users, jwtUtil, "+100")
	users.On("FindByPhone", mock.Anything, "+100").Return(nil, nil)
	users.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)

	user, token, err := svc.Register(context.Background(), "+100", "password123")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, user.Role)
	assert.True(t, utils.CheckPasswordHash("password123", user.PasswordHash))

	claims, err := jwtUtil.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestRegister_Duplicates(t *testing.T) {
	users := &mockUserRepo{}
	svc := NewAuthService(users, utils.NewJWTUtil("secret", 1), "")
	users.On("FindByPhone", mock.Anything, "+1").Return(&model.User{ID: 3, Phone: "+1"}, nil)
	users.On("FindByPhone", mock.Anything, "+2").Return(nil, nil)
	users.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicatePhone)

	_, _, err := svc.Register(context.Background(), "+1", "password123")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	_, _, err = svc.Register(context.Background(), "+2", "password123")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLogin(t *testing.T) {
	users := &mockUserRepo{}
	svc := NewAuthService(users, utils.NewJWTUtil("secret", 1), "")
	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)
	users.On("FindByPhone", mock.Anything, "+1").Return(&model.User{ID: 3, Phone: "+1", PasswordHash: hash, Role: model.RoleUser}, nil)
	users.On("FindByPhone", mock.Anything, "+2").Return(nil, nil)

	user, token, err := svc.Login(context.Background(), "+1", "password123")
	require.NoError(t, err)
	assert.Equal(t, 3, user.ID)
	assert.NotEmpty(t, token)

	_, _, err = svc.Login(context.Background(), "+1", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "+2", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
