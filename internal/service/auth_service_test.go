package service

import (
	"context"
	"testing"
	"time"

	"github.com/yourorg/learning-platform/internal/config"
	"github.com/yourorg/learning-platform/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if u, _ := args.Get(0).(*model.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*model.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func authConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:            "test-secret",
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 7 * 24 * time.Hour,
		},
	}
}

func activeUser(password string) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return &model.User{
		ID:           uuid.New(),
		Email:        "student@example.com",
		PasswordHash: string(hash),
		Role:         model.RoleStudent,
		IsActive:     true,
	}
}

func TestLoginIssuesValidatableToken(t *testing.T) {
	repo := &mockUserStore{}
	svc := NewAuthService(repo, authConfig(), zap.NewNop())

	user := activeUser("s3cret")
	repo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	resp, err := svc.Login(context.Background(), &model.UserLogin{Email: user.Email, Password: "s3cret"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)

	userID, role, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.Equal(t, model.RoleStudent, role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	repo := &mockUserStore{}
	svc := NewAuthService(repo, authConfig(), zap.NewNop())

	user := activeUser("s3cret")
	repo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	_, err := svc.Login(context.Background(), &model.UserLogin{Email: user.Email, Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	repo := &mockUserStore{}
	svc := NewAuthService(repo, authConfig(), zap.NewNop())

	repo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, nil)

	_, err := svc.Login(context.Background(), &model.UserLogin{Email: "ghost@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	repo := &mockUserStore{}
	svc := NewAuthService(repo, authConfig(), zap.NewNop())

	user := activeUser("s3cret")
	user.IsActive = false
	repo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	_, err := svc.Login(context.Background(), &model.UserLogin{Email: user.Email, Password: "s3cret"})
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

// A refresh token must not pass where an access token is expected: the
// live channel and the REST API both authenticate with access tokens only.
func TestValidateTokenRejectsRefreshToken(t *testing.T) {
	repo := &mockUserStore{}
	svc := NewAuthService(repo, authConfig(), zap.NewNop())

	user := activeUser("s3cret")
	repo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	resp, err := svc.Login(context.Background(), &model.UserLogin{Email: user.Email, Password: "s3cret"})
	require.NoError(t, err)

	_, _, err = svc.ValidateToken(resp.RefreshToken)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	repo := &mockUserStore{}
	svc := NewAuthService(repo, authConfig(), zap.NewNop())

	_, _, err := svc.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}

func TestRefreshTokenRotatesPair(t *testing.T) {
	repo := &mockUserStore{}
	svc := NewAuthService(repo, authConfig(), zap.NewNop())

	user := activeUser("s3cret")
	repo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
	repo.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	login, err := svc.Login(context.Background(), &model.UserLogin{Email: user.Email, Password: "s3cret"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)

	userID, _, err := svc.ValidateToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}
