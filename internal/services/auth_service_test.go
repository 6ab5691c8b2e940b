package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"kedai/internal/apperrors"
	"kedai/internal/models"
	"kedai/internal/services"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) AddLoyaltyPoints(ctx context.Context, id string, delta int64) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

const testJWTSecret = "test_jwt_secret"

func TestAuthService_RegisterUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)
	ctx := context.Background()

	// Test successful registration
	user := &models.User{
		Username:      "testuser",
		Email:         "test@example.com",
		Password:      "password123",
		Role:          models.RoleAdmin,
		LoyaltyPoints: 500,
	}
	mockRepo.On("GetByUsername", ctx, user.Username).Return(nil, apperrors.NotFound("user", user.Username)).Once()
	mockRepo.On("GetByEmail", ctx, user.Email).Return(nil, apperrors.NotFound("user", user.Email)).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil).Once()

	err := authService.RegisterUser(ctx, user)
	assert.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Zero(t, user.LoyaltyPoints)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
	mockRepo.AssertExpectations(t)

	// Test username already taken
	mockRepo.On("GetByUsername", ctx, user.Username).Return(&models.User{ID: "1"}, nil).Once()
	err = authService.RegisterUser(ctx, user)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Contains(t, err.Error(), "username 'testuser' already taken")
	mockRepo.AssertExpectations(t)

	// Test email already registered
	mockRepo.On("GetByUsername", ctx, user.Username).Return(nil, apperrors.NotFound("user", user.Username)).Once()
	mockRepo.On("GetByEmail", ctx, user.Email).Return(&models.User{ID: "1"}, nil).Once()
	err = authService.RegisterUser(ctx, user)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Contains(t, err.Error(), "email 'test@example.com' already registered")
	mockRepo.AssertExpectations(t)
}

func TestAuthService_LoginUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)
	ctx := context.Background()

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		ID:       "user-123",
		Username: "testuser",
		Email:    "test@example.com",
		Password: string(hashedPassword),
		Role:     models.RoleAdmin,
	}

	// Test successful login
	mockRepo.On("GetByUsername", ctx, user.Username).Return(user, nil).Once()
	token, err := authService.LoginUser(ctx, "testuser", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, user.Username, claims["username"])
	assert.Equal(t, "ADMIN", claims["role"])
	mockRepo.AssertExpectations(t)

	// Test invalid credentials (wrong password)
	mockRepo.On("GetByUsername", ctx, user.Username).Return(user, nil).Once()
	_, err = authService.LoginUser(ctx, "testuser", "wrongpassword")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Contains(t, err.Error(), "invalid credentials")
	mockRepo.AssertExpectations(t)

	// Test invalid credentials (user not found)
	mockRepo.On("GetByUsername", ctx, "nonexistentuser").Return(nil, apperrors.NotFound("user", "nonexistentuser")).Once()
	_, err = authService.LoginUser(ctx, "nonexistentuser", "password123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateToken(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  "user-123",
		"username": "testuser",
		"role":     "USER",
		"exp":      jwt.TimeFunc().Add(time.Hour).Unix(),
	})
	validTokenString, _ := token.SignedString([]byte(testJWTSecret))

	// Test valid token
	identity, err := authService.ValidateToken(validTokenString)
	require.NoError(t, err)
	assert.Equal(t, "user-123", identity.UserID)
	assert.Equal(t, "testuser", identity.Username)
	assert.False(t, identity.IsAdmin())

	// Test malformed token
	_, err = authService.ValidateToken("invalid.token.string")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Contains(t, err.Error(), "invalid token")

	// Test wrong secret
	forged, _ := token.SignedString([]byte("another_secret"))
	_, err = authService.ValidateToken(forged)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	// Test expired token
	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  "user-123",
		"username": "testuser",
		"exp":      jwt.TimeFunc().Add(-time.Hour).Unix(),
	})
	expiredTokenString, _ := expiredToken.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(expiredTokenString)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Contains(t, err.Error(), "invalid token")
}

func TestAuthService_GetProfile(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)
	ctx := context.Background()

	mockRepo.On("GetByID", ctx, "user-123").Return(&models.User{ID: "user-123", LoyaltyPoints: 42}, nil).Once()
	user, err := authService.GetProfile(ctx, "user-123")
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.LoyaltyPoints)

	_, err = authService.GetProfile(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)
	ctx := context.Background()

	stored := func() *models.User {
		return &models.User{ID: "user-123", Username: "ana", Email: "ana@example.com", LoyaltyPoints: 42}
	}

	// Test successful update
	mockRepo.On("GetByID", ctx, "user-123").Return(stored(), nil).Once()
	mockRepo.On("GetByEmail", ctx, "ana@kedai.id").Return(nil, apperrors.NotFound("user", "ana@kedai.id")).Once()
	mockRepo.On("Update", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Name == "Ana" && u.Email == "ana@kedai.id" && u.Phone == "0812" && u.LoyaltyPoints == 42
	})).Return(nil).Once()

	user, err := authService.UpdateProfile(ctx, "user-123", services.ProfileUpdate{Name: " Ana ", Email: "ana@kedai.id", Phone: "0812"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.Name)
	mockRepo.AssertExpectations(t)

	// Test email owned by someone else
	mockRepo.On("GetByID", ctx, "user-123").Return(stored(), nil).Once()
	mockRepo.On("GetByEmail", ctx, "budi@example.com").Return(&models.User{ID: "user-456"}, nil).Once()
	_, err = authService.UpdateProfile(ctx, "user-123", services.ProfileUpdate{Email: "budi@example.com"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNumberOfCalls(t, "Update", 1)

	// Test unknown user
	mockRepo.On("GetByID", ctx, "ghost").Return(nil, apperrors.NotFound("user", "ghost")).Once()
	_, err = authService.UpdateProfile(ctx, "ghost", services.ProfileUpdate{Name: "Ghost"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ChangePassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("oldpassword"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := func() *models.User {
		return &models.User{ID: "user-123", Username: "ana", Password: string(hash)}
	}

	// Test wrong current password
	mockRepo.On("GetByID", ctx, "user-123").Return(stored(), nil).Once()
	err = authService.ChangePassword(ctx, "user-123", "guess", "newpassword")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Contains(t, err.Error(), "current_password")
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)

	// Test new password too short
	err = authService.ChangePassword(ctx, "user-123", "oldpassword", "123")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// Test unchanged password
	mockRepo.On("GetByID", ctx, "user-123").Return(stored(), nil).Once()
	err = authService.ChangePassword(ctx, "user-123", "oldpassword", "oldpassword")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)

	// Test successful change
	mockRepo.On("GetByID", ctx, "user-123").Return(stored(), nil).Once()
	mockRepo.On("Update", ctx, mock.MatchedBy(func(u *models.User) bool {
		return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("newpassword")) == nil
	})).Return(nil).Once()
	err = authService.ChangePassword(ctx, "user-123", "oldpassword", "newpassword")
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}
