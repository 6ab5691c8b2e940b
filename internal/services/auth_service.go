package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"

	"kedai/internal/apperrors"
	"kedai/internal/models"
	"kedai/internal/repositories"
)

// ErrInvalidCredentials hides whether the username or the password was wrong.
var ErrInvalidCredentials = errors.Wrap(apperrors.ErrUnauthorized, "invalid credentials")

const minPasswordLength = 6

// Identity is the caller resolved from a token.
type Identity struct {
	UserID   string
	Username string
	Role     models.Role
}

// IsAdmin reports whether the caller has the admin role.
func (i Identity) IsAdmin() bool { return i.Role == models.RoleAdmin }

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo   repositories.UserRepository
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: ttl,
	}
}

// RegisterUser registers a new user, hashes their password, and saves them to the database.
// New users always get the USER role.
func (s *AuthService) RegisterUser(ctx context.Context, user *models.User) error {
	if err := s.ensureFree(ctx, user); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	user.Password = string(hashedPassword)
	user.Role = models.RoleUser
	user.LoyaltyPoints = 0

	if err := s.userRepo.Create(ctx, user); err != nil {
		return errors.Wrap(err, "register user")
	}
	return nil
}

func (s *AuthService) ensureFree(ctx context.Context, user *models.User) error {
	existing, err := s.userRepo.GetByUsername(ctx, user.Username)
	switch {
	case err == nil && existing != nil:
		return apperrors.Conflict("username '%s' already taken", user.Username)
	case err != nil && !errors.Is(err, apperrors.ErrNotFound):
		return err
	}

	existing, err = s.userRepo.GetByEmail(ctx, user.Email)
	switch {
	case err == nil && existing != nil:
		return apperrors.Conflict("email '%s' already registered", user.Email)
	case err != nil && !errors.Is(err, apperrors.ErrNotFound):
		return err
	}
	return nil
}

// LoginUser authenticates a user and returns a JWT token if successful.
func (s *AuthService) LoginUser(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     string(user.Role),
		"exp":      now.Add(s.tokenDurat).Unix(),
		"iat":      now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the caller identity.
func (s *AuthService) ValidateToken(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrUnauthorized, fmt.Sprintf("invalid token: %v", err))
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.Wrap(apperrors.ErrUnauthorized, "invalid token")
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, errors.Wrap(apperrors.ErrUnauthorized, "invalid token: missing user_id")
	}
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	return &Identity{UserID: userID, Username: username, Role: models.Role(role)}, nil
}

// GetProfile returns the user, including the loyalty balance.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, apperrors.Invalid("user_id", "is required")
	}
	return s.userRepo.GetByID(ctx, userID)
}

// ProfileUpdate holds the editable profile fields. Empty fields are left
// unchanged.
type ProfileUpdate struct {
	Name  string
	Email string
	Phone string
}

// UpdateProfile changes the caller's name, email or phone. A new email must
// not belong to another user.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*models.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		user.Name = name
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		user.Phone = phone
	}
	if email := strings.TrimSpace(in.Email); email != "" && email != user.Email {
		existing, err := s.userRepo.GetByEmail(ctx, email)
		switch {
		case err == nil && existing != nil && existing.ID != user.ID:
			return nil, apperrors.Conflict("email '%s' already registered", email)
		case err != nil && !errors.Is(err, apperrors.ErrNotFound):
			return nil, err
		}
		user.Email = email
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, errors.Wrap(err, "update profile")
	}
	return user, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperrors.Invalid("new_password", "must be at least %d characters", minPasswordLength)
	}
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(currentPassword)); err != nil {
		return apperrors.Invalid("current_password", "is incorrect")
	}
	if currentPassword == newPassword {
		return apperrors.Invalid("new_password", "must differ from the current password")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	user.Password = string(hashedPassword)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return errors.Wrap(err, "change password")
	}
	return nil
}
