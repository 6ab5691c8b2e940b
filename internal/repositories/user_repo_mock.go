package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"kedai/internal/apperrors"
	"kedai/internal/models"
)

// MockUserRepository is an in-memory implementation of UserRepository.
type MockUserRepository struct {
	s *MemoryStore
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository(store *MemoryStore) *MockUserRepository {
	return &MockUserRepository{s: store}
}

// Create adds a new user. Username and email are unique.
func (r *MockUserRepository) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return apperrors.Conflict("user %s already exists", user.Username)
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	return nil
}

// GetByUsername returns the user with username.
func (r *MockUserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(username, func(u models.User) bool { return u.Username == username })
}

// GetByEmail returns the user with email.
func (r *MockUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(email, func(u models.User) bool { return u.Email == email })
}

// GetByID returns the user with id.
func (r *MockUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	return &u, nil
}

// Update writes the profile fields and password, keeping the balance.
func (r *MockUserRepository) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.users[user.ID]
	if !ok {
		return apperrors.NotFound("user", user.ID)
	}
	for id, u := range r.s.users {
		if id != user.ID && u.Email == user.Email {
			return apperrors.Conflict("email '%s' already registered", user.Email)
		}
	}
	stored.Name = user.Name
	stored.Email = user.Email
	stored.Phone = user.Phone
	stored.Password = user.Password
	stored.UpdatedAt = time.Now()
	r.s.users[user.ID] = stored
	return nil
}

// AddLoyaltyPoints adds delta to the user's balance.
func (r *MockUserRepository) AddLoyaltyPoints(_ context.Context, id string, delta int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.addPointsLocked(id, delta)
}

func (r *MockUserRepository) find(key string, match func(models.User) bool) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, apperrors.NotFound("user", key)
}

func (s *MemoryStore) addPointsLocked(id string, delta int64) error {
	u, ok := s.users[id]
	if !ok {
		return apperrors.NotFound("user", id)
	}
	u.LoyaltyPoints += delta
	u.UpdatedAt = time.Now()
	s.users[id] = u
	return nil
}
