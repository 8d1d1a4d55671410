package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/civilregistry/backend/internal/apperror"
	"github.com/civilregistry/backend/internal/models"
)

// UserStore is an in-memory storage.UserStore
type UserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*models.User
}

// NewUserStore creates an empty UserStore
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[uuid.UUID]*models.User)}
}

func (s *UserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return apperror.Conflict("User already exists")
		}
	}
	stamp(&user.Base, time.Now())
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *UserStore) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, apperror.NotFound("User not found")
	}
	return cloneUser(user), nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return cloneUser(user), nil
		}
	}
	return nil, apperror.NotFound("User not found")
}

func (s *UserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return apperror.NotFound("User not found")
	}
	user.UpdatedAt = time.Now()
	s.users[user.ID] = cloneUser(user)
	return nil
}
