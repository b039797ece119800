package memory

import (
	"context"
	"sync"

	"quizroom-service/internal/domain"
)

// UserStore is a static in-memory implementation of app.UserStore, useful
// for tests and demo deployments without a user database.
type UserStore struct {
	mu    sync.RWMutex
	users map[int64]domain.User
}

func NewUserStore(users map[int64]domain.User) *UserStore {
	if users == nil {
		users = make(map[int64]domain.User)
	}
	return &UserStore{users: users}
}

func (s *UserStore) GetUser(_ context.Context, userID int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[userID]; ok {
		return user, nil
	}
	return domain.User{}, domain.ErrUserNotFound
}

// Put registers or replaces a user.
func (s *UserStore) Put(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}
