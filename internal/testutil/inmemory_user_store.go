package testutil

import (
	"context"
	"sync"

	"github.com/policlinic/backoffice/internal/domain/user"
	ierr "github.com/policlinic/backoffice/internal/errors"
)

var _ user.Directory = (*InMemoryUserStore)(nil)

// InMemoryUserStore implements user.Directory
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*user.User
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		users: make(map[string]*user.User),
	}
}

func (s *InMemoryUserStore) AddUser(u *user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *u
	s.users[u.ID] = &c
}

func (s *InMemoryUserStore) Get(_ context.Context, id string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ierr.NewError("user not found").
			WithHintf("User %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	c := *u
	return &c, nil
}

func (s *InMemoryUserStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]*user.User)
}
