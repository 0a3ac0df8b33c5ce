package auth

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/itemsapi/internal/common"
	"github.com/dmitrijs2005/itemsapi/internal/server/models"
)

// memStore is an in-memory UserStore counting the lookups it serves.
type memStore struct {
	mu      sync.Mutex
	users   map[int64]*models.User
	nextID  int64
	err     error
	byLogin int
	byID    int
}

func newMemStore() *memStore {
	return &memStore{users: map[int64]*models.User{}, nextID: 1}
}

func (s *memStore) add(u models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.nextID
	s.nextID++
	s.users[u.ID] = &u
	return &u
}

func (s *memStore) remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

func (s *memStore) GetUserByLogin(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byLogin++
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (s *memStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID++
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}
