package repository

import (
	"context"
	"database/sql"
	"fmt"
	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"
	"sort"
	"sync"
)

// MemoryUserStore is a thread-safe in-memory UserRepository and RoleRepository
// for tests and local runs. Transactions are ignored.
type MemoryUserStore struct {
	mu        sync.RWMutex
	users     map[string]*model.User // by id
	roles     map[string]*model.Role // by id
	userRoles map[string]map[string]bool
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users:     make(map[string]*model.User),
		roles:     make(map[string]*model.Role),
		userRoles: make(map[string]map[string]bool),
	}
}

// Roles returns a RoleRepository view of the same store.
func (s *MemoryUserStore) Roles() RoleRepository {
	return memoryRoles{s}
}

func (s *MemoryUserStore) Create(_ context.Context, _ *sql.Tx, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
	}
	cp := *user
	cp.Roles = nil
	s.users[user.ID] = &cp
	s.userRoles[user.ID] = make(map[string]bool)
	return nil
}

// Delete removes a user. Only used by callers simulating account removal.
func (s *MemoryUserStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	delete(s.userRoles, id)
}

func (s *MemoryUserStore) find(match func(*model.User) bool) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			cp.Roles = s.roleNames(u.ID)
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (s *MemoryUserStore) roleNames(userID string) []string {
	names := []string{}
	for roleID := range s.userRoles[userID] {
		if r, ok := s.roles[roleID]; ok {
			names = append(names, r.Name)
		}
	}
	sort.Strings(names)
	return names
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.Email == email })
}

func (s *MemoryUserStore) FindByUsername(_ context.Context, username string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.Username == username })
}

func (s *MemoryUserStore) FindByID(_ context.Context, id string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.ID == id })
}

func (s *MemoryUserStore) UpdateNames(_ context.Context, _ *sql.Tx, userID, firstName, lastName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.FirstName, u.LastName = firstName, lastName
	return nil
}

func (s *MemoryUserStore) UpdatePassword(_ context.Context, userID, hashedPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.HashedPassword = hashedPassword
	return nil
}

func (s *MemoryUserStore) ReplaceRoles(_ context.Context, _ *sql.Tx, userID string, roleIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return common.ErrNotFound
	}
	set := make(map[string]bool, len(roleIDs))
	for _, id := range roleIDs {
		set[id] = true
	}
	s.userRoles[userID] = set
	return nil
}

func (s *MemoryUserStore) AssignRole(_ context.Context, _ *sql.Tx, userID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return common.ErrNotFound
	}
	s.userRoles[userID][roleID] = true
	return nil
}

type memoryRoles struct {
	s *MemoryUserStore
}

func (m memoryRoles) FindByName(_ context.Context, _ *sql.Tx, name string) (*model.Role, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, r := range m.s.roles {
		if r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m memoryRoles) Create(_ context.Context, _ *sql.Tx, role *model.Role) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.roles {
		if r.Name == role.Name {
			return fmt.Errorf("role %q already exists: %w", role.Name, common.ErrConflict)
		}
	}
	cp := *role
	m.s.roles[role.ID] = &cp
	return nil
}

func (m memoryRoles) FindOrCreate(_ context.Context, _ *sql.Tx, role *model.Role) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.roles {
		if r.Name == role.Name {
			role.ID = r.ID
			return nil
		}
	}
	cp := *role
	m.s.roles[role.ID] = &cp
	return nil
}
