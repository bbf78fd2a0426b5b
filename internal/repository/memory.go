package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
)

// MemoryUserRepository is a process-local UserStore for development and
// tests. Contents are lost on restart.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users []domain.User
	index map[string]int
	now   func() time.Time
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		index: make(map[string]int),
		now:   time.Now,
	}
}

func (r *MemoryUserRepository) Exists(_ context.Context, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.index[name]
	return ok, nil
}

func (r *MemoryUserRepository) Insert(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[user.Name]; ok {
		return domain.ErrUserExists
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = r.now()

	r.index[user.Name] = len(r.users)
	r.users = append(r.users, *user)
	return nil
}

func (r *MemoryUserRepository) FetchAll(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]domain.User, len(r.users))
	copy(users, r.users)
	return users, nil
}

func (r *MemoryUserRepository) ListNames(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.users))
	for _, u := range r.users {
		names = append(names, u.Name)
	}
	return names, nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[name]
	if !ok {
		return domain.ErrUserNotFound
	}

	r.users = append(r.users[:i], r.users[i+1:]...)
	delete(r.index, name)
	for j := i; j < len(r.users); j++ {
		r.index[r.users[j].Name] = j
	}
	return nil
}

func (r *MemoryUserRepository) Ping(_ context.Context) error {
	return nil
}

var _ UserStore = (*MemoryUserRepository)(nil)
