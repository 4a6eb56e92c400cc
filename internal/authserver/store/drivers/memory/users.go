package memory

import (
	"context"
	"time"

	"github.com/intermine/authserver/internal/authserver/domain"
	"github.com/intermine/authserver/internal/authserver/store"
)

type rawUsers struct {
	st func() *state
}

func (r *rawUsers) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	u, ok := r.st().users[username]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *rawUsers) CreateUser(ctx context.Context, u domain.User) error {
	st := r.st()
	if _, exists := st.users[u.Username]; exists {
		return store.ErrAlreadyExists
	}

	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	st.users[u.Username] = u
	return nil
}

func (r *rawUsers) IsEmpty(ctx context.Context) (bool, error) {
	return len(r.st().users) == 0, nil
}

type lockedUsers struct {
	s *Store
}

func (l *lockedUsers) raw() *rawUsers {
	return &rawUsers{st: func() *state { return l.s.state }}
}

func (l *lockedUsers) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.raw().GetUserByUsername(ctx, username)
}

func (l *lockedUsers) CreateUser(ctx context.Context, u domain.User) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.raw().CreateUser(ctx, u)
}

func (l *lockedUsers) IsEmpty(ctx context.Context) (bool, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.raw().IsEmpty(ctx)
}
