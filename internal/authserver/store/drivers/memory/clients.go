package memory

import (
	"context"
	"sort"
	"time"

	"github.com/intermine/authserver/internal/authserver/domain"
	"github.com/intermine/authserver/internal/authserver/store"
)

// rawClients operates on state without locking; callers own the lock.
type rawClients struct {
	st func() *state
}

func (r *rawClients) GetClientByClientID(ctx context.Context, clientID string) (domain.Client, error) {
	if clientID == "" {
		return domain.Client{}, store.ErrNotFound
	}
	for _, c := range r.st().clients {
		if c.ClientID == clientID {
			return cloneClient(c), nil
		}
	}
	return domain.Client{}, store.ErrNotFound
}

func (r *rawClients) GetClientByName(ctx context.Context, name string) (domain.Client, error) {
	for _, c := range r.st().clients {
		if c.Name == name {
			return cloneClient(c), nil
		}
	}
	return domain.Client{}, store.ErrNotFound
}

func (r *rawClients) GetClientByWebsiteURL(ctx context.Context, websiteURL string) (domain.Client, error) {
	for _, c := range r.st().clients {
		if c.WebsiteURL == websiteURL {
			return cloneClient(c), nil
		}
	}
	return domain.Client{}, store.ErrNotFound
}

func (r *rawClients) ListClientsByOwner(ctx context.Context, registeredBy string) ([]domain.Client, error) {
	clients := []domain.Client{}
	for _, c := range r.st().clients {
		if c.RegisteredBy == registeredBy {
			clients = append(clients, cloneClient(c))
		}
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].ID < clients[j].ID })
	return clients, nil
}

func (r *rawClients) CreateClient(ctx context.Context, c domain.Client) error {
	st := r.st()
	if _, exists := st.clients[c.ID]; exists {
		return store.ErrAlreadyExists
	}
	for _, other := range st.clients {
		if other.Name == c.Name || other.WebsiteURL == c.WebsiteURL {
			return store.ErrAlreadyExists
		}
		if c.ClientID != "" && other.ClientID == c.ClientID {
			return store.ErrAlreadyExists
		}
	}

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	st.clients[c.ID] = cloneClient(c)
	return nil
}

func (r *rawClients) UpdateClient(ctx context.Context, c domain.Client) error {
	st := r.st()
	if _, exists := st.clients[c.ID]; !exists {
		return store.ErrNotFound
	}
	for id, other := range st.clients {
		if id == c.ID {
			continue
		}
		if other.Name == c.Name || other.WebsiteURL == c.WebsiteURL {
			return store.ErrAlreadyExists
		}
		if c.ClientID != "" && other.ClientID == c.ClientID {
			return store.ErrAlreadyExists
		}
	}

	c.UpdatedAt = time.Now().UTC()
	st.clients[c.ID] = cloneClient(c)
	return nil
}

func (r *rawClients) DeleteClientByName(ctx context.Context, name string) error {
	// Deleting an unknown name is intentionally not an error.
	st := r.st()
	for id, c := range st.clients {
		if c.Name == name {
			delete(st.clients, id)
			return nil
		}
	}
	return nil
}

// lockedClients wraps rawClients with the store mutex for use outside
// transactions.
type lockedClients struct {
	s *Store
}

func (l *lockedClients) raw() *rawClients {
	return &rawClients{st: func() *state { return l.s.state }}
}

func (l *lockedClients) GetClientByClientID(ctx context.Context, clientID string) (domain.Client, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.raw().GetClientByClientID(ctx, clientID)
}

func (l *lockedClients) GetClientByName(ctx context.Context, name string) (domain.Client, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.raw().GetClientByName(ctx, name)
}

func (l *lockedClients) GetClientByWebsiteURL(ctx context.Context, websiteURL string) (domain.Client, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.raw().GetClientByWebsiteURL(ctx, websiteURL)
}

func (l *lockedClients) ListClientsByOwner(ctx context.Context, registeredBy string) ([]domain.Client, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.raw().ListClientsByOwner(ctx, registeredBy)
}

func (l *lockedClients) CreateClient(ctx context.Context, c domain.Client) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.raw().CreateClient(ctx, c)
}

func (l *lockedClients) UpdateClient(ctx context.Context, c domain.Client) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.raw().UpdateClient(ctx, c)
}

func (l *lockedClients) DeleteClientByName(ctx context.Context, name string) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.raw().DeleteClientByName(ctx, name)
}
