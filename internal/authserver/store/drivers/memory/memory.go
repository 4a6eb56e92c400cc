// Package memory provides the in-memory reference implementation of the
// store interfaces. It backs unit tests and exercises the same transactional
// contract as the durable driver: WithTx runs under the store lock with a
// snapshot rollback, so read-modify-write sequences are atomic.
package memory

import (
	"context"
	"sync"

	"github.com/intermine/authserver/internal/authserver/domain"
	"github.com/intermine/authserver/internal/authserver/store"
)

type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	clients map[string]domain.Client // keyed by internal record id
	users   map[string]domain.User   // keyed by username
}

func NewStore() *Store {
	return &Store{
		state: &state{
			clients: make(map[string]domain.Client),
			users:   make(map[string]domain.User),
		},
	}
}

func (s *Store) Clients() store.Clients { return &lockedClients{s: s} }
func (s *Store) Users() store.Users     { return &lockedUsers{s: s} }

func (s *Store) ApplyMigrations() error { return nil } // schemaless

func (s *Store) Close() error { return nil }

func (s *Store) Ping(ctx context.Context) error { return nil }

// Tx takes the store lock for the lifetime of the transaction and keeps a
// snapshot for rollback. Coarse, but it gives the same per-record atomicity
// guarantee the sqlite driver gets from database transactions.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	s.mu.Lock()
	return &txStore{s: s, snapshot: s.state.clone()}, nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (st *state) clone() *state {
	clients := make(map[string]domain.Client, len(st.clients))
	for id, c := range st.clients {
		clients[id] = cloneClient(c)
	}
	users := make(map[string]domain.User, len(st.users))
	for name, u := range st.users {
		users[name] = u
	}
	return &state{clients: clients, users: users}
}

func cloneClient(c domain.Client) domain.Client {
	c.RedirectURIs = append([]string(nil), c.RedirectURIs...)
	c.Scopes = append([]string(nil), c.Scopes...)
	c.GrantTypes = append([]string(nil), c.GrantTypes...)
	c.ResourceIDs = append([]string(nil), c.ResourceIDs...)
	return c
}
