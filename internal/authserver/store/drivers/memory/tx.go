package memory

import (
	"context"
	"database/sql"

	"github.com/intermine/authserver/internal/authserver/store"
)

type txStore struct {
	s        *Store
	snapshot *state
	done     bool
}

func (t *txStore) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.s.mu.Unlock()
	return nil
}

func (t *txStore) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.s.state = t.snapshot
	t.s.mu.Unlock()
	return nil
}

// The lock is already held for the transaction, so tx repos hit state directly.
func (t *txStore) Clients() store.Clients { return &rawClients{st: func() *state { return t.s.state }} }
func (t *txStore) Users() store.Users     { return &rawUsers{st: func() *state { return t.s.state }} }

func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	// Nested tx not supported
	return sql.ErrTxDone
}
