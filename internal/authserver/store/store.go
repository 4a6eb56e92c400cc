package store

import (
	"context"
	"errors"

	"github.com/intermine/authserver/internal/authserver/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, memory)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and a transaction entry point for the read-modify-write paths
// that must be atomic (client verification in particular).
type Store interface {
	Clients() Clients
	Users() Users

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error, the
	// transaction is rolled back; otherwise it is committed. This is the
	// recommended entry point as it owns the commit/rollback logic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing storage is still reachable.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Clients is the durable client record repository. Uniqueness of name,
// website_url and client_id is enforced at this layer, not just in service
// logic.
type Clients interface {
	// GetClientByClientID fetches a client by its assigned OAuth client id
	// (the id presented during token requests). ErrNotFound when absent.
	GetClientByClientID(ctx context.Context, clientID string) (domain.Client, error)

	// GetClientByName fetches a client by its unique human-chosen name.
	GetClientByName(ctx context.Context, name string) (domain.Client, error)

	// GetClientByWebsiteURL fetches a client by its unique website URL.
	GetClientByWebsiteURL(ctx context.Context, websiteURL string) (domain.Client, error)

	// ListClientsByOwner returns all clients registered by a user.
	// Returns an empty slice, not an error, when the user owns none.
	ListClientsByOwner(ctx context.Context, registeredBy string) ([]domain.Client, error)

	// CreateClient inserts a new record. ErrAlreadyExists when the insert
	// would duplicate name or website_url across distinct records.
	CreateClient(ctx context.Context, c domain.Client) error

	// UpdateClient replaces the full record keyed by its internal ID.
	// Uniqueness violations map to ErrAlreadyExists, a missing record to
	// ErrNotFound.
	UpdateClient(ctx context.Context, c domain.Client) error

	// DeleteClientByName removes a record by name. Deleting a name that does
	// not exist is deliberately a no-op, not an error.
	DeleteClientByName(ctx context.Context, name string) error
}

// Users resolves resource-owner identities. Account CRUD is owned by the
// external authentication subsystem; CreateUser exists for bootstrap seeding
// and tests only.
type Users interface {
	// GetUserByUsername is used during the password grant and to resolve
	// client ownership. ErrNotFound when absent.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}
