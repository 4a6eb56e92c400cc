package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intermine/authserver/internal/authserver/domain"
	"github.com/intermine/authserver/internal/authserver/store"
)

func client(id, name string) domain.Client {
	return domain.Client{
		ID:           id,
		Name:         name,
		WebsiteURL:   "https://" + name + ".example",
		RedirectURIs: []string{"https://" + name + ".example/cb"},
		RegisteredBy: "alice",
	}
}

func TestClientsUniqueness(t *testing.T) {
	ctx := context.Background()
	st := NewStore()

	require.NoError(t, st.Clients().CreateClient(ctx, client("01", "app")))

	t.Run("duplicate name", func(t *testing.T) {
		dup := client("02", "app")
		dup.WebsiteURL = "https://elsewhere.example"
		require.ErrorIs(t, st.Clients().CreateClient(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("duplicate website url", func(t *testing.T) {
		dup := client("02", "other")
		dup.WebsiteURL = "https://app.example"
		require.ErrorIs(t, st.Clients().CreateClient(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("duplicate assigned client id", func(t *testing.T) {
		first := client("03", "first")
		first.ClientID = "aaa.apps.intermine.com"
		require.NoError(t, st.Clients().CreateClient(ctx, first))

		second := client("04", "second")
		second.ClientID = "aaa.apps.intermine.com"
		require.ErrorIs(t, st.Clients().CreateClient(ctx, second), store.ErrAlreadyExists)
	})
}

func TestDeleteClientByNameIsPermissive(t *testing.T) {
	ctx := context.Background()
	st := NewStore()

	require.NoError(t, st.Clients().DeleteClientByName(ctx, "missing"))

	require.NoError(t, st.Clients().CreateClient(ctx, client("01", "app")))
	require.NoError(t, st.Clients().DeleteClientByName(ctx, "app"))

	_, err := st.Clients().GetClientByName(ctx, "app")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Second delete of the same name is still fine
	require.NoError(t, st.Clients().DeleteClientByName(ctx, "app"))
}

func TestUpdateClientRequiresExistingRecord(t *testing.T) {
	ctx := context.Background()
	st := NewStore()

	require.ErrorIs(t, st.Clients().UpdateClient(ctx, client("01", "app")), store.ErrNotFound)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st := NewStore()

	require.NoError(t, st.Clients().CreateClient(ctx, client("01", "app")))

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		c, err := tx.Clients().GetClientByName(ctx, "app")
		require.NoError(t, err)

		c.Verified = true
		c.ClientID = "bbb.apps.intermine.com"
		require.NoError(t, tx.Clients().UpdateClient(ctx, c))
		return boom
	})
	require.ErrorIs(t, err, boom)

	c, err := st.Clients().GetClientByName(ctx, "app")
	require.NoError(t, err)
	require.False(t, c.Verified, "rollback must discard the write")
	require.Empty(t, c.ClientID)
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	st := NewStore()

	require.NoError(t, st.Clients().CreateClient(ctx, client("01", "app")))

	err := st.WithTx(ctx, func(tx store.Tx) error {
		c, err := tx.Clients().GetClientByName(ctx, "app")
		if err != nil {
			return err
		}
		c.Verified = true
		return tx.Clients().UpdateClient(ctx, c)
	})
	require.NoError(t, err)

	c, err := st.Clients().GetClientByName(ctx, "app")
	require.NoError(t, err)
	require.True(t, c.Verified)
}

func TestListClientsByOwner(t *testing.T) {
	ctx := context.Background()
	st := NewStore()

	require.NoError(t, st.Clients().CreateClient(ctx, client("01", "one")))
	require.NoError(t, st.Clients().CreateClient(ctx, client("02", "two")))

	bob := client("03", "three")
	bob.RegisteredBy = "bob"
	require.NoError(t, st.Clients().CreateClient(ctx, bob))

	clients, err := st.Clients().ListClientsByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, clients, 2)

	clients, err = st.Clients().ListClientsByOwner(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, clients)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	st := NewStore()

	empty, err := st.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	require.NoError(t, st.Users().CreateUser(ctx, domain.User{
		ID: "u1", Username: "alice", PasswordHash: "hash",
	}))
	require.ErrorIs(t, st.Users().CreateUser(ctx, domain.User{
		ID: "u2", Username: "alice", PasswordHash: "hash",
	}), store.ErrAlreadyExists)

	u, err := st.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)

	_, err = st.Users().GetUserByUsername(ctx, "bob")
	require.ErrorIs(t, err, store.ErrNotFound)
}
