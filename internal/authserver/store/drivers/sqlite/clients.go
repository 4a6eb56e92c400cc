package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/intermine/authserver/internal/authserver/domain"
	"github.com/intermine/authserver/internal/authserver/store"
)

type clientsRepo struct {
	db dbtx
}

const clientColumns = `id, name, website_url, client_type, client_id, secret_hash,
	redirect_uris, scopes, grant_types, resource_ids,
	access_token_ttl, refresh_token_ttl, registered_by, verified,
	created_at, updated_at`

func (r *clientsRepo) GetClientByClientID(ctx context.Context, clientID string) (domain.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE client_id = ?`, clientID)
	return scanClient(row)
}

func (r *clientsRepo) GetClientByName(ctx context.Context, name string) (domain.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE name = ?`, name)
	return scanClient(row)
}

func (r *clientsRepo) GetClientByWebsiteURL(ctx context.Context, websiteURL string) (domain.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE website_url = ?`, websiteURL)
	return scanClient(row)
}

func (r *clientsRepo) ListClientsByOwner(ctx context.Context, registeredBy string) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE registered_by = ? ORDER BY created_at DESC`,
		registeredBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := []domain.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.WebsiteURL, c.ClientType,
		mapStringNull(c.ClientID), mapStringNull(c.SecretHash),
		strings.Join(c.RedirectURIs, " "),
		strings.Join(c.Scopes, " "),
		strings.Join(c.GrantTypes, " "),
		strings.Join(c.ResourceIDs, " "),
		c.AccessTokenTTL, c.RefreshTokenTTL,
		c.RegisteredBy, c.Verified,
		c.CreatedAt, c.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *clientsRepo) UpdateClient(ctx context.Context, c domain.Client) error {
	c.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE clients SET
			name = ?, website_url = ?, client_type = ?,
			client_id = ?, secret_hash = ?,
			redirect_uris = ?, scopes = ?, grant_types = ?, resource_ids = ?,
			access_token_ttl = ?, refresh_token_ttl = ?,
			registered_by = ?, verified = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.WebsiteURL, c.ClientType,
		mapStringNull(c.ClientID), mapStringNull(c.SecretHash),
		strings.Join(c.RedirectURIs, " "),
		strings.Join(c.Scopes, " "),
		strings.Join(c.GrantTypes, " "),
		strings.Join(c.ResourceIDs, " "),
		c.AccessTokenTTL, c.RefreshTokenTTL,
		c.RegisteredBy, c.Verified, c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return mapConstraint(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *clientsRepo) DeleteClientByName(ctx context.Context, name string) error {
	// Deleting an unknown name is intentionally not an error.
	_, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE name = ?`, name)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (domain.Client, error) {
	var (
		c                     domain.Client
		clientID, secretHash  sql.NullString
		redirects, scopes     string
		grantTypes, resources string
	)

	err := row.Scan(
		&c.ID, &c.Name, &c.WebsiteURL, &c.ClientType,
		&clientID, &secretHash,
		&redirects, &scopes, &grantTypes, &resources,
		&c.AccessTokenTTL, &c.RefreshTokenTTL,
		&c.RegisteredBy, &c.Verified,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}

	c.ClientID = mapNullString(clientID)
	c.SecretHash = mapNullString(secretHash)
	c.RedirectURIs = splitAndFilter(redirects)
	c.Scopes = splitAndFilter(scopes)
	c.GrantTypes = splitAndFilter(grantTypes)
	c.ResourceIDs = splitAndFilter(resources)
	return c, nil
}

func splitAndFilter(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Fields(s)
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
