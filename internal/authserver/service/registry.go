package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/intermine/authserver/internal/authserver/domain"
	"github.com/intermine/authserver/internal/authserver/metrics"
	"github.com/intermine/authserver/internal/authserver/store"
	"github.com/intermine/authserver/pkg/cryptox"
	"github.com/intermine/authserver/pkg/idx"
	"github.com/intermine/authserver/pkg/slogx"
)

var (
	// ErrClientExists reports a registration conflict on name or website URL.
	ErrClientExists = errors.New("client already exists")

	// ErrClientNotFound reports an operation against an unknown client name.
	ErrClientNotFound = errors.New("client not found")

	// ErrInvalidClient reports an unknown client id at token time. Routinely
	// triggered by malformed or adversarial requests, so callers surface it
	// as a protocol rejection and log it at low severity.
	ErrInvalidClient = errors.New("invalid_client")

	// ErrAlreadyVerified rejects re-verification of an active client.
	// Silently rotating live credentials would break the deployed client.
	ErrAlreadyVerified = errors.New("client already verified")

	// ErrInvalidRegistration reports a registration request missing required
	// fields or carrying empty redirect URIs.
	ErrInvalidRegistration = errors.New("invalid registration request")

	// ErrMalformedRedirectURI reports a redirect-URI literal that is not a
	// well-formed bracket-wrapped absolute URL.
	ErrMalformedRedirectURI = errors.New("malformed redirect uri literal")
)

// DefaultClientIDDomain is the suffix domain for minted client ids.
const DefaultClientIDDomain = "intermine.com"

// RegistryService owns the business rules of the client registry:
// registration, verification/activation, redirect-URI updates, deletion, and
// resolution of client identity for token issuance. It is stateless; all
// state lives behind the Store.
type RegistryService struct {
	Store store.Store

	// ClientIDDomain is the domain suffix of minted client ids
	// ("<digest>.apps.<domain>"). Defaults to DefaultClientIDDomain.
	ClientIDDomain string
}

// RegisterClientRequest is the external registration input. RegisteredBy is
// the authenticated owner's username, resolved by the access-control layer
// in front of this service.
type RegisterClientRequest struct {
	Name         string
	WebsiteURL   string
	RedirectURIs []string
	ClientType   string
	RegisteredBy string
}

// Register creates a pending client record with default scopes, grant types
// and token TTLs. Credentials are not assigned here; the record stays
// unverified until an administrator calls VerifyClient.
func (s *RegistryService) Register(ctx context.Context, req RegisterClientRequest) (domain.Client, error) {
	l := slogx.FromContext(ctx)

	if err := validateRegistration(req); err != nil {
		return domain.Client{}, err
	}

	client := domain.Client{
		ID:              idx.New().String(),
		Name:            strings.TrimSpace(req.Name),
		WebsiteURL:      strings.TrimSpace(req.WebsiteURL),
		ClientType:      req.ClientType,
		RedirectURIs:    append([]string(nil), req.RedirectURIs...),
		Scopes:          append([]string(nil), domain.DefaultScopes...),
		GrantTypes:      append([]string(nil), domain.DefaultGrantTypes...),
		AccessTokenTTL:  domain.DefaultAccessTokenTTL,
		RefreshTokenTTL: domain.DefaultRefreshTokenTTL,
		RegisteredBy:    req.RegisteredBy,
		Verified:        false,
	}

	if err := s.Store.Clients().CreateClient(ctx, client); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Client{}, ErrClientExists
		}
		l.Error("failed to create client", "error", err, "name", client.Name)
		return domain.Client{}, err
	}

	metrics.ClientRegistrationsTotal.Inc()
	l.Info("client registered", "name", client.Name, "registered_by", client.RegisteredBy)
	return client, nil
}

func validateRegistration(req RegisterClientRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: client name is required", ErrInvalidRegistration)
	}
	if strings.TrimSpace(req.WebsiteURL) == "" {
		return fmt.Errorf("%w: website url is required", ErrInvalidRegistration)
	}
	if strings.TrimSpace(req.RegisteredBy) == "" {
		return fmt.Errorf("%w: registering user is required", ErrInvalidRegistration)
	}
	if len(req.RedirectURIs) == 0 {
		return fmt.Errorf("%w: at least one redirect uri is required", ErrInvalidRegistration)
	}
	for _, uri := range req.RedirectURIs {
		if strings.TrimSpace(uri) == "" {
			return fmt.Errorf("%w: redirect uris must not be empty", ErrInvalidRegistration)
		}
	}
	return nil
}

// ClientDetails is the read-only view handed to the token-issuance protocol
// layer. It never exposes the mutable record, and it offers both set and
// comma-joined forms since protocol libraries want either.
type ClientDetails struct {
	ClientID     string
	SecretHash   string
	RedirectURIs []string
	Scopes       []string
	GrantTypes   []string
	ResourceIDs  []string

	AccessTokenTTL  int // seconds
	RefreshTokenTTL int // seconds
}

// ScopeList returns the scope set as a comma-joined string.
func (d ClientDetails) ScopeList() string { return strings.Join(d.Scopes, ",") }

// GrantTypeList returns the grant types as a comma-joined string.
func (d ClientDetails) GrantTypeList() string { return strings.Join(d.GrantTypes, ",") }

// ResourceIDList returns the resource ids as a comma-joined string.
func (d ClientDetails) ResourceIDList() string { return strings.Join(d.ResourceIDs, ",") }

// HasGrantType reports whether the client may use the given grant.
func (d ClientDetails) HasGrantType(grant string) bool {
	for _, g := range d.GrantTypes {
		if g == grant {
			return true
		}
	}
	return false
}

// ResolveForTokenIssuance looks up a client by the id presented during a
// token request and produces the normalized view the protocol layer
// consumes. Unknown ids fail with ErrInvalidClient, never an internal fault.
func (s *RegistryService) ResolveForTokenIssuance(ctx context.Context, clientID string) (ClientDetails, error) {
	l := slogx.FromContext(ctx)

	if clientID == "" {
		return ClientDetails{}, ErrInvalidClient
	}

	client, err := s.Store.Clients().GetClientByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Routinely adversarial input, keep it quiet.
			l.Debug("token request for unknown client id", "client_id", clientID)
			return ClientDetails{}, ErrInvalidClient
		}
		return ClientDetails{}, err
	}

	details := ClientDetails{
		ClientID:        client.ClientID,
		SecretHash:      client.SecretHash,
		RedirectURIs:    append([]string(nil), client.RedirectURIs...),
		Scopes:          append([]string(nil), client.Scopes...),
		GrantTypes:      append([]string(nil), client.GrantTypes...),
		ResourceIDs:     append([]string(nil), client.ResourceIDs...),
		AccessTokenTTL:  client.AccessTokenTTL,
		RefreshTokenTTL: client.RefreshTokenTTL,
	}
	l.Debug("resolved client for token issuance",
		"client_id", details.ClientID,
		"scopes", details.ScopeList(),
		"grant_types", details.GrantTypeList(),
		"resource_ids", details.ResourceIDList(),
	)
	return details, nil
}

// LookupByName fetches a client by its unique name. Absence is reported via
// found=false, not an error.
func (s *RegistryService) LookupByName(ctx context.Context, name string) (domain.Client, bool, error) {
	client, err := s.Store.Clients().GetClientByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Client{}, false, nil
	}
	if err != nil {
		return domain.Client{}, false, err
	}
	return client, true, nil
}

// LookupByWebsiteURL fetches a client by its unique website URL. Absence is
// reported via found=false, not an error.
func (s *RegistryService) LookupByWebsiteURL(ctx context.Context, websiteURL string) (domain.Client, bool, error) {
	client, err := s.Store.Clients().GetClientByWebsiteURL(ctx, websiteURL)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Client{}, false, nil
	}
	if err != nil {
		return domain.Client{}, false, err
	}
	return client, true, nil
}

// ListByOwner returns all clients registered by a user, newest first.
func (s *RegistryService) ListByOwner(ctx context.Context, registeredBy string) ([]domain.Client, error) {
	return s.Store.Clients().ListClientsByOwner(ctx, registeredBy)
}

// UpdateRedirectURI replaces a client's entire redirect-URI set with the
// single URI carried in a bracket-wrapped literal ("[https://app/cb]").
// Upstream callers serialize the value that way; we parse the brackets
// explicitly instead of blindly stripping first and last characters.
func (s *RegistryService) UpdateRedirectURI(ctx context.Context, clientName, rawValue string) error {
	uri, err := parseBracketedURI(rawValue)
	if err != nil {
		return err
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		client, err := tx.Clients().GetClientByName(ctx, clientName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrClientNotFound
			}
			return err
		}

		client.RedirectURIs = []string{uri}
		return tx.Clients().UpdateClient(ctx, client)
	})
}

// parseBracketedURI unwraps "[<uri>]" and validates the inner value is an
// absolute URL. Anything else is rejected rather than best-effort trimmed.
func parseBracketedURI(raw string) (string, error) {
	if len(raw) < 2 || !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") {
		return "", fmt.Errorf("%w: expected \"[<uri>]\", got %q", ErrMalformedRedirectURI, raw)
	}

	inner := strings.TrimSpace(raw[1 : len(raw)-1])
	if inner == "" || strings.ContainsAny(inner, "[]") {
		return "", fmt.Errorf("%w: empty or nested literal", ErrMalformedRedirectURI)
	}

	u, err := url.Parse(inner)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not an absolute url", ErrMalformedRedirectURI, inner)
	}

	return inner, nil
}

// DeleteClient removes a client by name. Deleting an unknown name completes
// without error; that permissive semantic is load-bearing for callers that
// retry deletes.
func (s *RegistryService) DeleteClient(ctx context.Context, clientName string) error {
	l := slogx.FromContext(ctx)

	if err := s.Store.Clients().DeleteClientByName(ctx, clientName); err != nil {
		l.Error("failed to delete client", "error", err, "name", clientName)
		return err
	}

	l.Info("client deleted", "name", clientName)
	return nil
}

// VerifyClient activates a pending client: it mints the client id from a
// fresh random digest, derives a plaintext secret the same way, stores only
// the argon2id hash of it, and flips the record to verified, all inside a
// single store transaction so concurrent verifications cannot each mint a
// credential set.
//
// The plaintext secret is returned exactly once so the admin surface can
// show it to the client owner; it is never recoverable afterwards.
// Verifying an already-active client fails with ErrAlreadyVerified.
func (s *RegistryService) VerifyClient(ctx context.Context, clientName string) (plaintextSecret string, err error) {
	l := slogx.FromContext(ctx)

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		client, err := tx.Clients().GetClientByName(ctx, clientName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrClientNotFound
			}
			return err
		}

		if client.Verified {
			return ErrAlreadyVerified
		}

		idBytes, err := cryptox.GenerateSecret(cryptox.SecretSize)
		if err != nil {
			return fmt.Errorf("mint client id: %w", err)
		}
		client.ClientID = cryptox.Digest(idBytes) + ".apps." + s.clientIDDomain()

		secretBytes, err := cryptox.GenerateSecret(cryptox.SecretSize)
		if err != nil {
			return fmt.Errorf("mint client secret: %w", err)
		}
		plaintextSecret = cryptox.Digest(secretBytes)

		hash, err := cryptox.HashSecret(plaintextSecret)
		if err != nil {
			return fmt.Errorf("hash client secret: %w", err)
		}
		client.SecretHash = hash
		client.Verified = true

		return tx.Clients().UpdateClient(ctx, client)
	})
	if err != nil {
		return "", err
	}

	metrics.ClientVerificationsTotal.Inc()
	l.Info("client verified", "name", clientName)
	return plaintextSecret, nil
}

func (s *RegistryService) clientIDDomain() string {
	if s.ClientIDDomain != "" {
		return s.ClientIDDomain
	}
	return DefaultClientIDDomain
}
