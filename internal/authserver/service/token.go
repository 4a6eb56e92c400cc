package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/intermine/authserver/internal/authserver/metrics"
	"github.com/intermine/authserver/internal/authserver/store"
	"github.com/intermine/authserver/pkg/cryptox"
	"github.com/intermine/authserver/pkg/jwtx"
	"github.com/intermine/authserver/pkg/slogx"
)

var (
	// ErrUnsupportedGrant reports a grant type this server does not implement.
	ErrUnsupportedGrant = errors.New("unsupported grant type")

	// ErrUnauthorizedGrant reports a grant the client is not registered for.
	ErrUnauthorizedGrant = errors.New("grant type not allowed for client")

	// ErrInvalidUserCredentials reports a failed resource-owner login during
	// the password grant.
	ErrInvalidUserCredentials = errors.New("invalid user credentials")
)

// TokenService is the thin token-issuance layer sitting on top of the
// registry. It implements only the password and client_credentials grants;
// the full protocol state machine (authorization codes, refresh rotation,
// sessions) is owned elsewhere.
type TokenService struct {
	Registry *RegistryService
	Store    store.Store
	Signer   *jwtx.Signer
	Issuer   string
}

// TokenRequest carries the parsed parameters of a token request. Client
// credentials may arrive via Basic auth or form fields; the handler
// normalizes both into ClientID/ClientSecret.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string

	// password grant only
	Username string
	Password string

	// Scope is the space-delimited requested scope set; empty means the
	// client's full registered set.
	Scope string
}

// TokenResponse is the OAuth2 token endpoint success body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// IssueToken authenticates the client against its stored secret hash,
// enforces its registered grant types, and mints a signed access token with
// the record's TTL.
func (s *TokenService) IssueToken(ctx context.Context, req TokenRequest) (TokenResponse, error) {
	l := slogx.FromContext(ctx)

	details, err := s.Registry.ResolveForTokenIssuance(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, ErrInvalidClient) {
			metrics.TokenRejectionsTotal.WithLabelValues("invalid_client").Inc()
		}
		return TokenResponse{}, err
	}

	// Only verified clients carry a secret hash, and resolution already
	// requires an assigned client id, so a missing hash means a broken
	// record rather than a pending one.
	if err := cryptox.VerifySecret(req.ClientSecret, details.SecretHash); err != nil {
		l.Debug("client secret mismatch", "client_id", req.ClientID)
		metrics.TokenRejectionsTotal.WithLabelValues("invalid_client").Inc()
		return TokenResponse{}, ErrInvalidClient
	}

	switch req.GrantType {
	case "password", "client_credentials":
	default:
		metrics.TokenRejectionsTotal.WithLabelValues("unsupported_grant").Inc()
		return TokenResponse{}, ErrUnsupportedGrant
	}

	if !details.HasGrantType(req.GrantType) {
		metrics.TokenRejectionsTotal.WithLabelValues("unauthorized_grant").Inc()
		return TokenResponse{}, ErrUnauthorizedGrant
	}

	subject := details.ClientID
	if req.GrantType == "password" {
		user, err := s.Store.Users().GetUserByUsername(ctx, req.Username)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				metrics.TokenRejectionsTotal.WithLabelValues("invalid_user").Inc()
				return TokenResponse{}, ErrInvalidUserCredentials
			}
			return TokenResponse{}, err
		}
		if err := cryptox.VerifySecret(req.Password, user.PasswordHash); err != nil {
			metrics.TokenRejectionsTotal.WithLabelValues("invalid_user").Inc()
			return TokenResponse{}, ErrInvalidUserCredentials
		}
		subject = user.ID
	}

	granted := grantScopes(req.Scope, details.Scopes)
	ttl := time.Duration(details.AccessTokenTTL) * time.Second

	claims := jwtx.NewClaims(s.Issuer, subject, details.ClientID, granted, ttl)
	token, err := s.Signer.Sign(claims)
	if err != nil {
		l.Error("failed to sign access token", "error", err)
		return TokenResponse{}, err
	}

	metrics.TokensIssuedTotal.WithLabelValues(req.GrantType).Inc()
	l.Info("access token issued", "client_id", details.ClientID, "grant_type", req.GrantType)

	return TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   details.AccessTokenTTL,
		Scope:       strings.Join(granted, " "),
	}, nil
}

// grantScopes intersects the requested scopes with the client's registered
// set; an empty request grants the full registered set.
func grantScopes(requested string, registered []string) []string {
	fields := strings.Fields(requested)
	if len(fields) == 0 {
		return append([]string(nil), registered...)
	}

	allowed := make(map[string]struct{}, len(registered))
	for _, s := range registered {
		allowed[s] = struct{}{}
	}

	granted := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, s := range fields {
		if _, ok := allowed[s]; !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		granted = append(granted, s)
	}
	return granted
}
