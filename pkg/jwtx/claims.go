// Package jwtx signs the access tokens minted by the token endpoint and
// publishes the matching JWKS. Only EdDSA (Ed25519) is supported; the token
// surface here is deliberately thin since the full grant machinery lives in
// the protocol layer.
package jwtx

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are access-token claims. Changes should stay additive to preserve
// compatibility with deployed verifiers.
type Claims struct {
	jwt.RegisteredClaims

	// ClientID is the OAuth client the token was issued to.
	ClientID string `json:"client_id,omitempty"`

	// Scope is the space-delimited granted scope set.
	Scope string `json:"scope,omitempty"`
}

// NewClaims builds the registered claim set for an access token.
func NewClaims(issuer, subject, clientID string, scopes []string, ttl time.Duration) Claims {
	now := time.Now().UTC()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		ClientID: clientID,
		Scope:    strings.Join(scopes, " "),
	}
}

// Scopes splits the space-delimited scope claim.
func (c Claims) Scopes() []string {
	if c.Scope == "" {
		return nil
	}
	return strings.Fields(c.Scope)
}
