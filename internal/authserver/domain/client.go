package domain

import "time"

// Default registration values applied to every new client. These mirror what
// the hosted InterMine deployment hands out and can be widened later by an
// administrator.
var (
	DefaultScopes     = []string{"openid", "profile", "email"}
	DefaultGrantTypes = []string{"authorization_code", "password", "refresh_token", "implicit"}
)

const (
	// DefaultAccessTokenTTL is the access token validity handed to new clients.
	DefaultAccessTokenTTL = 3600 // seconds
	// DefaultRefreshTokenTTL is the refresh token validity handed to new clients.
	DefaultRefreshTokenTTL = 10000 // seconds
)

// Client is a registered OAuth2 client application.
//
// A client starts out pending (Verified=false) with no credentials. An admin
// verification mints ClientID and SecretHash and flips Verified; a verified
// record always carries both. Name and WebsiteURL are unique across all
// records, ClientID is unique once assigned.
type Client struct {
	ID string // internal record id (ULID), storage key

	Name       string
	WebsiteURL string
	ClientType string // "confidential" or "public", informational

	ClientID   string // "<sha1-hex>.apps.<domain>", empty until verified
	SecretHash string // argon2id PHC string, empty until verified

	RedirectURIs []string
	Scopes       []string
	GrantTypes   []string
	ResourceIDs  []string

	AccessTokenTTL  int // seconds
	RefreshTokenTTL int // seconds

	RegisteredBy string // username of the owning user
	Verified     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasGrantType reports whether the client is allowed to use the given grant.
func (c Client) HasGrantType(grant string) bool {
	for _, g := range c.GrantTypes {
		if g == grant {
			return true
		}
	}
	return false
}
