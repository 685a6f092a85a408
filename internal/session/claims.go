package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the typed view of the identity-provider token claims the
// client cares about: display identity from the id token, roles from the
// access token's realm_access block.
type Claims struct {
	Subject           string
	Name              string
	PreferredUsername string
	Email             string
	Roles             []string
}

// rawClaims maps the provider's claim layout for decoding.
type rawClaims struct {
	jwt.RegisteredClaims
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

// ParseClaims extracts typed claims from a JWT without verifying its
// signature. The client trusts tokens it received over TLS from the
// provider; cryptographic validation is the resource server's job.
func ParseClaims(token string) (*Claims, error) {
	var rc rawClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &rc); err != nil {
		return nil, fmt.Errorf("parse token claims: %w", err)
	}
	return &Claims{
		Subject:           rc.Subject,
		Name:              rc.Name,
		PreferredUsername: rc.PreferredUsername,
		Email:             rc.Email,
		Roles:             rc.RealmAccess.Roles,
	}, nil
}

// HasRole reports whether the token carries the given realm role.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// DisplayName returns the best human-readable name available: the name
// claim, falling back to the preferred username.
func (c *Claims) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.PreferredUsername
}
