package credential

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential is an opaque bearer credential for an authenticated session.
// It is a value type: holders get immutable snapshots, never shared
// mutable state.
type Credential struct {
	// AccessToken is the bearer token attached to outgoing requests.
	AccessToken string

	// RefreshToken is the token used to obtain a new credential.
	// May be empty when the refresher does not need one.
	RefreshToken string

	// ExpiresAt is the known expiry of the access token.
	// Zero when the expiry is unknown.
	ExpiresAt time.Time
}

// IsZero reports whether the credential is empty.
func (c Credential) IsZero() bool {
	return c.AccessToken == ""
}

// Equal reports whether two credentials carry the same access token.
// Refresh tokens and expiry are not compared; the access token is what
// a request attaches, so it is what staleness is judged by.
func (c Credential) Equal(other Credential) bool {
	return c.AccessToken == other.AccessToken
}

// ExpiresWithin reports whether the credential is known to expire
// within d. It prefers the explicit ExpiresAt; when that is unset and
// the access token is a JWT, the unverified exp claim is consulted.
// Unknown expiry reports false, so callers only act on positive
// knowledge.
func (c Credential) ExpiresWithin(d time.Duration) bool {
	exp := c.ExpiresAt
	if exp.IsZero() {
		exp = c.jwtExpiry()
	}
	if exp.IsZero() {
		return false
	}
	return time.Now().Add(d).After(exp)
}

// jwtExpiry extracts the exp claim from the access token without
// verifying the signature. The token is only inspected as a refresh
// hint, never trusted for authorization decisions.
func (c Credential) jwtExpiry() time.Time {
	if c.AccessToken == "" {
		return time.Time{}
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(c.AccessToken, claims); err != nil {
		return time.Time{}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
