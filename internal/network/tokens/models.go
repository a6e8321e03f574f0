// internal/network/tokens/models.go
package tokens

import (
	"errors"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

const (
	GrantTypeTokenExchange = "urn:ietf:params:oauth:grant-type:token-exchange"
	TokenTypeAccessToken   = "urn:ietf:params:oauth:token-type:access_token"
	TokenTypeJWT           = "urn:ietf:params:oauth:token-type:jwt"

	bearerPrefix = "Bearer "
	wellKnown    = "/.well-known/openid-configuration"
)

var (
	ErrMalformedToken  = errors.New("MALFORMED_TOKEN")
	ErrNoProvider      = errors.New("NO_PROVIDER")
	ErrProviderInvalid = errors.New("PROVIDER_INVALID")
)

// claims is the part of a JWT payload the exchange decision needs.
type claims struct {
	Issuer string
	// Audience is nil when the token carries no aud claim.
	Audience []string
}

// decodeClaims reads the payload without verifying the signature.
func decodeClaims(token string) (*claims, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	issuer, err := parsed.Claims.GetIssuer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	audience, err := parsed.Claims.GetAudience()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	c := &claims{Issuer: issuer}
	if audience != nil {
		c.Audience = []string(audience)
	}
	return c, nil
}

// needsExchange reports whether the token is outside the backend's trust domain.
func (c *claims) needsExchange(clientID string, servers []string) bool {
	if !slices.Contains(servers, c.Issuer) {
		return true
	}
	return c.Audience != nil && !slices.Contains(c.Audience, clientID)
}
