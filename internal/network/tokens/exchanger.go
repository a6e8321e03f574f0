// internal/network/tokens/exchanger.go
package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	apperrors "beacon-network/internal/common/errors"
	commonhttp "beacon-network/internal/common/http"
	"beacon-network/internal/common/logger"
	"beacon-network/internal/common/metrics"
	"beacon-network/internal/models"
	"beacon-network/internal/network/metadata"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// SnapshotSource supplies backend endpoints and protected-resource descriptors.
type SnapshotSource interface {
	Snapshot() *metadata.Snapshot
}

// Exchanger trades a caller's bearer token for a backend-scoped one when the
// token's issuer or audience is outside the backend's declared trust domain.
type Exchanger struct {
	config *Config
	client *commonhttp.Client
	source SnapshotSource
	logger logger.Logger

	// providers caches discovery documents per authorization server for the
	// process lifetime.
	providers sync.Map
	group     singleflight.Group
}

func NewExchanger(config *Config, client *commonhttp.Client, source SnapshotSource, log logger.Logger) *Exchanger {
	return &Exchanger{
		config: config,
		client: client,
		source: source,
		logger: log.WithFields(map[string]interface{}{"component": "token-exchanger"}),
	}
}

// Exchange maps every Authorization header value for the given backend.
// Headers that cannot or need not be exchanged are returned unchanged.
func (e *Exchanger) Exchange(ctx context.Context, beaconID string, headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = e.exchangeHeader(ctx, beaconID, h)
	}
	return out
}

func (e *Exchanger) exchangeHeader(ctx context.Context, beaconID, header string) string {
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return header
	}

	exchanged, err := e.exchangeToken(ctx, beaconID, token)
	switch {
	case err != nil:
		metrics.TokenExchanges.WithLabelValues("failed").Inc()
		e.logger.Warn("token exchange failed", map[string]interface{}{
			"beaconId": beaconID,
			"error":    err.Error(),
		})
		return header
	case exchanged == "":
		metrics.TokenExchanges.WithLabelValues("skipped").Inc()
		return header
	}
	metrics.TokenExchanges.WithLabelValues("exchanged").Inc()
	return bearerPrefix + exchanged
}

// exchangeToken returns "" with a nil error when no exchange is needed.
func (e *Exchanger) exchangeToken(ctx context.Context, beaconID, token string) (string, error) {
	c, err := decodeClaims(token)
	if err != nil {
		return "", apperrors.NewTokenExchangeFailedError("decode", err)
	}

	snap := e.source.Snapshot()
	resource := snap.ProtectedResources[beaconID]
	if resource == nil || resource.ClientID == "" || len(resource.AuthorizationServers) == 0 {
		return "", nil
	}
	if !c.needsExchange(resource.ClientID, resource.AuthorizationServers) {
		return "", nil
	}

	provider, err := e.firstProvider(ctx, resource.AuthorizationServers)
	if err != nil {
		return "", apperrors.NewTokenExchangeFailedError("discovery", err)
	}

	if e.config.HasIdentityProvider() {
		if idp, err := e.provider(ctx, e.config.OIDCEndpoint); err == nil {
			scoped, err := e.exchange(ctx, idp, e.config.ClientID, e.config.ClientSecret,
				c.Issuer, snap.Endpoints[beaconID], token)
			if err == nil {
				token = scoped
			} else {
				e.logger.Debug("network identity provider hop failed", map[string]interface{}{
					"beaconId": beaconID,
					"error":    err.Error(),
				})
			}
		}
	}

	exchanged, err := e.exchange(ctx, provider, resource.ClientID, "", c.Issuer, "", token)
	if err != nil {
		return "", apperrors.NewTokenExchangeFailedError("exchange", err)
	}
	return exchanged, nil
}

// exchange performs one RFC 8693 call against provider's token endpoint.
func (e *Exchanger) exchange(ctx context.Context, provider *models.OIDCProvider,
	clientID, clientSecret, subjectIssuer, resource, token string) (string, error) {
	subjectType := TokenTypeJWT
	if subjectIssuer == provider.Issuer {
		subjectType = TokenTypeAccessToken
	}
	params := url.Values{
		"grant_type":           {GrantTypeTokenExchange},
		"subject_token":        {token},
		"subject_token_type":   {subjectType},
		"requested_token_type": {TokenTypeAccessToken},
	}
	if resource != "" {
		params.Set("resource", resource)
	}

	cc := clientcredentials.Config{
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		TokenURL:       provider.TokenEndpoint,
		AuthStyle:      oauth2.AuthStyleInParams,
		EndpointParams: params,
	}
	tok, err := cc.Token(context.WithValue(ctx, oauth2.HTTPClient, e.client.HTTPClient()))
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (e *Exchanger) firstProvider(ctx context.Context, servers []string) (*models.OIDCProvider, error) {
	var lastErr error = ErrNoProvider
	for _, server := range servers {
		p, err := e.provider(ctx, server)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// provider loads the discovery document of server once; concurrent callers
// share a single fetch.
func (e *Exchanger) provider(ctx context.Context, server string) (*models.OIDCProvider, error) {
	if p, ok := e.providers.Load(server); ok {
		return p.(*models.OIDCProvider), nil
	}

	v, err, _ := e.group.Do(server, func() (interface{}, error) {
		if p, ok := e.providers.Load(server); ok {
			return p, nil
		}
		resp, err := e.client.GetJSON(ctx, strings.TrimSuffix(server, "/")+wellKnown, nil)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusMultipleChoices {
			return nil, fmt.Errorf("%w: %s returned %d", ErrProviderInvalid, server, resp.StatusCode)
		}
		var p models.OIDCProvider
		if err := json.Unmarshal(resp.Body, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderInvalid, err)
		}
		if p.TokenEndpoint == "" {
			return nil, fmt.Errorf("%w: %s has no token endpoint", ErrProviderInvalid, server)
		}
		e.providers.Store(server, &p)
		return &p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.OIDCProvider), nil
}
