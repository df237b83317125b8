package shopify

import (
	"context"
	"net/http"

	"archie-core-shopify-app/internal/domain"
	"archie-core-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// shopQuery is the cheapest admin query that still proves the token works
const shopQuery = `{
  shop {
    name
  }
}`

// ConnectivityProbe checks a session's access token against the admin API
type ConnectivityProbe struct {
	client ports.GraphQLClient
	logger zerolog.Logger
}

// NewConnectivityProbe creates a new connectivity probe
func NewConnectivityProbe(client ports.GraphQLClient, logger zerolog.Logger) *ConnectivityProbe {
	return &ConnectivityProbe{
		client: client,
		logger: logger,
	}
}

// Probe returns the status of a minimal shop query. Platform responses map to
// their status code; transport failures are returned as errors.
func (p *ConnectivityProbe) Probe(ctx context.Context, session *domain.Session) (int, error) {
	var resp struct {
		Shop struct {
			Name string `json:"name"`
		} `json:"shop"`
	}

	err := p.client.Query(ctx, session.Shop, session.AccessToken, shopQuery, nil, &resp)
	if err == nil {
		return http.StatusOK, nil
	}

	status := StatusFromError(err)
	switch status {
	case 0:
		return 0, err
	case http.StatusOK:
		// GraphQL-level errors still prove the credentials were accepted
		return status, nil
	}

	p.logger.Warn().
		Int("status", status).
		Str("shop", session.Shop).
		Msg("Token validation failed: token is invalid or revoked")
	return status, nil
}

var _ ports.ConnectivityProbe = (*ConnectivityProbe)(nil)
