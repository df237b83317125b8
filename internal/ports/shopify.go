package ports

import (
	"context"
	"net/http"

	"archie-core-shopify-app/internal/domain"
)

// EmbeddedVerifier validates the session token carried by an embedded request
type EmbeddedVerifier interface {
	VerifyAppHomeRequest(r *http.Request) (*domain.VerificationResult, error)
}

// TokenExchanger converts id tokens and refresh tokens into access tokens
type TokenExchanger interface {
	ExchangeToken(ctx context.Context, mode domain.AccessMode, idToken string, invalidTokenResponse domain.PlatformResponse) (*domain.ExchangeResult, error)
	RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.ExchangeResult, error)
}

// BillingChecker evaluates whether a shop has an active payment for the app
type BillingChecker interface {
	Check(ctx context.Context, session *domain.Session, config domain.BillingConfig) domain.BillingResult
}

// ConnectivityProbe issues a minimal admin API call with the session credentials
// and returns the HTTP status it got back
type ConnectivityProbe interface {
	Probe(ctx context.Context, session *domain.Session) (int, error)
}

// SessionIdentity resolves which stored session the current request belongs to
type SessionIdentity interface {
	CurrentSessionID(r *http.Request, mode domain.AccessMode) (string, error)
}

// GraphQLClient runs admin GraphQL documents against a shop
type GraphQLClient interface {
	Query(ctx context.Context, shop string, accessToken string, query string, vars map[string]interface{}, resp interface{}) error
}
