package shopify

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"archie-core-shopify-app/internal/domain"
	"archie-core-shopify-app/internal/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const (
	// RetryInvalidSessionHeader asks App Bridge to fetch a new id token and retry
	RetryInvalidSessionHeader = "X-Shopify-Retry-Invalid-Session-Request"

	sessionTokenLeeway = 5 * time.Second
)

// SessionTokenClaims are the claims of an App Bridge session token
type SessionTokenClaims struct {
	Dest string `json:"dest"`
	Sid  string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Shop returns the shop domain the token was issued for
func (c *SessionTokenClaims) Shop() string {
	u, err := url.Parse(c.Dest)
	if err != nil {
		return ""
	}
	return u.Host
}

// SessionTokenVerifier validates App Bridge session tokens signed with the app
// secret. During secret rotation tokens signed with the previous secret are accepted.
type SessionTokenVerifier struct {
	apiKey  string
	secrets [][]byte
	logger  zerolog.Logger
}

// NewSessionTokenVerifier creates a new session token verifier
func NewSessionTokenVerifier(apiKey, apiSecret, oldAPISecret string, logger zerolog.Logger) *SessionTokenVerifier {
	secrets := [][]byte{[]byte(apiSecret)}
	if oldAPISecret != "" {
		secrets = append(secrets, []byte(oldAPISecret))
	}
	return &SessionTokenVerifier{
		apiKey:  apiKey,
		secrets: secrets,
		logger:  logger,
	}
}

// ParseSessionToken verifies raw and returns its claims
func (v *SessionTokenVerifier) ParseSessionToken(raw string) (*SessionTokenClaims, error) {
	var lastErr error
	for _, secret := range v.secrets {
		claims := &SessionTokenClaims{}
		_, err := jwt.ParseWithClaims(raw, claims,
			func(*jwt.Token) (interface{}, error) { return secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithAudience(v.apiKey),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(sessionTokenLeeway),
		)
		if err == nil {
			if err := checkIssuer(claims); err != nil {
				return nil, err
			}
			return claims, nil
		}
		lastErr = err
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			break
		}
	}
	return nil, lastErr
}

// checkIssuer requires the issuer to be the admin of the destination shop
func checkIssuer(claims *SessionTokenClaims) error {
	shop := claims.Shop()
	if shop == "" {
		return fmt.Errorf("session token has no destination shop")
	}
	issuer, err := url.Parse(claims.Issuer)
	if err != nil || issuer.Host != shop {
		return fmt.Errorf("session token issuer %q does not match shop %q", claims.Issuer, shop)
	}
	return nil
}

// VerifyAppHomeRequest checks the session token of r. Invalid or missing
// tokens produce a 401 that makes App Bridge retry with a fresh token.
func (v *SessionTokenVerifier) VerifyAppHomeRequest(r *http.Request) (*domain.VerificationResult, error) {
	raw := SessionTokenFromRequest(r)
	if raw == "" {
		return &domain.VerificationResult{
			Response: RetryInvalidSessionResponse(),
			Log:      &domain.ResultLog{Code: "missing_session_token", Detail: "Request has no session token"},
		}, nil
	}

	claims, err := v.ParseSessionToken(raw)
	if err != nil {
		v.logger.Debug().Err(err).Msg("Rejected session token")
		return &domain.VerificationResult{
			Response: RetryInvalidSessionResponse(),
			Log:      &domain.ResultLog{Code: "invalid_session_token", Detail: err.Error()},
		}, nil
	}

	return &domain.VerificationResult{
		OK:                 true,
		Shop:               claims.Shop(),
		IDToken:            raw,
		UserID:             claims.Subject,
		NewIDTokenResponse: RetryInvalidSessionResponse(),
	}, nil
}

// SessionTokenFromRequest returns the bearer token, or the id_token query
// parameter for document requests
func SessionTokenFromRequest(r *http.Request) string {
	if token := domain.BearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return r.URL.Query().Get("id_token")
}

// RetryInvalidSessionResponse is the 401 App Bridge answers with a new session token
func RetryInvalidSessionResponse() domain.PlatformResponse {
	return domain.PlatformResponse{
		Status: http.StatusUnauthorized,
		Headers: map[string][]string{
			RetryInvalidSessionHeader: {"1"},
		},
	}
}

var _ ports.EmbeddedVerifier = (*SessionTokenVerifier)(nil)
