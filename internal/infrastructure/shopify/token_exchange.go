package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"archie-core-shopify-app/internal/domain"
	"archie-core-shopify-app/internal/infrastructure/metrics"
	"archie-core-shopify-app/internal/ports"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	tokenExchangeGrantType  = "urn:ietf:params:oauth:grant-type:token-exchange"
	idTokenSubjectType      = "urn:ietf:params:oauth:token-type:id_token"
	offlineAccessTokenType  = "urn:shopify:params:oauth:token-type:offline-access-token"
	onlineAccessTokenType   = "urn:shopify:params:oauth:token-type:online-access-token"
	invalidSubjectTokenCode = "invalid_subject_token"

	maxExchangeRetries = 3
)

// TokenExchangeOptions configures a TokenExchangeClient
type TokenExchangeOptions struct {
	// ExpiringOfflineTokens requests offline tokens that expire and come with a refresh token
	ExpiringOfflineTokens bool
	HTTPClient            *http.Client
	Metrics               metrics.Recorder
}

// TokenExchangeClient trades session tokens and refresh tokens for admin API access tokens
type TokenExchangeClient struct {
	apiKey     string
	apiSecret  string
	expiring   bool
	httpClient *http.Client
	metrics    metrics.Recorder
	logger     zerolog.Logger

	tokenURL   func(shop string) string
	newBackOff func() backoff.BackOff
}

// NewTokenExchangeClient creates a new token exchange client
func NewTokenExchangeClient(apiKey, apiSecret string, opts TokenExchangeOptions, logger zerolog.Logger) *TokenExchangeClient {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	return &TokenExchangeClient{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		expiring:   opts.ExpiringOfflineTokens,
		httpClient: opts.HTTPClient,
		metrics:    opts.Metrics,
		logger:     logger,
		tokenURL: func(shop string) string {
			return fmt.Sprintf("https://%s/admin/oauth/access_token", shop)
		},
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

type associatedUser struct {
	ID            int64  `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	AccountOwner  bool   `json:"account_owner"`
	Locale        string `json:"locale"`
	Collaborator  bool   `json:"collaborator"`
}

type accessTokenResponse struct {
	AccessToken           string          `json:"access_token"`
	Scope                 string          `json:"scope"`
	ExpiresIn             int64           `json:"expires_in"`
	RefreshToken          string          `json:"refresh_token"`
	RefreshTokenExpiresIn int64           `json:"refresh_token_expires_in"`
	AssociatedUser        *associatedUser `json:"associated_user"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeToken exchanges idToken for an access token of the given mode.
// A rejected id token yields invalidTokenResponse so the client retries with a
// fresh one. Only transport failures are returned as errors.
func (e *TokenExchangeClient) ExchangeToken(ctx context.Context, mode domain.AccessMode, idToken string, invalidTokenResponse domain.PlatformResponse) (*domain.ExchangeResult, error) {
	shop, err := shopFromUnverifiedToken(idToken)
	if err != nil {
		return &domain.ExchangeResult{
			Response: invalidTokenResponse,
			Log:      &domain.ResultLog{Code: invalidSubjectTokenCode, Detail: err.Error()},
		}, nil
	}

	requestedType := offlineAccessTokenType
	if mode.IsOnline() {
		requestedType = onlineAccessTokenType
	}

	form := url.Values{}
	form.Set("client_id", e.apiKey)
	form.Set("client_secret", e.apiSecret)
	form.Set("grant_type", tokenExchangeGrantType)
	form.Set("subject_token", idToken)
	form.Set("subject_token_type", idTokenSubjectType)
	form.Set("requested_token_type", requestedType)
	if !mode.IsOnline() && e.expiring {
		form.Set("expiring", "1")
	}

	start := time.Now()
	status, body, err := e.postWithRetry(ctx, e.tokenURL(shop), form)
	e.metrics.RecordPlatformCall("token_exchange", status, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("token exchange for %s: %w", shop, err)
	}

	if status != http.StatusOK {
		var errResp errorResponse
		_ = json.Unmarshal(body, &errResp)
		if errResp.Error == invalidSubjectTokenCode {
			return &domain.ExchangeResult{
				Response: invalidTokenResponse,
				Log:      &domain.ResultLog{Code: invalidSubjectTokenCode, Detail: errResp.ErrorDescription},
			}, nil
		}

		e.logger.Warn().
			Int("status", status).
			Str("shop", shop).
			Str("error", errResp.Error).
			Msg("Token exchange rejected")
		return &domain.ExchangeResult{
			Response: domain.PlatformResponse{Status: http.StatusInternalServerError},
			Log: &domain.ResultLog{
				Code:   "token_exchange_failed",
				Detail: fmt.Sprintf("status %d: %s", status, strings.TrimSpace(string(body))),
			},
		}, nil
	}

	var tokenResp accessTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil || tokenResp.AccessToken == "" {
		return &domain.ExchangeResult{
			Response: domain.PlatformResponse{Status: http.StatusInternalServerError},
			Log:      &domain.ResultLog{Code: "token_exchange_failed", Detail: "malformed access token response"},
		}, nil
	}

	return &domain.ExchangeResult{
		OK:          true,
		AccessToken: tokenResp.toDomain(shop, time.Now()),
	}, nil
}

// postWithRetry posts form to endpoint, retrying transport failures and 5xx/429
// answers with exponential backoff
func (e *TokenExchangeClient) postWithRetry(ctx context.Context, endpoint string, form url.Values) (int, []byte, error) {
	var (
		status int
		body   []byte
	)

	operation := func() error {
		status, body = 0, nil

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create token request: %w", err))
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")

		resp, err := e.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		status = resp.StatusCode

		if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
			return fmt.Errorf("token endpoint returned %d", status)
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(e.newBackOff(), maxExchangeRetries), ctx)
	err := backoff.RetryNotify(operation, b, func(err error, next time.Duration) {
		e.logger.Debug().Err(err).Dur("next", next).Msg("Retrying token request")
	})
	if err != nil && status == 0 {
		return 0, nil, err
	}
	// a retried 5xx still carries the last answer
	return status, body, nil
}

// RefreshToken trades a refresh token for a new access token using the
// refresh_token grant
func (e *TokenExchangeClient) RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.ExchangeResult, error) {
	conf := &oauth2.Config{
		ClientID:     e.apiKey,
		ClientSecret: e.apiSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  e.tokenURL(req.Shop),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	current := &oauth2.Token{
		AccessToken:  req.Token,
		RefreshToken: req.RefreshToken,
		// an already-expired token forces the source to refresh
		Expiry: time.Now().Add(-time.Minute),
	}

	start := time.Now()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	token, err := conf.TokenSource(ctx, current).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			status := http.StatusInternalServerError
			if retrieveErr.Response != nil {
				status = retrieveErr.Response.StatusCode
			}
			e.metrics.RecordPlatformCall("token_refresh", status, time.Since(start))
			return &domain.ExchangeResult{
				Response: domain.PlatformResponse{Status: status},
				Log:      &domain.ResultLog{Code: "token_refresh_failed", Detail: retrieveErr.ErrorCode},
			}, nil
		}
		e.metrics.RecordPlatformCall("token_refresh", 0, time.Since(start))
		return nil, fmt.Errorf("refresh token for %s: %w", req.Shop, err)
	}
	e.metrics.RecordPlatformCall("token_refresh", http.StatusOK, time.Since(start))

	exchanged := &domain.ExchangedAccessToken{
		Shop:         req.Shop,
		Token:        token.AccessToken,
		Scope:        req.Scope,
		RefreshToken: token.RefreshToken,
	}
	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		exchanged.Scope = scope
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		exchanged.Expires = &expiry
	}
	if seconds, ok := token.Extra("refresh_token_expires_in").(float64); ok && seconds > 0 {
		refreshExpiry := start.Add(time.Duration(seconds) * time.Second)
		exchanged.RefreshTokenExpires = &refreshExpiry
	}

	return &domain.ExchangeResult{OK: true, AccessToken: exchanged}, nil
}

func (r *accessTokenResponse) toDomain(shop string, now time.Time) *domain.ExchangedAccessToken {
	token := &domain.ExchangedAccessToken{
		Shop:         shop,
		Token:        r.AccessToken,
		Scope:        r.Scope,
		RefreshToken: r.RefreshToken,
	}
	if r.ExpiresIn > 0 {
		expires := now.Add(time.Duration(r.ExpiresIn) * time.Second)
		token.Expires = &expires
	}
	if r.RefreshTokenExpiresIn > 0 {
		refreshExpires := now.Add(time.Duration(r.RefreshTokenExpiresIn) * time.Second)
		token.RefreshTokenExpires = &refreshExpires
	}
	if u := r.AssociatedUser; u != nil {
		token.User = &domain.ExchangedUser{
			ID:            u.ID,
			FirstName:     u.FirstName,
			LastName:      u.LastName,
			Email:         u.Email,
			EmailVerified: u.EmailVerified,
			AccountOwner:  u.AccountOwner,
			Locale:        u.Locale,
			Collaborator:  u.Collaborator,
		}
	}
	return token
}

// shopFromUnverifiedToken reads the destination shop of an id token that the
// verifier already accepted
func shopFromUnverifiedToken(idToken string) (string, error) {
	claims := &SessionTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return "", fmt.Errorf("failed to parse id token: %w", err)
	}
	shop := domain.SanitizeShopDomain(claims.Shop())
	if shop == "" {
		return "", errors.New("id token carries an invalid shop")
	}
	return shop, nil
}

var _ ports.TokenExchanger = (*TokenExchangeClient)(nil)
