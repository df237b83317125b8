package shopify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"archie-core-shopify-app/internal/domain"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/gorilla/securecookie"
	"github.com/rs/zerolog"
)

const (
	// StateCookieName carries the OAuth state between /api/auth and its callback
	StateCookieName = "shopify_app_state"

	stateCookieMaxAge = 600
)

var errNoStateCookie = errors.New("no oauth state cookie")

// OAuthInstaller runs the authorization-code grant used to install the app
type OAuthInstaller struct {
	app    goshopify.App
	apiKey string
	scopes []string
	state  *securecookie.SecureCookie
	logger zerolog.Logger
}

// NewOAuthInstaller creates an installer that redirects back to redirectURL
func NewOAuthInstaller(apiKey, apiSecret, redirectURL string, scopes []string, hashKey []byte, logger zerolog.Logger) *OAuthInstaller {
	sc := securecookie.New(hashKey, nil)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(stateCookieMaxAge)

	return &OAuthInstaller{
		app: goshopify.App{
			ApiKey:      apiKey,
			ApiSecret:   apiSecret,
			RedirectUrl: redirectURL,
			Scope:       strings.Join(scopes, ","),
		},
		apiKey: apiKey,
		scopes: scopes,
		state:  sc,
		logger: logger,
	}
}

// Begin stores a fresh state cookie on w and returns the platform authorize URL
func (o *OAuthInstaller) Begin(w http.ResponseWriter, shop string) (string, error) {
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := hex.EncodeToString(stateBytes)

	encoded, err := o.state.Encode(StateCookieName, state)
	if err != nil {
		return "", fmt.Errorf("failed to encode state: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   stateCookieMaxAge,
		Expires:  time.Now().Add(stateCookieMaxAge * time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	authURL, err := o.app.AuthorizeUrl(shop, state)
	if err != nil {
		return "", fmt.Errorf("failed to build authorize url: %w", err)
	}

	o.logger.Info().
		Str("shop", shop).
		Strs("scopes", o.scopes).
		Msg("Generated OAuth authorization URL")

	return authURL, nil
}

// Callback verifies the callback signature and state, then trades the code
// for an offline access token
func (o *OAuthInstaller) Callback(ctx context.Context, r *http.Request) (*domain.ExchangedAccessToken, error) {
	query := r.URL.Query()
	shop := domain.SanitizeShopDomain(query.Get("shop"))
	code := query.Get("code")
	if shop == "" || code == "" || query.Get("state") == "" {
		return nil, errors.New("missing required parameters")
	}

	ok, err := o.app.VerifyAuthorizationURL(r.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to verify callback: %w", err)
	}
	if !ok {
		return nil, errors.New("invalid callback signature")
	}

	state, err := o.readState(r)
	if err != nil {
		return nil, err
	}
	if state != query.Get("state") {
		return nil, errors.New("oauth state mismatch")
	}

	token, err := o.app.GetAccessToken(ctx, shop, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	return &domain.ExchangedAccessToken{
		Shop:  shop,
		Token: token,
	}, nil
}

// ClearState expires the state cookie
func (o *OAuthInstaller) ClearState(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
	})
}

// EmbeddedAppURL is where a merchant lands after installing an embedded app
func (o *OAuthInstaller) EmbeddedAppURL(shop string) string {
	return fmt.Sprintf("https://%s/admin/apps/%s", shop, url.PathEscape(o.apiKey))
}

func (o *OAuthInstaller) readState(r *http.Request) (string, error) {
	cookie, err := r.Cookie(StateCookieName)
	if err != nil {
		return "", errNoStateCookie
	}
	var state string
	if err := o.state.Decode(StateCookieName, cookie.Value, &state); err != nil {
		return "", fmt.Errorf("malformed oauth state: %w", err)
	}
	return state, nil
}

// VerifyWebhook checks the HMAC signature of a webhook delivery. The body is
// left readable.
func (o *OAuthInstaller) VerifyWebhook(r *http.Request) bool {
	return o.app.VerifyWebhookRequest(r)
}
