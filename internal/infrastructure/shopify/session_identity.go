package shopify

import (
	"errors"
	"net/http"
	"time"

	"archie-core-shopify-app/internal/domain"
	"archie-core-shopify-app/internal/ports"

	"github.com/gorilla/securecookie"
)

const (
	// SessionCookieName carries the session id of non-embedded requests
	SessionCookieName = "shopify_app_session"

	sessionCookieMaxAge = 30 * 24 * 3600
)

// SessionCookie signs and reads the session id cookie
type SessionCookie struct {
	sc *securecookie.SecureCookie
}

// NewSessionCookie creates a cookie codec signed with hashKey
func NewSessionCookie(hashKey []byte) *SessionCookie {
	sc := securecookie.New(hashKey, nil)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(sessionCookieMaxAge)
	return &SessionCookie{sc: sc}
}

// Read returns the session id from r, or "" when the cookie is absent
func (c *SessionCookie) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	var sessionID string
	if err := c.sc.Decode(SessionCookieName, cookie.Value, &sessionID); err != nil {
		return "", err
	}
	return sessionID, nil
}

// Write sets the session id cookie on w
func (c *SessionCookie) Write(w http.ResponseWriter, sessionID string, expires *time.Time) error {
	encoded, err := c.sc.Encode(SessionCookieName, sessionID)
	if err != nil {
		return err
	}

	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
	if expires != nil {
		cookie.Expires = *expires
	} else {
		cookie.MaxAge = sessionCookieMaxAge
	}
	http.SetCookie(w, cookie)
	return nil
}

// SessionIdentity derives the current session id from a session token when
// the app is embedded, and from the signed session cookie otherwise
type SessionIdentity struct {
	verifier   *SessionTokenVerifier
	cookie     *SessionCookie
	isEmbedded bool
}

// NewSessionIdentity creates a new session identity resolver
func NewSessionIdentity(verifier *SessionTokenVerifier, cookie *SessionCookie, isEmbedded bool) *SessionIdentity {
	return &SessionIdentity{
		verifier:   verifier,
		cookie:     cookie,
		isEmbedded: isEmbedded,
	}
}

// CurrentSessionID returns "" when the request identifies no session
func (i *SessionIdentity) CurrentSessionID(r *http.Request, mode domain.AccessMode) (string, error) {
	if i.isEmbedded {
		raw := SessionTokenFromRequest(r)
		if raw == "" {
			return "", nil
		}
		claims, err := i.verifier.ParseSessionToken(raw)
		if err != nil {
			return "", err
		}
		shop := domain.SanitizeShopDomain(claims.Shop())
		if shop == "" {
			return "", errors.New("session token carries an invalid shop")
		}
		return domain.SessionID(shop, mode, claims.Subject), nil
	}

	return i.cookie.Read(r)
}

var _ ports.SessionIdentity = (*SessionIdentity)(nil)
