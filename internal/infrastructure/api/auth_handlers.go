package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"archie-core-shopify-app/internal/application"
	"archie-core-shopify-app/internal/domain"

	"github.com/rs/zerolog"
)

// Installer runs the authorization code grant
type Installer interface {
	Begin(w http.ResponseWriter, shop string) (string, error)
	Callback(ctx context.Context, r *http.Request) (*domain.ExchangedAccessToken, error)
	ClearState(w http.ResponseWriter)
	EmbeddedAppURL(shop string) string
}

// SessionSaver persists a freshly granted token
type SessionSaver interface {
	StoreExchangedSession(ctx context.Context, token *domain.ExchangedAccessToken, mode domain.AccessMode, userID string) *domain.Session
}

// SessionCookieWriter sets the session id cookie of non-embedded apps
type SessionCookieWriter interface {
	Write(w http.ResponseWriter, sessionID string, expires *time.Time) error
}

// AuthHandlers serves the install entry point and its callback
type AuthHandlers struct {
	installer  Installer
	persister  SessionSaver
	cookie     SessionCookieWriter
	redirector *Redirector
	isEmbedded bool
	logger     zerolog.Logger
}

// NewAuthHandlers creates the auth endpoints
func NewAuthHandlers(
	installer Installer,
	persister SessionSaver,
	cookie SessionCookieWriter,
	redirector *Redirector,
	isEmbedded bool,
	logger zerolog.Logger,
) *AuthHandlers {
	return &AuthHandlers{
		installer:  installer,
		persister:  persister,
		cookie:     cookie,
		redirector: redirector,
		isEmbedded: isEmbedded,
		logger:     logger,
	}
}

// Begin starts the OAuth flow
func (h *AuthHandlers) Begin(w http.ResponseWriter, r *http.Request) {
	shop := domain.SanitizeShopDomain(r.URL.Query().Get("shop"))
	if shop == "" {
		http.Error(w, "shop parameter is required", http.StatusBadRequest)
		return
	}

	// the platform refuses to render its grant screen inside an iframe
	if h.isEmbedded && r.URL.Query().Get("embedded") == "1" {
		h.redirector.TopLevel(w, r, application.DefaultAuthPath+"?shop="+url.QueryEscape(shop))
		return
	}

	authURL, err := h.installer.Begin(w, shop)
	if err != nil {
		h.logger.Error().Err(err).Str("shop", shop).Msg("Failed to begin OAuth")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback completes the OAuth flow and stores the offline session
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, err := h.installer.Callback(ctx, r)
	if err != nil {
		h.logger.Warn().Err(err).Str("shop", r.URL.Query().Get("shop")).Msg("OAuth callback rejected")
		http.Error(w, "Invalid session", http.StatusUnauthorized)
		return
	}
	h.installer.ClearState(w)

	session := h.persister.StoreExchangedSession(ctx, token, domain.AccessModeOffline, "")
	if session == nil {
		http.Error(w, "Failed to complete installation", http.StatusInternalServerError)
		return
	}

	h.logger.Info().Str("shop", session.Shop).Msg("OAuth completed successfully")

	if h.isEmbedded {
		http.Redirect(w, r, h.installer.EmbeddedAppURL(session.Shop), http.StatusFound)
		return
	}

	if err := h.cookie.Write(w, session.ID, session.ExpiresAt); err != nil {
		h.logger.Error().Err(err).Str("shop", session.Shop).Msg("Failed to set session cookie")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	params := url.Values{}
	params.Set("shop", session.Shop)
	if host := r.URL.Query().Get("host"); host != "" {
		params.Set("host", host)
	}
	http.Redirect(w, r, "/?"+params.Encode(), http.StatusFound)
}
