package application

import (
	"context"

	"archie-core-shopify-app/internal/domain"
	"archie-core-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// RefreshCoordinator silently renews expired sessions from stored refresh tokens
type RefreshCoordinator struct {
	store        ports.SessionStore
	exchanger    ports.TokenExchanger
	persister    *SessionPersister
	capabilities Capabilities
	logger       zerolog.Logger
}

// NewRefreshCoordinator creates a new refresh coordinator
func NewRefreshCoordinator(
	store ports.SessionStore,
	exchanger ports.TokenExchanger,
	persister *SessionPersister,
	capabilities Capabilities,
	logger zerolog.Logger,
) *RefreshCoordinator {
	return &RefreshCoordinator{
		store:        store,
		exchanger:    exchanger,
		persister:    persister,
		capabilities: capabilities,
		logger:       logger,
	}
}

// Refresh returns a renewed, stored session or nil. The given session is never modified.
func (c *RefreshCoordinator) Refresh(ctx context.Context, session *domain.Session) *domain.Session {
	if !c.capabilities.RefreshMetadata {
		return nil
	}

	meta, err := c.store.FindRefreshMetadata(ctx, session.ID)
	if err != nil {
		c.logger.Debug().Err(err).Str("sessionId", session.ID).Msg("Failed to load refresh token")
		return nil
	}
	if meta == nil || meta.RefreshToken == "" {
		return nil
	}

	// Only platform-hosted shop domains can be refreshed.
	handle := domain.StripPlatformSuffix(session.Shop)
	if handle == "" || handle == session.Shop {
		return nil
	}

	result, err := c.exchanger.RefreshToken(ctx, domain.RefreshRequest{
		AccessMode:          session.AccessMode(),
		Shop:                session.Shop,
		Token:               session.AccessToken,
		Expires:             meta.ExpiresAt,
		Scope:               session.Scope,
		RefreshToken:        meta.RefreshToken,
		RefreshTokenExpires: meta.RefreshTokenExpiresAt,
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("shop", session.Shop).Msg("Refresh token exchange failed")
		return nil
	}
	if !result.OK || result.AccessToken == nil {
		c.logger.Info().Str("shop", session.Shop).Int("status", result.Response.Status).Msg("Refresh token rejected")
		return nil
	}

	token := *result.AccessToken
	if token.Shop == "" {
		token.Shop = session.Shop
	}

	refreshed := c.persister.StoreExchangedSession(ctx, &token, session.AccessMode(), "")
	if refreshed != nil {
		c.logger.Info().Str("shop", refreshed.Shop).Msg("Session renewed from refresh token")
	}
	return refreshed
}
