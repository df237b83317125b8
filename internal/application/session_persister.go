package application

import (
	"context"
	"strconv"

	"archie-core-shopify-app/internal/domain"
	"archie-core-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// SessionPersister turns exchanged access tokens into stored sessions
type SessionPersister struct {
	store         ports.SessionStore
	capabilities  Capabilities
	defaultScopes string
	logger        zerolog.Logger
}

// NewSessionPersister creates a new session persister
func NewSessionPersister(store ports.SessionStore, capabilities Capabilities, defaultScopes string, logger zerolog.Logger) *SessionPersister {
	return &SessionPersister{
		store:         store,
		capabilities:  capabilities,
		defaultScopes: defaultScopes,
		logger:        logger,
	}
}

// BuildSession derives the session for an exchanged token without storing it.
// It returns nil when the token's shop is not a valid shop domain.
func (p *SessionPersister) BuildSession(token *domain.ExchangedAccessToken, mode domain.AccessMode, userID string) *domain.Session {
	shop := domain.SanitizeShopDomain(token.Shop)
	if shop == "" {
		return nil
	}

	if userID == "" && token.User != nil && token.User.ID != 0 {
		userID = strconv.FormatInt(token.User.ID, 10)
	}

	session := &domain.Session{
		ID:          domain.SessionID(shop, mode, userID),
		Shop:        shop,
		IsOnline:    mode.IsOnline(),
		AccessToken: token.Token,
		Scope:       token.Scope,
	}
	if session.Scope == "" {
		session.Scope = p.defaultScopes
	}

	if token.Expires != nil {
		expires := *token.Expires
		session.ExpiresAt = &expires
	}

	if mode.IsOnline() && token.User != nil {
		session.OnlineUserInfo = &domain.OnlineUserInfo{
			UserID:        token.User.ID,
			FirstName:     token.User.FirstName,
			LastName:      token.User.LastName,
			Email:         token.User.Email,
			EmailVerified: token.User.EmailVerified,
			AccountOwner:  token.User.AccountOwner,
			Locale:        token.User.Locale,
			Collaborator:  token.User.Collaborator,
		}
	}

	return session
}

// StoreExchangedSession builds and stores the session for an exchanged token,
// then records its refresh metadata when the store supports it. A rejected
// write yields nil.
func (p *SessionPersister) StoreExchangedSession(ctx context.Context, token *domain.ExchangedAccessToken, mode domain.AccessMode, userID string) *domain.Session {
	session := p.BuildSession(token, mode, userID)
	if session == nil {
		p.logger.Warn().Str("shop", token.Shop).Msg("Exchanged token carries an invalid shop domain")
		return nil
	}

	if err := p.store.StoreSession(ctx, session); err != nil {
		p.logger.Warn().Err(err).Str("shop", session.Shop).Str("sessionId", session.ID).Msg("Failed to store exchanged session")
		return nil
	}

	p.persistRefreshMetadata(ctx, session.ID, token)
	return session
}

func (p *SessionPersister) persistRefreshMetadata(ctx context.Context, sessionID string, token *domain.ExchangedAccessToken) {
	if !p.capabilities.RefreshMetadata {
		return
	}

	if err := p.store.UpdateRefreshMetadata(ctx, sessionID, token.RefreshToken, token.RefreshTokenExpires); err != nil {
		p.logger.Warn().Err(err).Str("sessionId", sessionID).Msg("Failed to persist refresh token metadata")
	}
}
