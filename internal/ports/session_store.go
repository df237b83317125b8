package ports

import (
	"context"
	"time"

	"archie-core-shopify-app/internal/domain"
)

// SessionStore defines the interface for shop session persistence.
// Load methods return nil, nil when no session exists.
type SessionStore interface {
	// LoadSession retrieves a session by its id
	LoadSession(ctx context.Context, id string) (*domain.Session, error)

	// LoadOfflineSession retrieves the offline session of a shop
	LoadOfflineSession(ctx context.Context, shop string) (*domain.Session, error)

	// StoreSession upserts a session keyed by its id
	StoreSession(ctx context.Context, session *domain.Session) error

	// FindRefreshMetadata returns the refresh record of a session, or nil when
	// the session is missing or carries no refresh token
	FindRefreshMetadata(ctx context.Context, id string) (*domain.RefreshMetadata, error)

	// UpdateRefreshMetadata writes refresh-token columns onto an existing session.
	// A missing session is not an error.
	UpdateRefreshMetadata(ctx context.Context, id string, refreshToken string, expiresAt *time.Time) error

	// SupportsRefreshMetadata reports whether the schema has refresh-token columns
	SupportsRefreshMetadata(ctx context.Context) (bool, error)
}

// SessionRemover deletes every stored session of a shop
type SessionRemover interface {
	DeleteSessionsByShop(ctx context.Context, shop string) (int64, error)
}

// InstallationChecker reports whether any stored session of a shop, online or
// offline, holds an access token
type InstallationChecker interface {
	HasTokenForShop(ctx context.Context, shop string) (bool, error)
}

// ShopCacheInvalidator drops cached per-shop platform answers
type ShopCacheInvalidator interface {
	Forget(ctx context.Context, shop string) error
}
