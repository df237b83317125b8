package application

import (
	"context"
	"encoding/json"
	"fmt"

	"archie-core-shopify-app/internal/domain"
	"archie-core-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler removes a shop's sessions and cached billing state
// when the app is uninstalled
type AppUninstalledHandler struct {
	sessions ports.SessionRemover
	cache    ports.ShopCacheInvalidator
	logger   zerolog.Logger
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler. cache may be nil.
func NewAppUninstalledHandler(sessions ports.SessionRemover, cache ports.ShopCacheInvalidator, logger zerolog.Logger) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		sessions: sessions,
		cache:    cache,
		logger:   logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == domain.TopicAppUninstalled
}

// Handle processes an app uninstalled webhook event
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shop := domain.SanitizeShopDomain(event.Shop)
	if shop == "" {
		var payload struct {
			MyshopifyDomain string `json:"myshopify_domain"`
		}
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("failed to parse app uninstalled webhook payload: %w", err)
		}
		shop = domain.SanitizeShopDomain(payload.MyshopifyDomain)
	}
	if shop == "" {
		return fmt.Errorf("app uninstalled webhook carries no valid shop")
	}

	deleted, err := h.sessions.DeleteSessionsByShop(ctx, shop)
	if err != nil {
		return fmt.Errorf("failed to delete sessions of %s: %w", shop, err)
	}

	if h.cache != nil {
		if err := h.cache.Forget(ctx, shop); err != nil {
			h.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to drop cached billing state")
		}
	}

	h.logger.Info().
		Str("shop", shop).
		Int64("deletedSessions", deleted).
		Msg("App uninstalled - cleanup completed")
	return nil
}
