package application

import (
	"context"

	"archie-core-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// Capabilities are store features detected once at startup
type Capabilities struct {
	RefreshMetadata bool
}

// DetectCapabilities probes the session store. A failed probe disables the feature.
func DetectCapabilities(ctx context.Context, store ports.SessionStore, logger zerolog.Logger) Capabilities {
	supports, err := store.SupportsRefreshMetadata(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to detect refresh-token columns, refresh disabled")
		return Capabilities{}
	}

	logger.Info().Bool("refresh_metadata", supports).Msg("Session store capabilities detected")
	return Capabilities{RefreshMetadata: supports}
}
