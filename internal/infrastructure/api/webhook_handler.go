package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"archie-core-shopify-app/internal/domain"

	"github.com/rs/zerolog"
)

// WebhookVerifier checks the HMAC of a webhook delivery
type WebhookVerifier interface {
	VerifyWebhook(r *http.Request) bool
}

// WebhookPublisher fans a verified event out to its handlers
type WebhookPublisher interface {
	Publish(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookHandler accepts platform webhook deliveries
func WebhookHandler(verifier WebhookVerifier, publisher WebhookPublisher, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topic := r.Header.Get("X-Shopify-Topic")
		if topic == "" {
			logger.Warn().Msg("Missing X-Shopify-Topic header")
			http.Error(w, "Missing X-Shopify-Topic header", http.StatusBadRequest)
			return
		}

		if !verifier.VerifyWebhook(r) {
			logger.Warn().Str("topic", topic).Msg("Webhook signature verification failed")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read webhook payload")
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		event := &domain.WebhookEvent{
			Topic:   topic,
			Shop:    r.Header.Get("X-Shopify-Shop-Domain"),
			Payload: payload,
		}

		if err := publisher.Publish(r.Context(), event); err != nil {
			logger.Error().
				Err(err).
				Str("topic", topic).
				Str("shop", event.Shop).
				Msg("Failed to dispatch webhook event")

			// a non-2xx makes the platform retry the delivery
			http.Error(w, "Failed to process webhook event", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"received": "true",
		})
	}
}
