package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"archie-core-shopify-app/internal/domain"

	"github.com/rs/zerolog"
)

// WebhookHandler processes webhook events of the topics it accepts
type WebhookHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookPubSub delivers verified webhook events to every matching handler
type WebhookPubSub struct {
	mu       sync.RWMutex
	handlers []WebhookHandler
	logger   zerolog.Logger
}

// NewWebhookPubSub creates a new webhook pub/sub system
func NewWebhookPubSub(logger zerolog.Logger) *WebhookPubSub {
	return &WebhookPubSub{logger: logger}
}

// Subscribe registers a handler
func (ps *WebhookPubSub) Subscribe(handler WebhookHandler) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.handlers = append(ps.handlers, handler)
}

// Publish runs every handler that accepts the event's topic. All handlers run
// even when one fails; their errors are joined.
func (ps *WebhookPubSub) Publish(ctx context.Context, event *domain.WebhookEvent) error {
	ps.mu.RLock()
	handlers := make([]WebhookHandler, len(ps.handlers))
	copy(handlers, ps.handlers)
	ps.mu.RUnlock()

	var (
		errs    []error
		handled int
	)
	for _, handler := range handlers {
		if !handler.CanHandle(event.Topic) {
			continue
		}
		handled++
		if err := handler.Handle(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s handler: %w", event.Topic, err))
		}
	}

	if handled == 0 {
		ps.logger.Debug().
			Str("topic", event.Topic).
			Str("shop", event.Shop).
			Msg("No handler for webhook topic")
	}

	return errors.Join(errs...)
}
