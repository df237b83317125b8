package application

import (
	"context"
	"errors"
	"testing"

	"archie-core-shopify-app/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemover struct {
	shops []string
	err   error
}

func (f *fakeRemover) DeleteSessionsByShop(ctx context.Context, shop string) (int64, error) {
	f.shops = append(f.shops, shop)
	return 2, f.err
}

type fakeInvalidator struct {
	shops []string
}

func (f *fakeInvalidator) Forget(ctx context.Context, shop string) error {
	f.shops = append(f.shops, shop)
	return errors.New("cache unavailable")
}

func TestAppUninstalledHandler(t *testing.T) {
	remover := &fakeRemover{}
	cache := &fakeInvalidator{}
	handler := NewAppUninstalledHandler(remover, cache, zerolog.Nop())

	assert.True(t, handler.CanHandle("app/uninstalled"))
	assert.False(t, handler.CanHandle("orders/create"))

	err := handler.Handle(testContext(t), &domain.WebhookEvent{Topic: domain.TopicAppUninstalled, Shop: "Test-Shop.myshopify.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{testShop}, remover.shops)
	assert.Equal(t, []string{testShop}, cache.shops)
}

func TestAppUninstalledHandler_ShopFromPayload(t *testing.T) {
	remover := &fakeRemover{}
	handler := NewAppUninstalledHandler(remover, nil, zerolog.Nop())

	err := handler.Handle(testContext(t), &domain.WebhookEvent{
		Topic:   domain.TopicAppUninstalled,
		Payload: []byte(`{"myshopify_domain":"test-shop.myshopify.com"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{testShop}, remover.shops)

	assert.Error(t, handler.Handle(testContext(t), &domain.WebhookEvent{Topic: domain.TopicAppUninstalled, Payload: []byte(`{}`)}))
}

func TestAppUninstalledHandler_StoreError(t *testing.T) {
	handler := NewAppUninstalledHandler(&fakeRemover{err: errors.New("db down")}, nil, zerolog.Nop())
	assert.Error(t, handler.Handle(testContext(t), &domain.WebhookEvent{Shop: testShop}))
}
