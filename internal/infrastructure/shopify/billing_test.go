package shopify

import (
	"errors"
	"testing"

	"archie-core-shopify-app/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBillingSession = &domain.Session{
	ID:          "offline_shop.myshopify.com",
	Shop:        "shop.myshopify.com",
	AccessToken: "shpat",
}

func recurringConfig() domain.BillingConfig {
	return domain.BillingConfig{
		Required:     true,
		ChargeName:   "Pro plan",
		Amount:       9.99,
		CurrencyCode: "USD",
		Interval:     domain.BillingIntervalEvery30Days,
	}
}

func TestBillingChecker_ActiveSubscription(t *testing.T) {
	client := &fakeGraphQL{responses: []string{
		`{"currentAppInstallation":{"activeSubscriptions":[{"name":"Other","test":false},{"name":"Pro plan","test":false}]}}`,
	}}

	result := NewBillingChecker(client, "api-key", zerolog.Nop()).Check(testContext(t), testBillingSession, recurringConfig())
	assert.Equal(t, domain.HasPayment(), result)
	assert.Len(t, client.queries, 1)
}

func TestBillingChecker_TestChargeIgnoredInProduction(t *testing.T) {
	client := &fakeGraphQL{responses: []string{
		`{"currentAppInstallation":{"activeSubscriptions":[{"name":"Pro plan","test":true}]}}`,
		`{"appSubscriptionCreate":{"confirmationUrl":"https://shop.myshopify.com/admin/charges/1/confirm","userErrors":[]}}`,
	}}

	result := NewBillingChecker(client, "api-key", zerolog.Nop()).Check(testContext(t), testBillingSession, recurringConfig())
	assert.Equal(t, domain.BillingNeedsPayment, result.Status)
	assert.Equal(t, "https://shop.myshopify.com/admin/charges/1/confirm", result.ConfirmationURL)

	require.Len(t, client.vars, 2)
	assert.Equal(t, "https://shop.myshopify.com/admin/apps/api-key", client.vars[1]["returnUrl"])
	assert.Equal(t, "Pro plan", client.vars[1]["name"])
}

func TestBillingChecker_OneTimePaginates(t *testing.T) {
	config := recurringConfig()
	config.Interval = domain.BillingIntervalOneTime

	client := &fakeGraphQL{responses: []string{
		`{"currentAppInstallation":{"oneTimePurchases":{"edges":[{"node":{"name":"Pro plan","test":false,"status":"DECLINED"}}],"pageInfo":{"hasNextPage":true,"endCursor":"c1"}}}}`,
		`{"currentAppInstallation":{"oneTimePurchases":{"edges":[{"node":{"name":"Pro plan","test":false,"status":"ACTIVE"}}],"pageInfo":{"hasNextPage":false,"endCursor":"c2"}}}}`,
	}}

	result := NewBillingChecker(client, "api-key", zerolog.Nop()).Check(testContext(t), testBillingSession, config)
	assert.Equal(t, domain.HasPayment(), result)

	require.Len(t, client.vars, 2)
	cursor, ok := client.vars[1]["endCursor"].(*string)
	require.True(t, ok)
	assert.Equal(t, "c1", *cursor)
}

func TestBillingChecker_Failures(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeGraphQL
	}{
		{
			name:   "query error",
			client: &fakeGraphQL{errs: []error{errors.New("connection reset")}},
		},
		{
			name: "user errors",
			client: &fakeGraphQL{responses: []string{
				`{"currentAppInstallation":{"activeSubscriptions":[]}}`,
				`{"appSubscriptionCreate":{"confirmationUrl":"","userErrors":[{"field":["price"],"message":"Price is invalid"}]}}`,
			}},
		},
		{
			name: "missing confirmation url",
			client: &fakeGraphQL{responses: []string{
				`{"currentAppInstallation":{"activeSubscriptions":[]}}`,
				`{"appSubscriptionCreate":{"confirmationUrl":"","userErrors":[]}}`,
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewBillingChecker(tt.client, "api-key", zerolog.Nop()).Check(testContext(t), testBillingSession, recurringConfig())
			assert.Equal(t, domain.BillingCheckFailed, result.Status)
			assert.NotEmpty(t, result.Reason)
		})
	}
}

func TestCachedBillingChecker(t *testing.T) {
	store := newFakeKeyValueStore()
	next := &fakeBillingChecker{result: domain.HasPayment()}
	cached := NewCachedBillingChecker(next, store, 0, nil, zerolog.Nop())

	assert.Equal(t, domain.HasPayment(), cached.Check(testContext(t), testBillingSession, recurringConfig()))
	assert.Equal(t, domain.HasPayment(), cached.Check(testContext(t), testBillingSession, recurringConfig()))
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, 1, store.sets)

	// another charge name is not covered by the cached payment
	other := recurringConfig()
	other.ChargeName = "Enterprise plan"
	cached.Check(testContext(t), testBillingSession, other)
	assert.Equal(t, 2, next.calls)

	require.NoError(t, cached.Forget(testContext(t), testBillingSession.Shop))
	cached.Check(testContext(t), testBillingSession, recurringConfig())
	assert.Equal(t, 3, next.calls)
}

func TestCachedBillingChecker_DoesNotCacheShortfall(t *testing.T) {
	store := newFakeKeyValueStore()
	next := &fakeBillingChecker{result: domain.NeedsPayment("https://confirm")}
	cached := NewCachedBillingChecker(next, store, 0, nil, zerolog.Nop())

	cached.Check(testContext(t), testBillingSession, recurringConfig())
	cached.Check(testContext(t), testBillingSession, recurringConfig())
	assert.Equal(t, 2, next.calls)
	assert.Zero(t, store.sets)
}

func TestCachedBillingChecker_StoreErrorFallsThrough(t *testing.T) {
	store := newFakeKeyValueStore()
	store.getErr = errors.New("redis down")
	next := &fakeBillingChecker{result: domain.CheckFailed("boom")}

	result := NewCachedBillingChecker(next, store, 0, nil, zerolog.Nop()).Check(testContext(t), testBillingSession, recurringConfig())
	assert.Equal(t, domain.CheckFailed("boom"), result)
	assert.Equal(t, 1, next.calls)
}
