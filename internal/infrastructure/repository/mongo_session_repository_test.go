package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"archie-core-shopify-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func setupMongo(t *testing.T) *MongoSessionRepository {
	t.Helper()

	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI not set")
	}

	ctx := testContext(t)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("test mongo unreachable: %v", err)
	}

	db := client.Database("shopify_app_test")
	require.NoError(t, db.Drop(ctx))
	t.Cleanup(func() {
		// t.Context is already canceled when cleanups run
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	repo := NewMongoSessionRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))
	return repo
}

func TestMongoSessionRepository_StoreAndRefresh(t *testing.T) {
	repo := setupMongo(t)
	ctx := testContext(t)

	id := domain.OfflineSessionID("shop.myshopify.com")
	missing, err := repo.LoadSession(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.StoreSession(ctx, &domain.Session{ID: id, Shop: "shop.myshopify.com", AccessToken: "shpat_1"}))

	meta, err := repo.FindRefreshMetadata(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, meta)

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.UpdateRefreshMetadata(ctx, id, "shprt_1", &expires))
	require.NoError(t, repo.StoreSession(ctx, &domain.Session{ID: id, Shop: "shop.myshopify.com", AccessToken: "shpat_2"}))

	got, err := repo.LoadOfflineSession(ctx, "shop.myshopify.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "shpat_2", got.AccessToken)

	meta, err = repo.FindRefreshMetadata(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "shprt_1", meta.RefreshToken)

	supported, err := repo.SupportsRefreshMetadata(ctx)
	require.NoError(t, err)
	assert.True(t, supported)

	installed, err := repo.HasTokenForShop(ctx, "shop.myshopify.com")
	require.NoError(t, err)
	assert.True(t, installed)

	deleted, err := repo.DeleteSessionsByShop(ctx, "shop.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	installed, err = repo.HasTokenForShop(ctx, "shop.myshopify.com")
	require.NoError(t, err)
	assert.False(t, installed)
}

func TestMongoSessionRepository_HasTokenForShop_OnlineOnly(t *testing.T) {
	repo := setupMongo(t)
	ctx := testContext(t)

	shop := "online-only.myshopify.com"
	require.NoError(t, repo.StoreSession(ctx, &domain.Session{ID: domain.OnlineSessionID(shop, "7"), Shop: shop, IsOnline: true, AccessToken: "shpua"}))
	require.NoError(t, repo.StoreSession(ctx, &domain.Session{ID: domain.OfflineSessionID("tokenless.myshopify.com"), Shop: "tokenless.myshopify.com"}))

	installed, err := repo.HasTokenForShop(ctx, shop)
	require.NoError(t, err)
	assert.True(t, installed)

	installed, err = repo.HasTokenForShop(ctx, "tokenless.myshopify.com")
	require.NoError(t, err)
	assert.False(t, installed)
}
