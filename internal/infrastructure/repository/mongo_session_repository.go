package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"archie-core-shopify-app/internal/domain"
	"archie-core-shopify-app/internal/infrastructure/repository/entity"
	"archie-core-shopify-app/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSessionRepository implements SessionStore using MongoDB
type MongoSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionRepository creates a new MongoDB session repository
func NewMongoSessionRepository(db *mongo.Database) *MongoSessionRepository {
	return &MongoSessionRepository{
		collection: db.Collection("shopify_sessions"),
	}
}

// EnsureIndexes creates the shop lookup index
func (r *MongoSessionRepository) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "shop", Value: 1}},
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create session index: %w", err)
	}
	return nil
}

// LoadSession retrieves a session by id
func (r *MongoSessionRepository) LoadSession(ctx context.Context, id string) (*domain.Session, error) {
	doc, err := r.findDoc(ctx, bson.M{"_id": id})
	if err != nil || doc == nil {
		return nil, err
	}
	return doc.ToDomain(), nil
}

// LoadOfflineSession retrieves the offline session of a shop
func (r *MongoSessionRepository) LoadOfflineSession(ctx context.Context, shop string) (*domain.Session, error) {
	return r.LoadSession(ctx, domain.OfflineSessionID(shop))
}

// StoreSession upserts a session by id without touching its refresh-token fields
func (r *MongoSessionRepository) StoreSession(ctx context.Context, session *domain.Session) error {
	doc := entity.MongoSessionDocFromDomain(session)
	now := time.Now()

	set := bson.M{
		"shop":        doc.Shop,
		"isOnline":    doc.IsOnline,
		"state":       doc.State,
		"scope":       doc.Scope,
		"accessToken": doc.AccessToken,
		"expiresAt":   doc.ExpiresAt,
		"onlineUser":  doc.OnlineUser,
		"updatedAt":   now,
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"createdAt": now},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": doc.ID}, update, opts); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

// FindRefreshMetadata returns the refresh record of a session
func (r *MongoSessionRepository) FindRefreshMetadata(ctx context.Context, id string) (*domain.RefreshMetadata, error) {
	doc, err := r.findDoc(ctx, bson.M{
		"_id":          id,
		"refreshToken": bson.M{"$ne": nil},
	})
	if err != nil || doc == nil {
		return nil, err
	}
	return doc.ToRefreshMetadata(), nil
}

// UpdateRefreshMetadata sets refresh-token fields on an existing session
func (r *MongoSessionRepository) UpdateRefreshMetadata(ctx context.Context, id string, refreshToken string, expiresAt *time.Time) error {
	var token *string
	if refreshToken != "" {
		token = &refreshToken
	}

	update := bson.M{
		"$set": bson.M{
			"refreshToken":          token,
			"refreshTokenExpiresAt": expiresAt,
			"updatedAt":             time.Now(),
		},
	}

	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return fmt.Errorf("failed to update refresh token: %w", err)
	}
	return nil
}

// SupportsRefreshMetadata is always true: documents carry the refresh fields on demand
func (r *MongoSessionRepository) SupportsRefreshMetadata(ctx context.Context) (bool, error) {
	return true, nil
}

// DeleteSessionsByShop removes every session of a shop
func (r *MongoSessionRepository) DeleteSessionsByShop(ctx context.Context, shop string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"shop": shop})
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	return result.DeletedCount, nil
}

// HasTokenForShop reports whether any session of shop carries an access token
func (r *MongoSessionRepository) HasTokenForShop(ctx context.Context, shop string) (bool, error) {
	filter := bson.M{
		"shop":        shop,
		"accessToken": bson.M{"$nin": bson.A{nil, ""}},
	}
	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count > 0, nil
}

func (r *MongoSessionRepository) findDoc(ctx context.Context, filter bson.M) (*entity.MongoSessionDoc, error) {
	var doc entity.MongoSessionDoc
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &doc, nil
}

// compile-time interface checks
var (
	_ ports.SessionStore        = (*MongoSessionRepository)(nil)
	_ ports.SessionRemover      = (*MongoSessionRepository)(nil)
	_ ports.InstallationChecker = (*MongoSessionRepository)(nil)
)
