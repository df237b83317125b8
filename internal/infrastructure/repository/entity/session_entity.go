package entity

import (
	"time"

	"archie-core-shopify-app/internal/domain"
)

// MongoOnlineUserDoc is the embedded admin-user record of an online session
type MongoOnlineUserDoc struct {
	UserID        int64  `bson:"userId"`
	FirstName     string `bson:"firstName"`
	LastName      string `bson:"lastName"`
	Email         string `bson:"email"`
	EmailVerified bool   `bson:"emailVerified"`
	AccountOwner  bool   `bson:"accountOwner"`
	Locale        string `bson:"locale"`
	Collaborator  bool   `bson:"collaborator"`
}

// MongoSessionDoc represents a shop session in MongoDB, keyed by session id
type MongoSessionDoc struct {
	ID                    string              `bson:"_id"`
	Shop                  string              `bson:"shop"`
	IsOnline              bool                `bson:"isOnline"`
	State                 string              `bson:"state"`
	Scope                 string              `bson:"scope"`
	AccessToken           string              `bson:"accessToken"`
	ExpiresAt             *time.Time          `bson:"expiresAt,omitempty"`
	OnlineUser            *MongoOnlineUserDoc `bson:"onlineUser,omitempty"`
	RefreshToken          *string             `bson:"refreshToken,omitempty"`
	RefreshTokenExpiresAt *time.Time          `bson:"refreshTokenExpiresAt,omitempty"`
	CreatedAt             time.Time           `bson:"createdAt"`
	UpdatedAt             time.Time           `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain session
func (d *MongoSessionDoc) ToDomain() *domain.Session {
	session := &domain.Session{
		ID:          d.ID,
		Shop:        d.Shop,
		IsOnline:    d.IsOnline,
		State:       d.State,
		Scope:       d.Scope,
		AccessToken: d.AccessToken,
		ExpiresAt:   d.ExpiresAt,
	}

	if d.OnlineUser != nil {
		session.OnlineUserInfo = &domain.OnlineUserInfo{
			UserID:        d.OnlineUser.UserID,
			FirstName:     d.OnlineUser.FirstName,
			LastName:      d.OnlineUser.LastName,
			Email:         d.OnlineUser.Email,
			EmailVerified: d.OnlineUser.EmailVerified,
			AccountOwner:  d.OnlineUser.AccountOwner,
			Locale:        d.OnlineUser.Locale,
			Collaborator:  d.OnlineUser.Collaborator,
		}
	}

	return session
}

// ToRefreshMetadata extracts the refresh-token record, or nil when none is stored
func (d *MongoSessionDoc) ToRefreshMetadata() *domain.RefreshMetadata {
	if d.RefreshToken == nil || *d.RefreshToken == "" {
		return nil
	}
	return &domain.RefreshMetadata{
		SessionID:             d.ID,
		ExpiresAt:             d.ExpiresAt,
		RefreshToken:          *d.RefreshToken,
		RefreshTokenExpiresAt: d.RefreshTokenExpiresAt,
	}
}

// MongoSessionDocFromDomain converts a domain session to a MongoDB document.
// Refresh-token fields are managed separately and left empty.
func MongoSessionDocFromDomain(session *domain.Session) *MongoSessionDoc {
	doc := &MongoSessionDoc{
		ID:          session.ID,
		Shop:        session.Shop,
		IsOnline:    session.IsOnline,
		State:       session.State,
		Scope:       session.Scope,
		AccessToken: session.AccessToken,
		ExpiresAt:   session.ExpiresAt,
	}

	if info := session.OnlineUserInfo; info != nil {
		doc.OnlineUser = &MongoOnlineUserDoc{
			UserID:        info.UserID,
			FirstName:     info.FirstName,
			LastName:      info.LastName,
			Email:         info.Email,
			EmailVerified: info.EmailVerified,
			AccountOwner:  info.AccountOwner,
			Locale:        info.Locale,
			Collaborator:  info.Collaborator,
		}
	}

	return doc
}
