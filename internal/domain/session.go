package domain

import (
	"fmt"
	"time"
)

// OnlineUserInfo describes the admin user an online session acts for
type OnlineUserInfo struct {
	UserID        int64  `json:"user_id" bson:"user_id"`
	FirstName     string `json:"first_name" bson:"first_name"`
	LastName      string `json:"last_name" bson:"last_name"`
	Email         string `json:"email" bson:"email"`
	EmailVerified bool   `json:"email_verified" bson:"email_verified"`
	AccountOwner  bool   `json:"account_owner" bson:"account_owner"`
	Locale        string `json:"locale" bson:"locale"`
	Collaborator  bool   `json:"collaborator" bson:"collaborator"`
}

// Session represents one authorized shop (offline) or shop/user pairing (online)
type Session struct {
	ID             string          `json:"id"`
	Shop           string          `json:"shop"`
	IsOnline       bool            `json:"is_online"`
	State          string          `json:"state,omitempty"`
	AccessToken    string          `json:"-"`
	Scope          string          `json:"scope"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
	OnlineUserInfo *OnlineUserInfo `json:"online_user_info,omitempty"`
}

// RefreshMetadata is the refresh-token side record kept next to a stored session
type RefreshMetadata struct {
	SessionID             string
	ExpiresAt             *time.Time
	RefreshToken          string
	RefreshTokenExpiresAt *time.Time
}

// IsValid reports whether the session carries a token that has not expired
func (s *Session) IsValid() bool {
	return s.IsValidAt(time.Now())
}

// IsValidAt is IsValid evaluated at the given instant
func (s *Session) IsValidAt(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}

// AccessMode returns the mode the session was created under
func (s *Session) AccessMode() AccessMode {
	if s.IsOnline {
		return AccessModeOnline
	}
	return AccessModeOffline
}

// OfflineSessionID returns the single session id used for a shop's offline grant
func OfflineSessionID(shop string) string {
	return "offline_" + shop
}

// OnlineSessionID returns the session id for a shop/user pairing
func OnlineSessionID(shop string, userID string) string {
	return fmt.Sprintf("%s_%s", shop, userID)
}

// SessionID derives the deterministic session id for (shop, mode, userID).
// Online mode without a user id falls back to the offline id.
func SessionID(shop string, mode AccessMode, userID string) string {
	switch mode {
	case AccessModeOnline:
		if userID != "" {
			return OnlineSessionID(shop, userID)
		}
		return OfflineSessionID(shop)
	case AccessModeOffline:
		return OfflineSessionID(shop)
	}
	return OfflineSessionID(shop)
}
