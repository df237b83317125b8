package domain

import "time"

// PlatformResponse is an HTTP response prescribed by the platform library
type PlatformResponse struct {
	Status  int
	Body    string
	Headers map[string][]string
}

// ResultLog is the optional log record attached to a platform result
type ResultLog struct {
	Code   string
	Detail string
}

// VerificationResult is the outcome of verifying an embedded request's session token
type VerificationResult struct {
	OK      bool
	Shop    string
	IDToken string
	UserID  string

	// Response is what to send when OK is false
	Response PlatformResponse
	// NewIDTokenResponse asks the embedding frame for a fresh id token
	NewIDTokenResponse PlatformResponse
	Log                *ResultLog
}

// ExchangedUser is the associated user returned by an online token exchange
type ExchangedUser struct {
	ID            int64
	FirstName     string
	LastName      string
	Email         string
	EmailVerified bool
	AccountOwner  bool
	Locale        string
	Collaborator  bool
}

// ExchangedAccessToken is an access token granted by a token or refresh exchange
type ExchangedAccessToken struct {
	Shop                string
	Token               string
	Scope               string
	Expires             *time.Time
	RefreshToken        string
	RefreshTokenExpires *time.Time
	User                *ExchangedUser
}

// ExchangeResult is the outcome of a token exchange or refresh
type ExchangeResult struct {
	OK          bool
	AccessToken *ExchangedAccessToken
	Response    PlatformResponse
	Log         *ResultLog
}

// RefreshRequest carries what the refresh grant needs
type RefreshRequest struct {
	AccessMode          AccessMode
	Shop                string
	Token               string
	Expires             *time.Time
	Scope               string
	RefreshToken        string
	RefreshTokenExpires *time.Time
}
