package domain

import "context"

type contextKey string

const sessionContextKey contextKey = "shopifySession"

// WithSession attaches an authorized session to the context
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// GetSessionFromContext returns the authorized session, or nil
func GetSessionFromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionContextKey).(*Session)
	return session
}
