package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"archie-core-shopify-app/internal/domain"
	"archie-core-shopify-app/internal/ports"
)

const sessionColumns = `session_id, shop, is_online, state, scope, access_token, expires_at,
	user_id, user_first_name, user_last_name, user_email, user_email_verified,
	account_owner, locale, collaborator`

// PostgresSessionRepository implements SessionStore using PostgreSQL
type PostgresSessionRepository struct {
	db *sql.DB
}

// NewPostgresSessionRepository creates a new PostgreSQL session repository
func NewPostgresSessionRepository(db *sql.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

// LoadSession retrieves a session by id. Returns nil when not found.
func (r *PostgresSessionRepository) LoadSession(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE session_id = $1`,
		id,
	)

	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// LoadOfflineSession retrieves the offline session of a shop
func (r *PostgresSessionRepository) LoadOfflineSession(ctx context.Context, shop string) (*domain.Session, error) {
	return r.LoadSession(ctx, domain.OfflineSessionID(shop))
}

// StoreSession upserts a session by session_id, leaving refresh columns as they are
func (r *PostgresSessionRepository) StoreSession(ctx context.Context, session *domain.Session) error {
	var (
		userID                                    sql.NullInt64
		firstName, lastName, email, locale        sql.NullString
		emailVerified, accountOwner, collaborator sql.NullBool
	)
	if info := session.OnlineUserInfo; info != nil {
		userID = sql.NullInt64{Int64: info.UserID, Valid: true}
		firstName = sql.NullString{String: info.FirstName, Valid: true}
		lastName = sql.NullString{String: info.LastName, Valid: true}
		email = sql.NullString{String: info.Email, Valid: true}
		locale = sql.NullString{String: info.Locale, Valid: true}
		emailVerified = sql.NullBool{Bool: info.EmailVerified, Valid: true}
		accountOwner = sql.NullBool{Bool: info.AccountOwner, Valid: true}
		collaborator = sql.NullBool{Bool: info.Collaborator, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now(), now())
		 ON CONFLICT (session_id) DO UPDATE SET
			shop = EXCLUDED.shop,
			is_online = EXCLUDED.is_online,
			state = EXCLUDED.state,
			scope = EXCLUDED.scope,
			access_token = EXCLUDED.access_token,
			expires_at = EXCLUDED.expires_at,
			user_id = EXCLUDED.user_id,
			user_first_name = EXCLUDED.user_first_name,
			user_last_name = EXCLUDED.user_last_name,
			user_email = EXCLUDED.user_email,
			user_email_verified = EXCLUDED.user_email_verified,
			account_owner = EXCLUDED.account_owner,
			locale = EXCLUDED.locale,
			collaborator = EXCLUDED.collaborator,
			updated_at = now()`,
		session.ID, session.Shop, session.IsOnline, session.State, session.Scope,
		session.AccessToken, nullTime(session.ExpiresAt),
		userID, firstName, lastName, email, emailVerified, accountOwner, locale, collaborator,
	)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// FindRefreshMetadata returns the refresh record of a session, or nil when
// the session has no refresh token
func (r *PostgresSessionRepository) FindRefreshMetadata(ctx context.Context, id string) (*domain.RefreshMetadata, error) {
	var (
		token            string
		expiresAt        sql.NullTime
		refreshExpiresAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT refresh_token, expires_at, refresh_token_expires_at
		 FROM sessions
		 WHERE session_id = $1 AND refresh_token IS NOT NULL`,
		id,
	).Scan(&token, &expiresAt, &refreshExpiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}
	if token == "" {
		return nil, nil
	}

	return &domain.RefreshMetadata{
		SessionID:             id,
		ExpiresAt:             timePtr(expiresAt),
		RefreshToken:          token,
		RefreshTokenExpiresAt: timePtr(refreshExpiresAt),
	}, nil
}

// UpdateRefreshMetadata writes refresh columns on an existing row. A missing row is not an error.
func (r *PostgresSessionRepository) UpdateRefreshMetadata(ctx context.Context, id string, refreshToken string, expiresAt *time.Time) error {
	token := sql.NullString{String: refreshToken, Valid: refreshToken != ""}

	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions
		 SET refresh_token = $2, refresh_token_expires_at = $3, updated_at = now()
		 WHERE session_id = $1`,
		id, token, nullTime(expiresAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update refresh token: %w", err)
	}
	return nil
}

// SupportsRefreshMetadata reports whether both refresh columns exist on the sessions table
func (r *PostgresSessionRepository) SupportsRefreshMetadata(ctx context.Context) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM information_schema.columns
		 WHERE table_schema = current_schema()
		   AND table_name = 'sessions'
		   AND column_name IN ('refresh_token', 'refresh_token_expires_at')`,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to inspect sessions schema: %w", err)
	}
	return count == 2, nil
}

// DeleteSessionsByShop removes every session of a shop
func (r *PostgresSessionRepository) DeleteSessionsByShop(ctx context.Context, shop string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE shop = $1`, shop)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	return result.RowsAffected()
}

// HasTokenForShop reports whether any session of shop carries an access token
func (r *PostgresSessionRepository) HasTokenForShop(ctx context.Context, shop string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM sessions
		   WHERE shop = $1 AND access_token IS NOT NULL AND access_token <> ''
		 )`,
		shop,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check installation: %w", err)
	}
	return exists, nil
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var (
		session                                   domain.Session
		scope, accessToken                        sql.NullString
		expiresAt                                 sql.NullTime
		userID                                    sql.NullInt64
		firstName, lastName, email, locale        sql.NullString
		emailVerified, accountOwner, collaborator sql.NullBool
	)

	err := row.Scan(
		&session.ID, &session.Shop, &session.IsOnline, &session.State, &scope, &accessToken, &expiresAt,
		&userID, &firstName, &lastName, &email, &emailVerified, &accountOwner, &locale, &collaborator,
	)
	if err != nil {
		return nil, err
	}

	session.Scope = scope.String
	session.AccessToken = accessToken.String
	session.ExpiresAt = timePtr(expiresAt)

	if userID.Valid {
		session.OnlineUserInfo = &domain.OnlineUserInfo{
			UserID:        userID.Int64,
			FirstName:     firstName.String,
			LastName:      lastName.String,
			Email:         email.String,
			EmailVerified: emailVerified.Bool,
			AccountOwner:  accountOwner.Bool,
			Locale:        locale.String,
			Collaborator:  collaborator.Bool,
		}
	}

	return &session, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// compile-time interface checks
var (
	_ ports.SessionStore        = (*PostgresSessionRepository)(nil)
	_ ports.SessionRemover      = (*PostgresSessionRepository)(nil)
	_ ports.InstallationChecker = (*PostgresSessionRepository)(nil)
)
