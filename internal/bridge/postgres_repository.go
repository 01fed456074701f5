package bridge

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PostgresLinkRepository implements LinkRepository using PostgreSQL.
type PostgresLinkRepository struct {
	db *sqlx.DB
}

// NewPostgresLinkRepository creates a new PostgresLinkRepository.
func NewPostgresLinkRepository(db *sqlx.DB) *PostgresLinkRepository {
	return &PostgresLinkRepository{db: db}
}

// FindUserIDByNaverID looks up the linked user by Naver ID.
func (r *PostgresLinkRepository) FindUserIDByNaverID(ctx context.Context, naverID string) (uuid.UUID, error) {
	const query = `SELECT user_id FROM naver_auth WHERE naver_id = $1`

	var userID uuid.UUID
	if err := r.db.GetContext(ctx, &userID, query, naverID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}
	return userID, nil
}

// FindByUserID returns the stored link for a user.
func (r *PostgresLinkRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*Link, error) {
	const query = `
		SELECT user_id, naver_id, access_token, refresh_token, token_expires_at, updated_at
		FROM naver_auth
		WHERE user_id = $1
	`

	var row linkRow
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toLink(), nil
}

// Upsert writes the link, replacing any existing row for the same user.
func (r *PostgresLinkRepository) Upsert(ctx context.Context, link Link) error {
	const query = `
		INSERT INTO naver_auth (user_id, naver_id, access_token, refresh_token, token_expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			naver_id = EXCLUDED.naver_id,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		link.UserID,
		link.NaverID,
		link.AccessToken,
		nullableString(link.RefreshToken),
		link.TokenExpiresAt,
		link.UpdatedAt,
	)
	return err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// linkRow is a database row representation of Link.
type linkRow struct {
	UserID         uuid.UUID      `db:"user_id"`
	NaverID        string         `db:"naver_id"`
	AccessToken    string         `db:"access_token"`
	RefreshToken   sql.NullString `db:"refresh_token"`
	TokenExpiresAt time.Time      `db:"token_expires_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r *linkRow) toLink() *Link {
	return &Link{
		UserID:         r.UserID,
		NaverID:        r.NaverID,
		AccessToken:    r.AccessToken,
		RefreshToken:   r.RefreshToken.String,
		TokenExpiresAt: r.TokenExpiresAt,
		UpdatedAt:      r.UpdatedAt,
	}
}
