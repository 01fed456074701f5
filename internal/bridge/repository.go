package bridge

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Link records the Naver tokens held for a backend user. Written on every
// Naver login; the mobile client never reads it back.
type Link struct {
	UserID         uuid.UUID
	NaverID        string
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt time.Time
	UpdatedAt      time.Time
}

// LinkRepository persists provider links keyed by user ID.
type LinkRepository interface {
	// FindUserIDByNaverID returns the linked user ID, or uuid.Nil when no
	// link exists.
	FindUserIDByNaverID(ctx context.Context, naverID string) (uuid.UUID, error)

	// FindByUserID returns the link for a user, or nil when none exists.
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Link, error)

	// Upsert inserts the link or replaces the existing one for the same user.
	Upsert(ctx context.Context, link Link) error
}
