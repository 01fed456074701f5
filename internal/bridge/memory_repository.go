package bridge

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryLinkRepository stores links in an in-process map, ideal for local
// development or tests.
type InMemoryLinkRepository struct {
	mu     sync.RWMutex
	byUser map[uuid.UUID]Link
}

// NewInMemoryLinkRepository constructs an empty repository.
func NewInMemoryLinkRepository() *InMemoryLinkRepository {
	return &InMemoryLinkRepository{byUser: make(map[uuid.UUID]Link)}
}

// FindUserIDByNaverID looks up the linked user by Naver ID.
func (r *InMemoryLinkRepository) FindUserIDByNaverID(_ context.Context, naverID string) (uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for userID, link := range r.byUser {
		if link.NaverID == naverID {
			return userID, nil
		}
	}
	return uuid.Nil, nil
}

// FindByUserID returns the stored link for a user.
func (r *InMemoryLinkRepository) FindByUserID(_ context.Context, userID uuid.UUID) (*Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.byUser[userID]
	if !ok {
		return nil, nil
	}
	copied := link
	return &copied, nil
}

// Upsert writes the link, replacing any existing entry for the same user.
func (r *InMemoryLinkRepository) Upsert(_ context.Context, link Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byUser[link.UserID] = link
	return nil
}
