package cache

import (
	"context"
	"errors"
	"time"
)

// RevocationList records logged-out session IDs until their tokens would
// have expired anyway. The auth service writes it, the API reads it.
type RevocationList struct {
	helper *CacheHelper
}

func NewRevocationList(cm *CacheManager) *RevocationList {
	return &RevocationList{helper: cm.Revoked}
}

// Revoke marks sessionID as revoked for ttl. A non-positive ttl means the
// token is already expired and nothing is stored.
func (r *RevocationList) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.helper.SetString(ctx, sessionID, "1", ttl)
}

// IsRevoked reports whether sessionID was revoked. Without redis nothing is
// ever revoked.
func (r *RevocationList) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	revoked, err := r.helper.Exists(ctx, sessionID)
	if errors.Is(err, ErrCacheNotAvailable) {
		return false, nil
	}
	return revoked, err
}
