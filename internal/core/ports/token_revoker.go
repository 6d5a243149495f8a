package ports

import (
	"context"
	"time"
)

// TokenRevoker is the denylist consulted by the auth gate. Revoked ids only
// need to be remembered until the token they belong to expires on its own,
// hence the ttl on Revoke.
type TokenRevoker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}
