package ports

import (
	"context"

	"github.com/loginbox/user-portal/internal/core/domain"
)

// SessionStore abstracts server-side session state so the backing store
// (redis, in-memory, ...) is swappable. Get must return
// domain.ErrSessionNotFound for unknown or expired ids.
type SessionStore interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Destroy(ctx context.Context, id string) error
}
