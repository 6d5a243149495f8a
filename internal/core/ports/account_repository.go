package ports

import (
	"context"
	"time"

	"github.com/loginbox/user-portal/internal/core/domain"
)

// AccountRepository defines the persistence interface for account records.
// The backing store owns the uniqueness constraint on username; Create must
// return domain.ErrAccountExists when it is violated.
type AccountRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	ListAll(ctx context.Context) ([]*domain.Account, error)

	// RecordLogin atomically sets login_time and increments login_count.
	RecordLogin(ctx context.Context, username string, at time.Time) error
	// RecordLogout atomically sets logout_time.
	RecordLogout(ctx context.Context, username string, at time.Time) error
}
