package ports

import (
	"context"
	"time"

	"github.com/loginbox/user-portal/internal/core/domain"
)

// LoginResult carries everything the transport layer needs after a
// successful credential check: the signed token, its unique issuance id,
// and when it stops being valid.
type LoginResult struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
	Account   *domain.Account
}

type AuthService interface {
	Signup(ctx context.Context, username, password string) (*domain.Account, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	// Logout revokes the presented token's issuance id for the remainder of
	// its lifetime. A missing or unparsable token is not an error: there is
	// nothing left to revoke.
	Logout(ctx context.Context, token string) error
}
