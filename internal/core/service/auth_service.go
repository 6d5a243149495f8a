package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/loginbox/user-portal/internal/core/domain"
	"github.com/loginbox/user-portal/internal/core/ports"
)

// AuthService implements signup, login, and logout against the account store.
type AuthService struct {
	repo      ports.AccountRepository
	revoker   ports.TokenRevoker
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewAuthService(repo ports.AccountRepository, revoker ports.TokenRevoker, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &AuthService{repo: repo, revoker: revoker, jwtSecret: []byte(jwtSecret), tokenTTL: tokenTTL}
}

// Signup creates a new account with a bcrypt hash of the password and zero
// activity fields. The store's unique index is the enforcement mechanism for
// duplicate usernames; Create surfaces it as domain.ErrAccountExists.
func (s *AuthService) Signup(ctx context.Context, username, password string) (*domain.Account, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, domain.ErrAccountExists
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Username:     username,
		PasswordHash: string(hash),
		LoginCount:   0,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Login verifies the credentials and issues a signed token. Unknown username
// and wrong password both come back as domain.ErrInvalidCredentials so the
// caller cannot be used for username enumeration.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// A malformed stored hash also fails the comparison, which is the
	// required treatment: non-match.
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	token, tokenID, expiresAt, err := s.issueToken(account.Username)
	if err != nil {
		return nil, err
	}

	return &ports.LoginResult{
		Token:     token,
		TokenID:   tokenID,
		ExpiresAt: expiresAt,
		Account:   account,
	}, nil
}

// Logout places the token's issuance id on the revocation list for the
// remainder of the token's lifetime. Tokens that are absent, unparsable, or
// already expired are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	tokenID, expiresAt, err := s.parseToken(token)
	if err != nil || tokenID == "" {
		return nil
	}

	remaining := time.Until(expiresAt)
	if remaining <= 0 {
		return nil
	}
	return s.revoker.Revoke(ctx, tokenID, remaining)
}

func (s *AuthService) issueToken(username string) (token, tokenID string, expiresAt time.Time, err error) {
	tokenID = uuid.NewString()
	expiresAt = time.Now().Add(s.tokenTTL)

	claims := jwt.MapClaims{
		"username": username,
		"jti":      tokenID,
		"exp":      expiresAt.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString(s.jwtSecret)
	return token, tokenID, expiresAt, err
}

func (s *AuthService) parseToken(token string) (tokenID string, expiresAt time.Time, err error) {
	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", time.Time{}, err
	}

	tokenID, _ = claims["jti"].(string)
	if exp, expErr := claims.GetExpirationTime(); expErr == nil && exp != nil {
		expiresAt = exp.Time
	}
	return tokenID, expiresAt, nil
}
