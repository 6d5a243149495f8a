package domain

import (
	"errors"
	"time"
)

// Account models a registered user of the portal. The username is the unique
// key and never changes after signup; activity fields are only touched by the
// login and logout flows.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	LoginTime    time.Time `json:"login_time,omitzero"`
	LogoutTime   time.Time `json:"logout_time,omitzero"`
	LoginCount   int64     `json:"login_count"`
	CreatedAt    time.Time `json:"created_at"`
}

var (
	ErrAccountExists      = errors.New("account already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
)
