package domain

import "time"

// Session is the server-side marker of an authenticated browsing context,
// created at login and destroyed at logout. The bearer token is the proof of
// identity for protected resources; the session only records that a browser
// is currently logged in.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
