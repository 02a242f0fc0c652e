package domain

import "time"

// User is the application's read-only projection of an identity provider account.
type User struct {
	ID    UserID
	Email string

	CreatedAt   time.Time
	LastLoginAt *time.Time

	IsAdmin bool
}

// Session is the proof of authentication issued by the identity provider at login.
// It is never persisted by the application beyond cookies.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time

	User User
}
