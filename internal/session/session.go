// Package session holds the authenticated session that gates catalog access.
package session

import (
	"context"
	"time"
)

// Session is an authenticated user session.
type Session struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	IDToken      string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Gate exposes session presence and the operations that change it.
// SignIn and SignUp fail with an AuthError naming the failure kind.
type Gate interface {
	CurrentSession(ctx context.Context) (*Session, bool)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
}
