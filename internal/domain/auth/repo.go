package auth

import (
	"context"
)

// UserRepository is the persistence port for admin accounts.
type UserRepository interface {
	Create(ctx context.Context, user *AdminUser) error
	GetByID(ctx context.Context, id int64) (*AdminUser, error)
	// GetByUsername matches exactly; admin usernames are case-sensitive.
	GetByUsername(ctx context.Context, username string) (*AdminUser, error)
	Update(ctx context.Context, user *AdminUser) error
	Exists(ctx context.Context, username string) (bool, error)
	// SetCapabilities replaces the account's capability grants.
	SetCapabilities(ctx context.Context, userID int64, caps []Capability) error
}

// TokenRepository stores hashed refresh tokens.
type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id int64, reason string) error
	RevokeAllUserTokens(ctx context.Context, userID int64, reason string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
