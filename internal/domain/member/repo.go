package member

import (
	"context"

	"github.com/google/uuid"

	"stregsystem/internal/core/kroner"
)

// Repository defines the interface for member persistence.
type Repository interface {
	// Create inserts a new member.
	Create(ctx context.Context, m *Member) error

	// GetByID retrieves a member by id.
	GetByID(ctx context.Context, id int64) (*Member, error)

	// GetByUsername retrieves an active member by username, matched
	// case-insensitively. Usernames are unique among active members.
	GetByUsername(ctx context.Context, username string) (*Member, error)

	// ListActiveByExactUsername returns active members whose username
	// matches byte-for-byte. Auto-approval requires exactly one hit.
	ListActiveByExactUsername(ctx context.Context, username string) ([]*Member, error)

	// GetForUpdate retrieves a member with a row lock. Must be called
	// inside a transaction; it serializes balance mutations.
	GetForUpdate(ctx context.Context, id int64) (*Member, error)

	// UpdateBalance persists a new balance for a locked member row.
	UpdateBalance(ctx context.Context, id int64, balance kroner.Oere) error

	// Update persists mutable member fields (flags, notes, email).
	Update(ctx context.Context, m *Member) error

	// UsernameTaken reports whether any member holds the username.
	UsernameTaken(ctx context.Context, username string) (bool, error)
}

// SignupRepository persists pending signups.
type SignupRepository interface {
	Create(ctx context.Context, s *PendingSignup) error
	GetByID(ctx context.Context, id int64) (*PendingSignup, error)
	GetByToken(ctx context.Context, token uuid.UUID) (*PendingSignup, error)
	GetByMember(ctx context.Context, memberID int64) (*PendingSignup, error)
	// GetForUpdate locks the signup row inside the current transaction.
	GetForUpdate(ctx context.Context, id int64) (*PendingSignup, error)
	Update(ctx context.Context, s *PendingSignup) error
	Delete(ctx context.Context, id int64) error
	// ListUnprocessed returns signups still in the Unset state.
	ListUnprocessed(ctx context.Context) ([]*PendingSignup, error)
}
