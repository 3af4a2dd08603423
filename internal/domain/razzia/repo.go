package razzia

import (
	"context"
)

// Repository persists razzias and their entries.
type Repository interface {
	Create(ctx context.Context, r *Razzia) error
	GetByID(ctx context.Context, id int64) (*Razzia, error)
	Update(ctx context.Context, r *Razzia) error
	// ListRecent returns the newest razzias first.
	ListRecent(ctx context.Context, limit int) ([]*Razzia, error)

	CreateEntry(ctx context.Context, e *Entry) error
	// ListEntries returns the member's entries for the razzia, newest
	// first.
	ListEntries(ctx context.Context, razziaID, memberID int64) ([]*Entry, error)
	// MemberCounts aggregates distinct members with their entry counts.
	MemberCounts(ctx context.Context, razziaID int64) ([]*MemberCount, error)
}
