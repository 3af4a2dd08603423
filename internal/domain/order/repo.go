package order

import (
	"context"
	"time"
)

// Repository persists sales.
type Repository interface {
	// CreateBulk appends sale rows in one statement.
	CreateBulk(ctx context.Context, sales []*Sale) error

	GetByID(ctx context.Context, id int64) (*Sale, error)

	// Delete removes a sale row. Only the reimbursement flow calls this.
	Delete(ctx context.Context, id int64) error

	// ListRecent returns the member's sales with timestamp strictly after
	// the given instant.
	ListRecent(ctx context.Context, memberID int64, after time.Time) ([]*Sale, error)
}
