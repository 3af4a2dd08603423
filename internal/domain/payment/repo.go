package payment

import (
	"context"
)

// Repository persists payments.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id int64) (*Payment, error)
	Delete(ctx context.Context, id int64) error
	// GetLastByMember returns the member's most recent payment, or a
	// not-found error.
	GetLastByMember(ctx context.Context, memberID int64) (*Payment, error)
}

// MobilePaymentRepository persists ingested mobile payments.
type MobilePaymentRepository interface {
	Create(ctx context.Context, mp *MobilePayment) error
	GetByID(ctx context.Context, id int64) (*MobilePayment, error)
	// GetForUpdate locks the row inside the current transaction.
	GetForUpdate(ctx context.Context, id int64) (*MobilePayment, error)
	Update(ctx context.Context, mp *MobilePayment) error

	// ExistsTransactionID reports whether the psp reference was seen.
	ExistsTransactionID(ctx context.Context, transactionID string) (bool, error)

	// ListUnprocessed returns Unset rows without a payment, newest first.
	ListUnprocessed(ctx context.Context) ([]*MobilePayment, error)

	// ListUnprocessedMemberFilled returns Unset rows with a member guess
	// and amount at or above the given floor. The auto-approval job works
	// off this set.
	ListUnprocessedMemberFilled(ctx context.Context, minimum int64) ([]*MobilePayment, error)

	// ListUnprocessedSignups returns Unset member-less rows whose comment
	// matches the signup format.
	ListUnprocessedSignups(ctx context.Context) ([]*MobilePayment, error)

	// ListApprovedUncommitted returns Approved rows with a member and no
	// payment yet.
	ListApprovedUncommitted(ctx context.Context) ([]*MobilePayment, error)
}

// Auditor records administrative actions to the append-only audit log.
type Auditor interface {
	Record(ctx context.Context, actor, action string, details map[string]any) error
}
