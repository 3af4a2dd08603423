package payment_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/domain/payment"
	"stregsystem/internal/infrastructure/storage/postgres"
)

const mobilePaymentsTable = "mobile_payments"

var mobilePaymentColumns = []string{
	"id", "member_id", "payment_id", "customer_name", "timestamp",
	"amount", "transaction_id", "comment", "status",
}

// Compile-time check.
var _ payment.MobilePaymentRepository = (*MobilePaymentRepo)(nil)

// MobilePaymentRepo implements payment.MobilePaymentRepository.
type MobilePaymentRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewMobilePaymentRepo creates a new mobile payment repository.
func NewMobilePaymentRepo(txManager *postgres.TxManager) *MobilePaymentRepo {
	return &MobilePaymentRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *MobilePaymentRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(mobilePaymentColumns...).From(mobilePaymentsTable)
}

// Create inserts an ingested mobile payment and backfills its id.
func (r *MobilePaymentRepo) Create(ctx context.Context, mp *payment.MobilePayment) error {
	q := r.builder.Insert(mobilePaymentsTable).
		Columns(mobilePaymentColumns[1:]...).
		Values(mp.MemberID, mp.PaymentID, mp.CustomerName, mp.Timestamp,
			mp.Amount, mp.TransactionID, mp.Comment, mp.Status).
		Suffix("RETURNING id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&mp.ID); err != nil {
		return fmt.Errorf("insert mobile payment: %w", err)
	}
	return nil
}

// GetByID retrieves a mobile payment by id.
func (r *MobilePaymentRepo) GetByID(ctx context.Context, id int64) (*payment.MobilePayment, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": id}))
}

// GetForUpdate locks the row inside the current transaction.
func (r *MobilePaymentRepo) GetForUpdate(ctx context.Context, id int64) (*payment.MobilePayment, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": id}).Suffix("FOR UPDATE"))
}

// Update persists status, member and payment link changes.
func (r *MobilePaymentRepo) Update(ctx context.Context, mp *payment.MobilePayment) error {
	q := r.builder.Update(mobilePaymentsTable).
		Set("member_id", mp.MemberID).
		Set("payment_id", mp.PaymentID).
		Set("status", mp.Status).
		Where(squirrel.Eq{"id": mp.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update mobile payment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("mobile payment", mp.ID)
	}
	return nil
}

// ExistsTransactionID reports whether the psp reference was seen.
func (r *MobilePaymentRepo) ExistsTransactionID(ctx context.Context, transactionID string) (bool, error) {
	sql := "SELECT EXISTS (SELECT 1 FROM mobile_payments WHERE transaction_id = $1)"
	var exists bool
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, transactionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check transaction id: %w", err)
	}
	return exists, nil
}

// ListUnprocessed returns Unset rows without a payment, newest first.
func (r *MobilePaymentRepo) ListUnprocessed(ctx context.Context) ([]*payment.MobilePayment, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"status": payment.StatusUnset}).
		Where(squirrel.Eq{"payment_id": nil}).
		OrderBy("timestamp DESC")
	return r.list(ctx, q)
}

// ListUnprocessedMemberFilled returns Unset rows with a member guess and
// amount at or above the given floor.
func (r *MobilePaymentRepo) ListUnprocessedMemberFilled(ctx context.Context, minimum int64) ([]*payment.MobilePayment, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"status": payment.StatusUnset}).
		Where(squirrel.Eq{"payment_id": nil}).
		Where(squirrel.NotEq{"member_id": nil}).
		Where(squirrel.GtOrEq{"amount": minimum}).
		OrderBy("timestamp")
	return r.list(ctx, q)
}

// ListUnprocessedSignups returns Unset member-less rows whose comment
// matches the signup format. The format check reuses the domain parser
// so this stays in lockstep with it.
func (r *MobilePaymentRepo) ListUnprocessedSignups(ctx context.Context) ([]*payment.MobilePayment, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"status": payment.StatusUnset}).
		Where(squirrel.Eq{"payment_id": nil}).
		Where(squirrel.Eq{"member_id": nil}).
		Where(squirrel.Like{"comment": "signup:%"}).
		OrderBy("timestamp")

	candidates, err := r.list(ctx, q)
	if err != nil {
		return nil, err
	}
	signups := candidates[:0]
	for _, mp := range candidates {
		if payment.IsSignupComment(mp.Comment) {
			signups = append(signups, mp)
		}
	}
	return signups, nil
}

// ListApprovedUncommitted returns Approved rows with a member and no
// payment yet.
func (r *MobilePaymentRepo) ListApprovedUncommitted(ctx context.Context) ([]*payment.MobilePayment, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"status": payment.StatusApproved}).
		Where(squirrel.NotEq{"member_id": nil}).
		Where(squirrel.Eq{"payment_id": nil}).
		OrderBy("timestamp")
	return r.list(ctx, q)
}

func (r *MobilePaymentRepo) getOne(ctx context.Context, q squirrel.SelectBuilder) (*payment.MobilePayment, error) {
	sql, args, err := q.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	mp := &payment.MobilePayment{}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), mp, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("mobile payment", args)
		}
		return nil, fmt.Errorf("get mobile payment: %w", err)
	}
	return mp, nil
}

func (r *MobilePaymentRepo) list(ctx context.Context, q squirrel.SelectBuilder) ([]*payment.MobilePayment, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var payments []*payment.MobilePayment
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &payments, sql, args...); err != nil {
		return nil, fmt.Errorf("list mobile payments: %w", err)
	}
	return payments, nil
}
