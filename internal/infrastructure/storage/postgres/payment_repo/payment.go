// Package payment_repo provides the PostgreSQL implementation of the
// payment and mobile-payment repositories.
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

const paymentsTable = "payments"

var paymentColumns = []string{"id", "member_id", "timestamp", "amount", "notes"}

// Compile-time check.
var _ payment.Repository = (*PaymentRepo)(nil)

// PaymentRepo implements payment.Repository.
type PaymentRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewPaymentRepo creates a new payment repository.
func NewPaymentRepo(txManager *postgres.TxManager) *PaymentRepo {
	return &PaymentRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a payment and backfills its id.
func (r *PaymentRepo) Create(ctx context.Context, p *payment.Payment) error {
	q := r.builder.Insert(paymentsTable).
		Columns("member_id", "timestamp", "amount", "notes").
		Values(p.MemberID, p.Timestamp, p.Amount, p.Notes).
		Suffix("RETURNING id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&p.ID); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID retrieves a payment by id.
func (r *PaymentRepo) GetByID(ctx context.Context, id int64) (*payment.Payment, error) {
	q := r.builder.Select(paymentColumns...).
		From(paymentsTable).
		Where(squirrel.Eq{"id": id}).
		Limit(1)
	return r.getOne(ctx, q, id)
}

// Delete removes a payment row; payments are create/delete only.
func (r *PaymentRepo) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.builder.Delete(paymentsTable).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("payment", id)
	}
	return nil
}

// GetLastByMember returns the member's most recent payment.
func (r *PaymentRepo) GetLastByMember(ctx context.Context, memberID int64) (*payment.Payment, error) {
	q := r.builder.Select(paymentColumns...).
		From(paymentsTable).
		Where(squirrel.Eq{"member_id": memberID}).
		OrderBy("timestamp DESC").
		Limit(1)
	return r.getOne(ctx, q, memberID)
}

func (r *PaymentRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key any) (*payment.Payment, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	p := &payment.Payment{}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("payment", key)
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}
