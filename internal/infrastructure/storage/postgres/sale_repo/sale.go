// Package sale_repo provides the PostgreSQL implementation of everything
// read from or written to the sales table: the sale rows themselves plus
// the aggregations behind physiology, achievements, heatmaps and reports.
package sale_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/domain/order"
	"stregsystem/internal/infrastructure/storage/postgres"
)

const salesTable = "sales"

var saleColumns = []string{"id", "member_id", "product_id", "room_id", "timestamp", "price"}

// Compile-time check.
var _ order.Repository = (*SaleRepo)(nil)

// SaleRepo implements order.Repository and the sale aggregation ports.
type SaleRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateBulk appends sale rows in one statement.
func (r *SaleRepo) CreateBulk(ctx context.Context, sales []*order.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	q := r.builder.Insert(salesTable).
		Columns("member_id", "product_id", "room_id", "timestamp", "price")
	for _, s := range sales {
		q = q.Values(s.MemberID, s.ProductID, s.RoomID, s.Timestamp, s.Price)
	}
	q = q.Suffix("RETURNING id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	rows, err := r.txManager.GetQuerier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("insert sales: %w", err)
	}
	defer rows.Close()
	for i := 0; rows.Next(); i++ {
		if err := rows.Scan(&sales[i].ID); err != nil {
			return fmt.Errorf("scan sale id: %w", err)
		}
	}
	return rows.Err()
}

// GetByID retrieves a sale by id.
func (r *SaleRepo) GetByID(ctx context.Context, id int64) (*order.Sale, error) {
	sql, args, err := r.builder.Select(saleColumns...).
		From(salesTable).
		Where(squirrel.Eq{"id": id}).
		Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	s := &order.Sale{}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", id)
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return s, nil
}

// Delete removes a sale row. Only the reimbursement flow calls this.
func (r *SaleRepo) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.builder.Delete(salesTable).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("sale", id)
	}
	return nil
}

// ListRecent returns the member's sales strictly after the instant,
// newest first.
func (r *SaleRepo) ListRecent(ctx context.Context, memberID int64, after time.Time) ([]*order.Sale, error) {
	q := r.builder.Select(saleColumns...).
		From(salesTable).
		Where(squirrel.Eq{"member_id": memberID}).
		Where(squirrel.Gt{"timestamp": after}).
		OrderBy("timestamp DESC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var sales []*order.Sale
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &sales, sql, args...); err != nil {
		return nil, fmt.Errorf("list recent sales: %w", err)
	}
	return sales, nil
}
