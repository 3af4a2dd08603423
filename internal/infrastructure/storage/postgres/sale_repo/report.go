package sale_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stregsystem/internal/domain/report"
	"stregsystem/internal/infrastructure/storage/postgres"
)

// Compile-time check.
var _ report.Repository = (*ReportRepo)(nil)

// ReportRepo implements report.Repository. All windows are (from, to].
type ReportRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// MoneyRank ranks active members by money spent in the window.
func (r *ReportRepo) MoneyRank(ctx context.Context, from, to time.Time, limit int) ([]*report.MemberRank, error) {
	sql := `
		SELECT m.id AS member_id, m.username, count(*) AS sale_count, sum(s.price) AS total
		FROM sales s
		JOIN members m ON m.id = s.member_id
		WHERE m.active AND s.timestamp > $1 AND s.timestamp <= $2
		GROUP BY m.id, m.username
		ORDER BY total DESC, m.username
		LIMIT $3
	`
	var ranks []*report.MemberRank
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &ranks, sql, from, to, limit); err != nil {
		return nil, fmt.Errorf("money rank: %w", err)
	}
	return ranks, nil
}

// ProductRank ranks members by sales of the given products in the window.
func (r *ReportRepo) ProductRank(ctx context.Context, productIDs []int64, from, to time.Time, limit int) ([]*report.MemberRank, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	q := r.builder.Select(
		"m.id AS member_id", "m.username",
		"count(*) AS sale_count", "sum(s.price) AS total").
		From("sales s").
		Join("members m ON m.id = s.member_id").
		Where("m.active").
		Where(squirrel.Eq{"s.product_id": productIDs}).
		Where(squirrel.Gt{"s.timestamp": from}).
		Where(squirrel.LtOrEq{"s.timestamp": to}).
		GroupBy("m.id", "m.username").
		OrderBy("sale_count DESC", "m.username").
		Limit(uint64(limit))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var ranks []*report.MemberRank
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &ranks, sql, args...); err != nil {
		return nil, fmt.Errorf("product rank: %w", err)
	}
	return ranks, nil
}

// SalesByProducts sums sales per product over the window.
func (r *ReportRepo) SalesByProducts(ctx context.Context, productIDs []int64, from, to time.Time) ([]*report.ProductSales, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	q := r.builder.Select(
		"p.id AS product_id", "p.name",
		"count(s.id) AS sale_count", "coalesce(sum(s.price), 0) AS total").
		From("products p").
		LeftJoin("sales s ON s.product_id = p.id AND s.timestamp > ? AND s.timestamp <= ?", from, to).
		Where(squirrel.Eq{"p.id": productIDs}).
		GroupBy("p.id", "p.name").
		OrderBy("p.name")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []*report.ProductSales
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("sales by products: %w", err)
	}
	return rows, nil
}

// CategoryProductIDs lists the product ids in a category.
func (r *ReportRepo) CategoryProductIDs(ctx context.Context, categoryID int64) ([]int64, error) {
	sql := "SELECT product_id FROM product_categories WHERE category_id = $1 ORDER BY product_id"
	var ids []int64
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &ids, sql, categoryID); err != nil {
		return nil, fmt.Errorf("list category products: %w", err)
	}
	return ids, nil
}
