package sale_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"stregsystem/internal/domain/heatmap"
)

// Compile-time check.
var _ heatmap.Repository = (*SaleRepo)(nil)

// ListSaleProducts returns the member's purchases in [from, to), newest
// first, with the price snapshot of each sale row.
func (r *SaleRepo) ListSaleProducts(ctx context.Context, memberID int64, from, to time.Time) ([]heatmap.SaleProduct, error) {
	sql := `
		SELECT product_id, price, timestamp
		FROM sales
		WHERE member_id = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp DESC
	`
	var products []heatmap.SaleProduct
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &products, sql, memberID, from, to); err != nil {
		return nil, fmt.Errorf("list sale products: %w", err)
	}
	return products, nil
}

// CategoryProductIDs lists the product ids in the named category.
func (r *SaleRepo) CategoryProductIDs(ctx context.Context, name string) ([]int64, error) {
	sql := `
		SELECT pc.product_id
		FROM product_categories pc
		JOIN categories c ON c.id = pc.category_id
		WHERE c.name = $1
		ORDER BY pc.product_id
	`
	var ids []int64
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &ids, sql, name); err != nil {
		return nil, fmt.Errorf("list category products: %w", err)
	}
	return ids, nil
}
