package sale_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"stregsystem/internal/core/kroner"
	"stregsystem/internal/domain/achievement"
)

// Compile-time check.
var _ achievement.SaleCounter = (*SaleRepo)(nil)

// CountSales counts the member's sales matching the query.
func (r *SaleRepo) CountSales(ctx context.Context, q achievement.SaleQuery) (int64, error) {
	sel := r.saleQuerySelect("count(*)", q)
	sql, args, err := sel.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	var count int64
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sales: %w", err)
	}
	return count, nil
}

// SumSales sums the prices of the member's sales matching the query.
func (r *SaleRepo) SumSales(ctx context.Context, q achievement.SaleQuery) (kroner.Oere, error) {
	sel := r.saleQuerySelect("coalesce(sum(s.price), 0)", q)
	sql, args, err := sel.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	var sum int64
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum sales: %w", err)
	}
	return kroner.Oere(sum), nil
}

// saleQuerySelect translates a SaleQuery into SQL. The predicates must
// agree with SaleQuery.MatchesSale.
func (r *SaleRepo) saleQuerySelect(projection string, q achievement.SaleQuery) squirrel.SelectBuilder {
	sel := r.builder.Select(projection).
		From(salesTable + " s").
		Where(squirrel.Eq{"s.member_id": q.MemberID})

	if q.After != nil {
		sel = sel.Where(squirrel.GtOrEq{"s.timestamp": *q.After})
	}
	if q.ProductID != nil {
		sel = sel.Where(squirrel.Eq{"s.product_id": *q.ProductID})
	}
	if q.CategoryID != nil {
		sel = sel.Where(squirrel.Expr(
			"EXISTS (SELECT 1 FROM product_categories pc WHERE pc.product_id = s.product_id AND pc.category_id = ?)",
			*q.CategoryID))
	}
	for i := range q.Constraints {
		sel = applyConstraint(sel, &q.Constraints[i])
	}
	return sel
}

func applyConstraint(sel squirrel.SelectBuilder, c *achievement.Constraint) squirrel.SelectBuilder {
	if c.MonthStart != nil {
		sel = sel.Where(squirrel.Expr(
			"EXTRACT(MONTH FROM s.timestamp) BETWEEN ? AND ?", *c.MonthStart, *c.MonthEnd))
	}
	if c.DayStart != nil {
		sel = sel.Where(squirrel.Expr(
			"EXTRACT(DAY FROM s.timestamp) BETWEEN ? AND ?", *c.DayStart, *c.DayEnd))
	}
	if c.TimeStart != nil {
		start := c.TimeStart.Hour*60 + c.TimeStart.Minute
		end := c.TimeEnd.Hour*60 + c.TimeEnd.Minute
		minuteOfDay := "(EXTRACT(HOUR FROM s.timestamp) * 60 + EXTRACT(MINUTE FROM s.timestamp))"
		if start <= end {
			sel = sel.Where(squirrel.Expr(minuteOfDay+" BETWEEN ? AND ?", start, end))
		} else {
			// wraps midnight
			sel = sel.Where(squirrel.Expr("("+minuteOfDay+" >= ? OR "+minuteOfDay+" <= ?)", start, end))
		}
	}
	if c.Weekday != nil {
		// ISODOW is 1=Monday..7=Sunday; the domain counts 0=Monday.
		sel = sel.Where(squirrel.Expr("EXTRACT(ISODOW FROM s.timestamp) - 1 = ?", *c.Weekday))
	}
	return sel
}
