package sale_repo

import (
	"context"
	"fmt"
	"time"

	"stregsystem/internal/domain/physiology"
)

// Compile-time check.
var _ physiology.TimelineRepository = (*SaleRepo)(nil)

// DrinkTimeline returns one event per sale of an alcohol-containing
// product after the given instant, oldest first.
func (r *SaleRepo) DrinkTimeline(ctx context.Context, memberID int64, after time.Time) ([]physiology.DrinkEvent, error) {
	sql := `
		SELECT s.timestamp, p.alcohol_content_ml
		FROM sales s
		JOIN products p ON p.id = s.product_id
		WHERE s.member_id = $1 AND s.timestamp > $2 AND p.alcohol_content_ml > 0
		ORDER BY s.timestamp
	`
	rows, err := r.txManager.GetQuerier(ctx).Query(ctx, sql, memberID, after)
	if err != nil {
		return nil, fmt.Errorf("query drink timeline: %w", err)
	}
	defer rows.Close()

	var events []physiology.DrinkEvent
	for rows.Next() {
		var e physiology.DrinkEvent
		if err := rows.Scan(&e.Timestamp, &e.AlcoholML); err != nil {
			return nil, fmt.Errorf("scan drink event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CaffeineIntakes returns one intake per sale of a caffeinated product
// after the given instant, oldest first.
func (r *SaleRepo) CaffeineIntakes(ctx context.Context, memberID int64, after time.Time) ([]physiology.Intake, error) {
	sql := `
		SELECT s.timestamp, p.caffeine_content_mg
		FROM sales s
		JOIN products p ON p.id = s.product_id
		WHERE s.member_id = $1 AND s.timestamp > $2 AND p.caffeine_content_mg > 0
		ORDER BY s.timestamp
	`
	rows, err := r.txManager.GetQuerier(ctx).Query(ctx, sql, memberID, after)
	if err != nil {
		return nil, fmt.Errorf("query caffeine intakes: %w", err)
	}
	defer rows.Close()

	var intakes []physiology.Intake
	for rows.Next() {
		var in physiology.Intake
		if err := rows.Scan(&in.Timestamp, &in.MG); err != nil {
			return nil, fmt.Errorf("scan caffeine intake: %w", err)
		}
		intakes = append(intakes, in)
	}
	return intakes, rows.Err()
}
