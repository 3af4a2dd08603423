// Package kiosk_repo implements kiosk rotation storage on PostgreSQL.
package kiosk_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stregsystem/internal/domain/kiosk"
	"stregsystem/internal/infrastructure/storage/postgres"
)

var _ kiosk.Repository = (*KioskRepo)(nil)

const kioskItemsTable = "kiosk_items"

var kioskItemColumns = []string{
	"id", "name", "kind", "url", "active", "ordering", "start_at", "end_at",
}

// KioskRepo stores the kiosk rotation items.
type KioskRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewKioskRepo creates a new kiosk repository.
func NewKioskRepo(txManager *postgres.TxManager) *KioskRepo {
	return &KioskRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ListShown returns the active items whose window covers now, in
// rotation order.
func (r *KioskRepo) ListShown(ctx context.Context, now time.Time) ([]*kiosk.Item, error) {
	query, args, err := r.builder.
		Select(kioskItemColumns...).
		From(kioskItemsTable).
		Where(squirrel.Eq{"active": true}).
		Where(squirrel.Or{squirrel.Eq{"start_at": nil}, squirrel.LtOrEq{"start_at": now}}).
		Where(squirrel.Or{squirrel.Eq{"end_at": nil}, squirrel.GtOrEq{"end_at": now}}).
		OrderBy("ordering", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list kiosk items query: %w", err)
	}

	var items []*kiosk.Item
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, query, args...); err != nil {
		return nil, fmt.Errorf("list kiosk items: %w", err)
	}
	return items, nil
}

// Create inserts a rotation item.
func (r *KioskRepo) Create(ctx context.Context, item *kiosk.Item) error {
	query, args, err := r.builder.
		Insert(kioskItemsTable).
		Columns("name", "kind", "url", "active", "ordering", "start_at", "end_at").
		Values(item.Name, item.Kind, item.URL, item.Active, item.Ordering, item.Start, item.End).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create kiosk item query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &item.ID, query, args...); err != nil {
		return fmt.Errorf("create kiosk item: %w", err)
	}
	return nil
}
