// Package catalog_repo provides the PostgreSQL implementation of the
// product catalog repository.
package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/domain/catalog"
	"stregsystem/internal/infrastructure/storage/postgres"
)

const (
	productsTable        = "products"
	oldPricesTable       = "old_prices"
	namedProductsTable   = "named_products"
	productNotesTable    = "product_notes"
	productCategoryTable = "product_categories"
	productRoomTable     = "product_rooms"
	productNoteLinkTable = "product_note_products"
)

var productColumns = []string{
	"id", "name", "price", "active", "start_date", "quantity", "deactivate_date",
	"alcohol_content_ml", "caffeine_content_mg",
}

// Compile-time check.
var _ catalog.Repository = (*CatalogRepo)(nil)

// CatalogRepo implements catalog.Repository.
type CatalogRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewCatalogRepo creates a new catalog repository.
func NewCatalogRepo(txManager *postgres.TxManager) *CatalogRepo {
	return &CatalogRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *CatalogRepo) productSelect() squirrel.SelectBuilder {
	return r.builder.Select(productColumns...).From(productsTable)
}

// CreateProduct inserts a product with its category and room links.
func (r *CatalogRepo) CreateProduct(ctx context.Context, p *catalog.Product) error {
	q := r.builder.Insert(productsTable).
		Columns(productColumns[1:]...).
		Values(p.Name, p.Price, p.Active, p.StartDate, p.Quantity, p.DeactivateDate,
			p.AlcoholContentML, p.CaffeineContentMG).
		Suffix("RETURNING id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&p.ID); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return r.replaceLinks(ctx, p)
}

// GetProduct retrieves a product with its category and room links.
func (r *CatalogRepo) GetProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	sql, args, err := r.productSelect().Where(squirrel.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	p := &catalog.Product{}
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if err := r.loadLinks(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProduct persists a product and replaces its links.
func (r *CatalogRepo) UpdateProduct(ctx context.Context, p *catalog.Product) error {
	q := r.builder.Update(productsTable).
		Set("name", p.Name).
		Set("price", p.Price).
		Set("active", p.Active).
		Set("start_date", p.StartDate).
		Set("quantity", p.Quantity).
		Set("deactivate_date", p.DeactivateDate).
		Set("alcohol_content_ml", p.AlcoholContentML).
		Set("caffeine_content_mg", p.CaffeineContentMG).
		Where(squirrel.Eq{"id": p.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("product", p.ID)
	}
	return r.replaceLinks(ctx, p)
}

// ListActiveProducts returns products whose time window is open,
// filtered to a room when roomID > 0.
func (r *CatalogRepo) ListActiveProducts(ctx context.Context, roomID int64, now time.Time) ([]*catalog.Product, error) {
	q := r.productSelect().
		Where(squirrel.Eq{"active": true}).
		Where(squirrel.Or{
			squirrel.Eq{"deactivate_date": nil},
			squirrel.Gt{"deactivate_date": now},
		}).
		OrderBy("id")
	if roomID > 0 {
		// Products without room links sell everywhere.
		q = q.Where(squirrel.Expr(
			"(NOT EXISTS (SELECT 1 FROM product_rooms pr WHERE pr.product_id = products.id)"+
				" OR EXISTS (SELECT 1 FROM product_rooms pr WHERE pr.product_id = products.id AND pr.room_id = ?))",
			roomID))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var products []*catalog.Product
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &products, sql, args...); err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	for _, p := range products {
		if err := r.loadLinks(ctx, p); err != nil {
			return nil, err
		}
	}
	return products, nil
}

// CountSalesSince counts sales of the product strictly after the instant.
func (r *CatalogRepo) CountSalesSince(ctx context.Context, productID int64, since time.Time) (int64, error) {
	sql := "SELECT count(*) FROM sales WHERE product_id = $1 AND timestamp > $2"
	var count int64
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, productID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sales: %w", err)
	}
	return count, nil
}

// AppendOldPrice records a price history row.
func (r *CatalogRepo) AppendOldPrice(ctx context.Context, op *catalog.OldPrice) error {
	q := r.builder.Insert(oldPricesTable).
		Columns("product_id", "price", "changed_on").
		Values(op.ProductID, op.Price, op.ChangedOn).
		Suffix("RETURNING id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&op.ID); err != nil {
		return fmt.Errorf("insert old price: %w", err)
	}
	return nil
}

// ListOldPrices returns the price history of a product, newest first.
func (r *CatalogRepo) ListOldPrices(ctx context.Context, productID int64) ([]*catalog.OldPrice, error) {
	q := r.builder.Select("id", "product_id", "price", "changed_on").
		From(oldPricesTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("changed_on DESC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var prices []*catalog.OldPrice
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &prices, sql, args...); err != nil {
		return nil, fmt.Errorf("list old prices: %w", err)
	}
	return prices, nil
}

// GetRoom retrieves a room by id.
func (r *CatalogRepo) GetRoom(ctx context.Context, id int64) (*catalog.Room, error) {
	sql := "SELECT id, name, description FROM rooms WHERE id = $1"
	room := &catalog.Room{}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), room, sql, id); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("room", id)
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

// ListRooms returns all rooms.
func (r *CatalogRepo) ListRooms(ctx context.Context) ([]*catalog.Room, error) {
	var rooms []*catalog.Room
	sql := "SELECT id, name, description FROM rooms ORDER BY name"
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rooms, sql); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// GetCategory retrieves a category by id.
func (r *CatalogRepo) GetCategory(ctx context.Context, id int64) (*catalog.Category, error) {
	sql := "SELECT id, name FROM categories WHERE id = $1"
	c := &catalog.Category{}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), c, sql, id); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("category", id)
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories.
func (r *CatalogRepo) ListCategories(ctx context.Context) ([]*catalog.Category, error) {
	var categories []*catalog.Category
	sql := "SELECT id, name FROM categories ORDER BY name"
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &categories, sql); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// CreateNamedProduct inserts a quickbuy alias.
func (r *CatalogRepo) CreateNamedProduct(ctx context.Context, n *catalog.NamedProduct) error {
	q := r.builder.Insert(namedProductsTable).
		Columns("name", "product_id").
		Values(n.Name, n.ProductID).
		Suffix("RETURNING id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&n.ID); err != nil {
		return fmt.Errorf("insert named product: %w", err)
	}
	return nil
}

// GetNamedProduct looks the alias up case-insensitively.
func (r *CatalogRepo) GetNamedProduct(ctx context.Context, name string) (*catalog.NamedProduct, error) {
	sql := "SELECT id, name, product_id FROM named_products WHERE lower(name) = lower($1)"
	n := &catalog.NamedProduct{}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), n, sql, name); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("named product", name)
		}
		return nil, fmt.Errorf("get named product: %w", err)
	}
	return n, nil
}

// ListNamedProducts returns all quickbuy aliases.
func (r *CatalogRepo) ListNamedProducts(ctx context.Context) ([]*catalog.NamedProduct, error) {
	var named []*catalog.NamedProduct
	sql := "SELECT id, name, product_id FROM named_products ORDER BY name"
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &named, sql); err != nil {
		return nil, fmt.Errorf("list named products: %w", err)
	}
	return named, nil
}

// ListActiveNotes returns notes currently shown in the room.
func (r *CatalogRepo) ListActiveNotes(ctx context.Context, roomID int64, now time.Time) ([]*catalog.ProductNote, error) {
	q := r.builder.Select("id", "text", "active", "start_date", "end_date").
		From(productNotesTable).
		Where(squirrel.Eq{"active": true}).
		Where(squirrel.Or{squirrel.Eq{"start_date": nil}, squirrel.LtOrEq{"start_date": now}}).
		Where(squirrel.Or{squirrel.Eq{"end_date": nil}, squirrel.GtOrEq{"end_date": now}}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var notes []*catalog.ProductNote
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &notes, sql, args...); err != nil {
		return nil, fmt.Errorf("list product notes: %w", err)
	}
	for _, n := range notes {
		ids, err := r.linkedIDs(ctx, productNoteLinkTable, "note_id", "product_id", n.ID)
		if err != nil {
			return nil, err
		}
		n.ProductIDs = ids
	}
	return notes, nil
}

// loadLinks fills the product's category and room id lists.
func (r *CatalogRepo) loadLinks(ctx context.Context, p *catalog.Product) error {
	categoryIDs, err := r.linkedIDs(ctx, productCategoryTable, "product_id", "category_id", p.ID)
	if err != nil {
		return err
	}
	roomIDs, err := r.linkedIDs(ctx, productRoomTable, "product_id", "room_id", p.ID)
	if err != nil {
		return err
	}
	p.CategoryIDs = categoryIDs
	p.RoomIDs = roomIDs
	return nil
}

// replaceLinks rewrites the product's category and room link rows.
func (r *CatalogRepo) replaceLinks(ctx context.Context, p *catalog.Product) error {
	if err := r.replaceLinkRows(ctx, productCategoryTable, "product_id", "category_id", p.ID, p.CategoryIDs); err != nil {
		return err
	}
	return r.replaceLinkRows(ctx, productRoomTable, "product_id", "room_id", p.ID, p.RoomIDs)
}

func (r *CatalogRepo) replaceLinkRows(ctx context.Context, table, ownerCol, linkCol string, ownerID int64, ids []int64) error {
	querier := r.txManager.GetQuerier(ctx)

	sql, args, err := r.builder.Delete(table).Where(squirrel.Eq{ownerCol: ownerID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if len(ids) == 0 {
		return nil
	}

	q := r.builder.Insert(table).Columns(ownerCol, linkCol)
	for _, id := range ids {
		q = q.Values(ownerID, id)
	}
	sql, args, err = q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (r *CatalogRepo) linkedIDs(ctx context.Context, table, ownerCol, linkCol string, ownerID int64) ([]int64, error) {
	q := r.builder.Select(linkCol).From(table).Where(squirrel.Eq{ownerCol: ownerID}).OrderBy(linkCol)
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var ids []int64
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	return ids, nil
}
