package catalog

import (
	"context"
	"time"
)

// Repository is the persistence port for the catalog.
type Repository interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id int64) (*Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
	// ListActiveProducts returns products whose time window is open,
	// filtered to a room when roomID > 0. Inventory is not evaluated here.
	ListActiveProducts(ctx context.Context, roomID int64, now time.Time) ([]*Product, error)

	// CountSalesSince counts sales of the product strictly after the
	// given instant. Used for the inventory predicate.
	CountSalesSince(ctx context.Context, productID int64, since time.Time) (int64, error)

	AppendOldPrice(ctx context.Context, op *OldPrice) error
	ListOldPrices(ctx context.Context, productID int64) ([]*OldPrice, error)

	GetRoom(ctx context.Context, id int64) (*Room, error)
	ListRooms(ctx context.Context) ([]*Room, error)

	GetCategory(ctx context.Context, id int64) (*Category, error)
	ListCategories(ctx context.Context) ([]*Category, error)

	CreateNamedProduct(ctx context.Context, n *NamedProduct) error
	// GetNamedProduct looks the alias up case-insensitively.
	GetNamedProduct(ctx context.Context, name string) (*NamedProduct, error)
	ListNamedProducts(ctx context.Context) ([]*NamedProduct, error)

	ListActiveNotes(ctx context.Context, roomID int64, now time.Time) ([]*ProductNote, error)
}
