// Package catalog provides products, categories, rooms, price history and
// named-product aliases, plus the vendable predicate that decides what a
// kiosk terminal may sell right now.
package catalog

import (
	"context"
	"regexp"
	"time"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/core/kroner"
)

// Category groups products ("Øl", "Energidrik", "Sodavand", ...).
type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Room is a physical kiosk location.
type Room struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
}

// Product is a sellable item. Prices are in øre. A product with a StartDate
// is inventory-tracked: only Quantity units may be sold after that date.
type Product struct {
	ID             int64       `db:"id" json:"id"`
	Name           string      `db:"name" json:"name"`
	Price          kroner.Oere `db:"price" json:"price"`
	Active         bool        `db:"active" json:"active"`
	StartDate      *time.Time  `db:"start_date" json:"startDate,omitempty"`
	Quantity       int64       `db:"quantity" json:"quantity"`
	DeactivateDate *time.Time  `db:"deactivate_date" json:"deactivateDate,omitempty"`

	AlcoholContentML  float64 `db:"alcohol_content_ml" json:"alcoholContentMl"`
	CaffeineContentMG int     `db:"caffeine_content_mg" json:"caffeineContentMg"`

	// CategoryIDs and RoomIDs are loaded alongside the product. Empty
	// RoomIDs means the product sells in every room.
	CategoryIDs []int64 `db:"-" json:"categoryIds,omitempty"`
	RoomIDs     []int64 `db:"-" json:"roomIds,omitempty"`
}

// Validate checks product invariants.
func (p *Product) Validate(ctx context.Context) error {
	if p.Name == "" {
		return apperror.NewValidation("product name is required").WithDetail("field", "name")
	}
	if p.Price < 0 {
		return apperror.NewValidation("price cannot be negative").WithDetail("field", "price")
	}
	return nil
}

// IsTimeActive reports whether the product is active ignoring inventory:
// the active flag is set and any deactivate date has not passed.
func (p *Product) IsTimeActive(now time.Time) bool {
	if !p.Active {
		return false
	}
	if p.DeactivateDate != nil && p.DeactivateDate.Before(now) {
		return false
	}
	return true
}

// SellsInRoom reports whether the product is offered in the room. A product
// bound to no rooms sells everywhere.
func (p *Product) SellsInRoom(roomID int64) bool {
	if len(p.RoomIDs) == 0 {
		return true
	}
	for _, id := range p.RoomIDs {
		if id == roomID {
			return true
		}
	}
	return false
}

// InStock evaluates the inventory predicate given the count of sales since
// midnight of the start date. Products without a start date are untracked.
func (p *Product) InStock(soldSinceStart int64) bool {
	if p.StartDate == nil {
		return true
	}
	return soldSinceStart < p.Quantity
}

// StartMidnight returns midnight of the start date in the given location.
// Inventory counts sales strictly after this instant.
func (p *Product) StartMidnight(loc *time.Location) time.Time {
	d := p.StartDate.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// OldPrice is an append-only record of a product's price at a point in time.
type OldPrice struct {
	ID        int64       `db:"id" json:"id"`
	ProductID int64       `db:"product_id" json:"productId"`
	Price     kroner.Oere `db:"price" json:"price"`
	ChangedOn time.Time   `db:"changed_on" json:"changedOn"`
}

var namedProductRe = regexp.MustCompile(`^[^\d:\-_][\w\-]+$`)

// NamedProduct aliases a word to a product id so quickbuy lines can say
// "jokke øl" instead of "jokke 14".
type NamedProduct struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	ProductID int64  `db:"product_id" json:"productId"`
}

// Validate checks the alias shape: no leading digit, colon, dash or
// underscore, so aliases never collide with item tokens.
func (n *NamedProduct) Validate(ctx context.Context) error {
	if !namedProductRe.MatchString(n.Name) {
		return apperror.NewValidation("invalid named product name").
			WithDetail("field", "name").
			WithDetail("value", n.Name)
	}
	return nil
}

// ProductNote is an informational banner shown next to a product in a
// date window.
type ProductNote struct {
	ID        int64      `db:"id" json:"id"`
	Text      string     `db:"text" json:"text"`
	Active    bool       `db:"active" json:"active"`
	StartDate *time.Time `db:"start_date" json:"startDate,omitempty"`
	EndDate   *time.Time `db:"end_date" json:"endDate,omitempty"`

	ProductIDs []int64 `db:"-" json:"productIds,omitempty"`
}

// IsShown reports whether the note applies at the given time.
func (n *ProductNote) IsShown(now time.Time) bool {
	if !n.Active {
		return false
	}
	if n.StartDate != nil && n.StartDate.After(now) {
		return false
	}
	if n.EndDate != nil && n.EndDate.Before(now) {
		return false
	}
	return true
}
