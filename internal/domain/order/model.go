package order

import (
	"time"

	"stregsystem/internal/core/kroner"
	"stregsystem/internal/domain/catalog"
	"stregsystem/internal/domain/member"
)

// Sale is one unit sold to a member. Rows are append-only; the price is a
// snapshot taken at execution time, independent of later price changes.
type Sale struct {
	ID        int64       `db:"id" json:"id"`
	MemberID  int64       `db:"member_id" json:"memberId"`
	ProductID int64       `db:"product_id" json:"productId"`
	RoomID    *int64      `db:"room_id" json:"roomId,omitempty"`
	Timestamp time.Time   `db:"timestamp" json:"timestamp"`
	Price     kroner.Oere `db:"price" json:"price"`
}

// Item is one product line of an order with its multiplicity.
type Item struct {
	Product *catalog.Product
	Count   int64
}

// Order is an in-memory purchase to be executed atomically.
type Order struct {
	Member *member.Member
	RoomID int64
	Items  []Item

	// OverrideStregforbud lifts the balance check for special events.
	OverrideStregforbud bool
}

// FromProducts builds an order, collapsing repeated products into counted
// items while preserving first-seen order.
func FromProducts(m *member.Member, roomID int64, products []*catalog.Product) *Order {
	o := &Order{Member: m, RoomID: roomID}
	index := make(map[int64]int)
	for _, p := range products {
		if i, ok := index[p.ID]; ok {
			o.Items[i].Count++
			continue
		}
		index[p.ID] = len(o.Items)
		o.Items = append(o.Items, Item{Product: p, Count: 1})
	}
	return o
}

// Total sums the order at the products' current prices.
func (o *Order) Total() kroner.Oere {
	var total kroner.Oere
	for _, it := range o.Items {
		total += it.Product.Price * kroner.Oere(it.Count)
	}
	return total
}

// UnitCount is the number of sale rows the order will append.
func (o *Order) UnitCount() int64 {
	var n int64
	for _, it := range o.Items {
		n += it.Count
	}
	return n
}
