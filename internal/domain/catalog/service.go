package catalog

import (
	"context"
	"fmt"
	"time"

	"stregsystem/internal/core/kroner"
	"stregsystem/internal/core/tx"
	"stregsystem/pkg/logger"
)

// Service provides business operations on the product catalog.
type Service struct {
	repo      Repository
	txManager tx.Manager
	loc       *time.Location
	now       func() time.Time
}

// NewService creates a new catalog service. loc is the kiosk's local time
// zone, used for inventory midnight cutoffs.
func NewService(repo Repository, txManager tx.Manager, loc *time.Location) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		loc:       loc,
		now:       time.Now,
	}
}

// CreateProduct stores a new product.
func (s *Service) CreateProduct(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}
	return s.repo.CreateProduct(ctx, p)
}

// GetProduct retrieves a product.
func (s *Service) GetProduct(ctx context.Context, id int64) (*Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// UpdateProduct saves product changes. A price change appends the old price
// to the product's price history in the same transaction.
func (s *Service) UpdateProduct(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetProduct(ctx, p.ID)
		if err != nil {
			return err
		}
		if current.Price != p.Price {
			op := &OldPrice{
				ProductID: p.ID,
				Price:     current.Price,
				ChangedOn: s.now(),
			}
			if err := s.repo.AppendOldPrice(ctx, op); err != nil {
				return fmt.Errorf("append old price: %w", err)
			}
			logger.Info(ctx, "product price changed",
				"product_id", p.ID, "old_price", int64(current.Price), "new_price", int64(p.Price))
		}
		return s.repo.UpdateProduct(ctx, p)
	})
}

// SetPrice changes just the price, recording the old one.
func (s *Service) SetPrice(ctx context.Context, productID int64, price kroner.Oere) error {
	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	p.Price = price
	return s.UpdateProduct(ctx, p)
}

// IsVendable reports whether the product may be sold in the room right now:
// time-active, offered in the room, and in stock.
func (s *Service) IsVendable(ctx context.Context, p *Product, roomID int64) (bool, error) {
	now := s.now()
	if !p.IsTimeActive(now) || !p.SellsInRoom(roomID) {
		return false, nil
	}
	if p.StartDate == nil {
		return true, nil
	}
	sold, err := s.repo.CountSalesSince(ctx, p.ID, p.StartMidnight(s.loc))
	if err != nil {
		return false, fmt.Errorf("count sales: %w", err)
	}
	return p.InStock(sold), nil
}

// ListVendable returns the products sellable in the room right now,
// inventory included. This backs the menu endpoint.
func (s *Service) ListVendable(ctx context.Context, roomID int64) ([]*Product, error) {
	products, err := s.repo.ListActiveProducts(ctx, roomID, s.now())
	if err != nil {
		return nil, err
	}
	out := make([]*Product, 0, len(products))
	for _, p := range products {
		ok, err := s.IsVendable(ctx, p, roomID)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// ResolveAlias maps a named-product alias to its product id. The alias
// lookup is case-insensitive.
func (s *Service) ResolveAlias(ctx context.Context, name string) (int64, error) {
	n, err := s.repo.GetNamedProduct(ctx, name)
	if err != nil {
		return 0, err
	}
	return n.ProductID, nil
}

// CreateNamedProduct stores a new alias.
func (s *Service) CreateNamedProduct(ctx context.Context, n *NamedProduct) error {
	if err := n.Validate(ctx); err != nil {
		return err
	}
	return s.repo.CreateNamedProduct(ctx, n)
}

// GetRoom retrieves a room.
func (s *Service) GetRoom(ctx context.Context, id int64) (*Room, error) {
	return s.repo.GetRoom(ctx, id)
}

// ListRooms lists all rooms.
func (s *Service) ListRooms(ctx context.Context) ([]*Room, error) {
	return s.repo.ListRooms(ctx)
}

// ActiveNotes returns the notes shown in the room right now.
func (s *Service) ActiveNotes(ctx context.Context, roomID int64) ([]*ProductNote, error) {
	return s.repo.ListActiveNotes(ctx, roomID, s.now())
}
