package order

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/core/tx"
	"stregsystem/internal/domain/catalog"
	"stregsystem/internal/domain/events"
	"stregsystem/internal/domain/member"
	"stregsystem/pkg/logger"
)

// multibuyWindow is how far back the multibuy hint looks for repeated
// single purchases.
const multibuyWindow = 60 * time.Second

// Service runs the sale pipeline.
type Service struct {
	sales     Repository
	members   member.Repository
	catalog   catalog.Repository
	txManager tx.Manager
	bus       *events.Bus
	loc       *time.Location
	now       func() time.Time
}

// NewService creates a new order service.
func NewService(sales Repository, members member.Repository, cat catalog.Repository, txManager tx.Manager, bus *events.Bus, loc *time.Location) *Service {
	return &Service{
		sales:     sales,
		members:   members,
		catalog:   cat,
		txManager: txManager,
		bus:       bus,
		loc:       loc,
		now:       time.Now,
	}
}

// QuickBuyResult is what the terminal renders after a quickbuy line.
type QuickBuyResult struct {
	Member *member.Member
	// Order is nil when the line held only a username; the terminal shows
	// the member menu instead.
	Order *Order
	Sales []*Sale
}

// QuickBuy runs a full quickbuy line: alias rewrite, parse, member lookup,
// then order execution when the line holds items. An item-less line
// resolves the member only.
func (s *Service) QuickBuy(ctx context.Context, roomID int64, line string) (*QuickBuyResult, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, apperror.NewValidation("empty quickbuy line")
	}

	line = PreProcess(line, func(name string) (int64, bool) {
		n, err := s.catalog.GetNamedProduct(ctx, name)
		if err != nil {
			return 0, false
		}
		return n.ProductID, true
	})

	username, ids, err := Parse(line)
	if err != nil {
		return nil, err
	}

	m, err := s.members.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !m.SignupDuePaid {
		return nil, apperror.NewSignupDueUnpaid(m.Username)
	}

	if len(ids) == 0 {
		return &QuickBuyResult{Member: m}, nil
	}

	products := make([]*catalog.Product, 0, len(ids))
	for _, id := range ids {
		p, err := s.catalog.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		if !p.IsTimeActive(s.now()) || !p.SellsInRoom(roomID) {
			return nil, apperror.NewNotFound("product", id)
		}
		products = append(products, p)
	}

	o := FromProducts(m, roomID, products)
	sales, err := s.Execute(ctx, o)
	if err != nil {
		return nil, err
	}
	return &QuickBuyResult{Member: m, Order: o, Sales: sales}, nil
}

// Execute atomically runs the order: member row lock, inventory check,
// balance debit, bulk sale insert. On success the member's balance field is
// refreshed and a sales-committed event is published.
func (s *Service) Execute(ctx context.Context, o *Order) ([]*Sale, error) {
	if len(o.Items) == 0 {
		return nil, apperror.NewValidation("order has no items")
	}

	var sales []*Sale
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.members.GetForUpdate(ctx, o.Member.ID)
		if err != nil {
			return err
		}

		for _, it := range o.Items {
			p := it.Product
			if p.StartDate == nil {
				continue
			}
			sold, err := s.catalog.CountSalesSince(ctx, p.ID, p.StartMidnight(s.loc))
			if err != nil {
				return fmt.Errorf("count sales: %w", err)
			}
			if sold+it.Count > p.Quantity {
				return apperror.NewNoMoreInventory(p.ID)
			}
		}

		total := o.Total()
		if m.HasStregforbud(total, o.OverrideStregforbud) {
			return apperror.NewStregforbud(m.Username)
		}
		m.Balance -= total
		if err := s.members.UpdateBalance(ctx, m.ID, m.Balance); err != nil {
			return fmt.Errorf("debit member: %w", err)
		}

		now := s.now()
		roomID := o.RoomID
		sales = make([]*Sale, 0, o.UnitCount())
		for _, it := range o.Items {
			for i := int64(0); i < it.Count; i++ {
				sales = append(sales, &Sale{
					MemberID:  m.ID,
					ProductID: it.Product.ID,
					RoomID:    &roomID,
					Timestamp: now,
					Price:     it.Product.Price,
				})
			}
		}
		if err := s.sales.CreateBulk(ctx, sales); err != nil {
			return fmt.Errorf("insert sales: %w", err)
		}

		o.Member.Balance = m.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(sales))
	for i, sale := range sales {
		ids[i] = sale.ProductID
	}
	s.bus.Publish(ctx, events.SalesCommitted{
		MemberID:   o.Member.ID,
		RoomID:     o.RoomID,
		ProductIDs: ids,
		Total:      o.Total(),
		At:         sales[0].Timestamp,
	})
	logger.Info(ctx, "order executed",
		"member_id", o.Member.ID, "room_id", o.RoomID,
		"units", len(sales), "total", int64(o.Total()))
	return sales, nil
}

// MultibuyHint suggests the counted quickbuy syntax to members who just
// made more than one separate purchase inside the hint window. It returns
// false when all recent purchases were distinct products bought once.
func (s *Service) MultibuyHint(ctx context.Context, m *member.Member) (bool, string, error) {
	recent, err := s.sales.ListRecent(ctx, m.ID, s.now().Add(-multibuyWindow))
	if err != nil {
		return false, "", err
	}

	stamps := make(map[time.Time]struct{})
	counts := make(map[int64]int64)
	var productOrder []int64
	for _, sale := range recent {
		stamps[sale.Timestamp] = struct{}{}
		if _, ok := counts[sale.ProductID]; !ok {
			productOrder = append(productOrder, sale.ProductID)
		}
		counts[sale.ProductID]++
	}
	if len(stamps) <= 1 {
		return false, "", nil
	}

	repeated := false
	for _, c := range counts {
		if c > 1 {
			repeated = true
			break
		}
	}
	if !repeated {
		return false, "", nil
	}

	sort.Slice(productOrder, func(i, j int) bool { return productOrder[i] < productOrder[j] })
	parts := []string{m.Username}
	for _, id := range productOrder {
		if counts[id] > 1 {
			parts = append(parts, fmt.Sprintf("%d:%d", id, counts[id]))
		} else {
			parts = append(parts, fmt.Sprintf("%d", id))
		}
	}
	return true, strings.Join(parts, " "), nil
}
