package report

import (
	"context"
	"time"

	"stregsystem/internal/core/kroner"
	"stregsystem/internal/core/tx"
	"stregsystem/internal/domain/catalog"
)

// MemberRank is one row of a member ranking.
type MemberRank struct {
	MemberID  int64       `db:"member_id" json:"memberId"`
	Username  string      `db:"username" json:"username"`
	SaleCount int64       `db:"sale_count" json:"saleCount"`
	Total     kroner.Oere `db:"total" json:"total"`
}

// ProductSales is one row of the per-product sales summary.
type ProductSales struct {
	ProductID int64       `db:"product_id" json:"productId"`
	Name      string      `db:"name" json:"name"`
	SaleCount int64       `db:"sale_count" json:"saleCount"`
	Total     kroner.Oere `db:"total" json:"total"`
}

// Repository executes the report aggregations. All windows are
// (from, to]: exclusive start, inclusive end.
type Repository interface {
	// MoneyRank ranks active members by money spent in the window,
	// ordered by sum desc then username asc.
	MoneyRank(ctx context.Context, from, to time.Time, limit int) ([]*MemberRank, error)

	// ProductRank ranks members by sales of the given products in the
	// window, ordered by count desc then username asc.
	ProductRank(ctx context.Context, productIDs []int64, from, to time.Time, limit int) ([]*MemberRank, error)

	// SalesByProducts sums sales per product over the window.
	SalesByProducts(ctx context.Context, productIDs []int64, from, to time.Time) ([]*ProductSales, error)

	// CategoryProductIDs lists the product ids in a category.
	CategoryProductIDs(ctx context.Context, categoryID int64) ([]int64, error)
}

const rankLimit = 10

// CategoryRank pairs a category with its member ranking.
type CategoryRank struct {
	Category *catalog.Category
	Ranks    []*MemberRank
}

// Service composes the admin reports.
type Service struct {
	repo    Repository
	catalog catalog.Repository
	tx      tx.ReadOnlyManager
	loc     *time.Location
	now     func() time.Time
}

// NewService creates a report service. txManager may be nil; when set,
// the multi-query reports run inside a read-only snapshot.
func NewService(repo Repository, cat catalog.Repository, txManager tx.ReadOnlyManager, loc *time.Location) *Service {
	return &Service{repo: repo, catalog: cat, tx: txManager, loc: loc, now: time.Now}
}

// readOnly runs fn in a read-only transaction when one is available.
func (s *Service) readOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.ReadOnly(ctx, fn)
}

// Ranks builds the fjule-party-year rankings: the money top list plus one
// product top list per category.
func (s *Service) Ranks(ctx context.Context, year int) ([]*MemberRank, []CategoryRank, error) {
	from, to := PartyYearBounds(year, s.loc)

	var money []*MemberRank
	var byCategory []CategoryRank
	err := s.readOnly(ctx, func(ctx context.Context) error {
		var err error
		money, err = s.repo.MoneyRank(ctx, from, to, rankLimit)
		if err != nil {
			return err
		}

		categories, err := s.catalog.ListCategories(ctx)
		if err != nil {
			return err
		}
		for _, cat := range categories {
			ids, err := s.repo.CategoryProductIDs(ctx, cat.ID)
			if err != nil {
				return err
			}
			ranks, err := s.repo.ProductRank(ctx, ids, from, to, rankLimit)
			if err != nil {
				return err
			}
			byCategory = append(byCategory, CategoryRank{Category: cat, Ranks: ranks})
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return money, byCategory, nil
}

// RanksDefaultYear resolves the year shown when none is requested.
func (s *Service) RanksDefaultYear() int {
	return NextFjulePartyYear(s.now(), s.loc)
}

// SalesSummary sums sales for the given products over a period, with a
// grand total row appended.
func (s *Service) SalesSummary(ctx context.Context, productIDs []int64, from, to time.Time) ([]*ProductSales, error) {
	rows, err := s.repo.SalesByProducts(ctx, productIDs, from, to)
	if err != nil {
		return nil, err
	}
	var count int64
	var sum kroner.Oere
	for _, r := range rows {
		count += r.SaleCount
		sum += r.Total
	}
	rows = append(rows, &ProductSales{Name: "TOTAL", SaleCount: count, Total: sum})
	return rows, nil
}

// IsCoffeeMaster reports whether the member leads the caffeine category
// ranking for the running party year.
func (s *Service) IsCoffeeMaster(ctx context.Context, memberID int64, caffeineCategoryID int64) (bool, error) {
	now := s.now()
	from := FjuleParty(LastFjulePartyYear(now, s.loc), s.loc)

	ids, err := s.repo.CategoryProductIDs(ctx, caffeineCategoryID)
	if err != nil {
		return false, err
	}
	ranks, err := s.repo.ProductRank(ctx, ids, from, now, 1)
	if err != nil {
		return false, err
	}
	return len(ranks) > 0 && ranks[0].MemberID == memberID, nil
}
