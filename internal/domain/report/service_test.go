package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stregsystem/internal/core/kroner"
	"stregsystem/internal/domain/catalog"
)

type fakeReportRepo struct {
	moneyRanks  []*MemberRank
	moneyFrom   time.Time
	moneyTo     time.Time
	productRank map[int64][]*MemberRank // keyed by first product id
	categoryIDs map[int64][]int64
	summary     []*ProductSales

	productRankFrom time.Time
	productRankTo   time.Time
}

func (f *fakeReportRepo) MoneyRank(_ context.Context, from, to time.Time, limit int) ([]*MemberRank, error) {
	f.moneyFrom, f.moneyTo = from, to
	if len(f.moneyRanks) > limit {
		return f.moneyRanks[:limit], nil
	}
	return f.moneyRanks, nil
}

func (f *fakeReportRepo) ProductRank(_ context.Context, productIDs []int64, from, to time.Time, limit int) ([]*MemberRank, error) {
	f.productRankFrom, f.productRankTo = from, to
	if len(productIDs) == 0 {
		return nil, nil
	}
	ranks := f.productRank[productIDs[0]]
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks, nil
}

func (f *fakeReportRepo) SalesByProducts(_ context.Context, _ []int64, _, _ time.Time) ([]*ProductSales, error) {
	return f.summary, nil
}

func (f *fakeReportRepo) CategoryProductIDs(_ context.Context, categoryID int64) ([]int64, error) {
	return f.categoryIDs[categoryID], nil
}

// reportCatalog stubs the catalog port; reports only list categories.
type reportCatalog struct {
	catalog.Repository
	categories []*catalog.Category
}

func (c *reportCatalog) ListCategories(_ context.Context) ([]*catalog.Category, error) {
	return c.categories, nil
}

func TestRanksAssemblesMoneyAndCategories(t *testing.T) {
	loc := time.UTC
	repo := &fakeReportRepo{
		moneyRanks: []*MemberRank{
			{MemberID: 1, Username: "jokke", SaleCount: 40, Total: 24000},
			{MemberID: 2, Username: "marx", SaleCount: 12, Total: 8000},
		},
		categoryIDs: map[int64][]int64{
			5: {14, 15},
			6: {32},
		},
		productRank: map[int64][]*MemberRank{
			14: {{MemberID: 2, Username: "marx", SaleCount: 30}},
			32: {{MemberID: 1, Username: "jokke", SaleCount: 9}},
		},
	}
	cat := &reportCatalog{categories: []*catalog.Category{
		{ID: 5, Name: "Øl"},
		{ID: 6, Name: "Kaffe"},
	}}
	svc := NewService(repo, cat, nil, loc)

	money, byCategory, err := svc.Ranks(context.Background(), 2026)
	require.NoError(t, err)

	require.Len(t, money, 2)
	assert.Equal(t, "jokke", money[0].Username)

	require.Len(t, byCategory, 2)
	assert.Equal(t, "Øl", byCategory[0].Category.Name)
	require.Len(t, byCategory[0].Ranks, 1)
	assert.Equal(t, "marx", byCategory[0].Ranks[0].Username)
	assert.Equal(t, "Kaffe", byCategory[1].Category.Name)
	assert.Equal(t, "jokke", byCategory[1].Ranks[0].Username)

	wantFrom, wantTo := PartyYearBounds(2026, loc)
	assert.Equal(t, wantFrom, repo.moneyFrom)
	assert.Equal(t, wantTo, repo.moneyTo)
	assert.Equal(t, wantFrom, repo.productRankFrom)
	assert.Equal(t, wantTo, repo.productRankTo)
}

func TestRanksDefaultYear(t *testing.T) {
	loc := time.UTC
	svc := NewService(&fakeReportRepo{}, &reportCatalog{}, nil, loc)

	// Before the 2026 party the running party year is 2026.
	svc.now = func() time.Time { return time.Date(2026, time.June, 1, 12, 0, 0, 0, loc) }
	assert.Equal(t, 2026, svc.RanksDefaultYear())

	// Right after the party the next year opens.
	svc.now = func() time.Time { return FjuleParty(2026, loc).Add(time.Hour) }
	assert.Equal(t, 2027, svc.RanksDefaultYear())
}

func TestSalesSummaryAppendsTotalRow(t *testing.T) {
	repo := &fakeReportRepo{
		summary: []*ProductSales{
			{ProductID: 14, Name: "Øl", SaleCount: 10, Total: 6000},
			{ProductID: 7, Name: "Sodavand", SaleCount: 4, Total: 1600},
		},
	}
	svc := NewService(repo, &reportCatalog{}, nil, time.UTC)

	rows, err := svc.SalesSummary(context.Background(), []int64{14, 7}, time.Time{}, time.Now())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	total := rows[2]
	assert.Equal(t, "TOTAL", total.Name)
	assert.Equal(t, int64(14), total.SaleCount)
	assert.Equal(t, kroner.Oere(7600), total.Total)
}

func TestSalesSummaryEmptyStillHasTotal(t *testing.T) {
	svc := NewService(&fakeReportRepo{}, &reportCatalog{}, nil, time.UTC)

	rows, err := svc.SalesSummary(context.Background(), []int64{99}, time.Time{}, time.Now())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "TOTAL", rows[0].Name)
	assert.Equal(t, int64(0), rows[0].SaleCount)
}

func TestIsCoffeeMaster(t *testing.T) {
	loc := time.UTC
	repo := &fakeReportRepo{
		categoryIDs: map[int64][]int64{6: {32}},
		productRank: map[int64][]*MemberRank{
			32: {{MemberID: 1, Username: "jokke", SaleCount: 120}},
		},
	}
	svc := NewService(repo, &reportCatalog{}, nil, loc)
	svc.now = func() time.Time { return time.Date(2026, time.March, 10, 12, 0, 0, 0, loc) }

	leads, err := svc.IsCoffeeMaster(context.Background(), 1, 6)
	require.NoError(t, err)
	assert.True(t, leads)

	behind, err := svc.IsCoffeeMaster(context.Background(), 2, 6)
	require.NoError(t, err)
	assert.False(t, behind)

	// Window opens at the last party.
	assert.Equal(t, FjuleParty(2025, loc), repo.productRankFrom)
}

func TestIsCoffeeMasterEmptyCategory(t *testing.T) {
	svc := NewService(&fakeReportRepo{}, &reportCatalog{}, nil, time.UTC)

	leads, err := svc.IsCoffeeMaster(context.Background(), 1, 6)
	require.NoError(t, err)
	assert.False(t, leads)
}

var _ Repository = (*fakeReportRepo)(nil)
