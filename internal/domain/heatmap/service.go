package heatmap

import (
	"context"
	"strconv"
	"time"

	"stregsystem/internal/core/kroner"
)

// channelCategories are the category names feeding the red, green and
// blue channels of the categorized mode.
var channelCategories = [3]string{"Øl", "Energidrik", "Sodavand"}

// rowLabels annotate the weekday rows; only every other row is named.
var rowLabels = [7]string{"", "Mandag", "", "Onsdag", "", "Fredag", ""}

// Repository is the persistence port for the heatmap.
type Repository interface {
	// ListSaleProducts returns the member's purchases with timestamps in
	// [from, to), newest first.
	ListSaleProducts(ctx context.Context, memberID int64, from, to time.Time) ([]SaleProduct, error)

	// CategoryProductIDs lists the product ids in the named category.
	CategoryProductIDs(ctx context.Context, name string) ([]int64, error)
}

// Grid is the finished view model: seven weekday rows of day cells, the
// ISO week column labels, and the modes the cells were rendered under.
type Grid struct {
	ColumnLabels []string
	RowLabels    [7]string
	Rows         [7][]Day
	Modes        []ColorMode
}

// Service assembles purchase heatmaps.
type Service struct {
	repo Repository
	loc  *time.Location
}

// NewService creates a heatmap service.
func NewService(repo Repository, loc *time.Location) *Service {
	return &Service{repo: repo, loc: loc}
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func mondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Build renders the member's purchases over the trailing weeks ending at
// endDate into the weekly grid.
func (s *Service) Build(ctx context.Context, memberID int64, weeks int, endDate time.Time) (*Grid, error) {
	dates, buckets, err := s.purchasesByDay(ctx, memberID, weeks, endDate)
	if err != nil {
		return nil, err
	}

	var byChannel [3][]int64
	for i, name := range channelCategories {
		ids, err := s.repo.CategoryProductIDs(ctx, name)
		if err != nil {
			return nil, err
		}
		byChannel[i] = ids
	}

	maxItems := 0
	var maxMoney kroner.Oere
	for _, day := range buckets {
		if len(day) > maxItems {
			maxItems = len(day)
		}
		if sum := daySum(day); sum > maxMoney {
			maxMoney = sum
		}
	}

	modes := []ColorMode{
		&ItemCountMode{MaxItemsDay: maxItems},
		&MoneySumMode{MaxMoneyDay: maxMoney},
		NewColorCategorizedMode(byChannel),
	}

	// Newest day first here; the grid wants oldest first so each weekday
	// row reads left to right.
	days := make([]Day, len(buckets))
	for i := range buckets {
		day := Day{Date: dates[i]}
		for _, p := range buckets[i] {
			day.ProductIDs = append(day.ProductIDs, p.ProductID)
		}
		for _, mode := range modes {
			day.Colors = append(day.Colors, mode.DayColor(buckets[i]))
			day.Summaries = append(day.Summaries, mode.DaySummary(buckets[i]))
		}
		days[len(buckets)-1-i] = day
	}

	grid := &Grid{RowLabels: rowLabels, Modes: modes}
	for i, day := range days {
		grid.Rows[i%7] = append(grid.Rows[i%7], day)
	}

	grid.ColumnLabels = make([]string, weeks)
	for x := 0; x < weeks; x++ {
		_, week := endDate.AddDate(0, 0, -7*x).ISOWeek()
		grid.ColumnLabels[weeks-1-x] = strconv.Itoa(week)
	}
	return grid, nil
}

// purchasesByDay buckets the member's purchases into calendar days
// running backwards from endDate. The scan is padded by one day so the
// oldest row always lands on the same weekday regardless of endDate.
func (s *Service) purchasesByDay(ctx context.Context, memberID int64, weeks int, endDate time.Time) ([]time.Time, [][]SaleProduct, error) {
	end := midnight(endDate, s.loc).AddDate(0, 0, 1)
	daysBack := 7*weeks - (6 - mondayWeekday(end) - 1)
	cutoff := end.AddDate(0, 0, -daysBack)

	sales, err := s.repo.ListSaleProducts(ctx, memberID, cutoff, end)
	if err != nil {
		return nil, nil, err
	}

	dates := make([]time.Time, 0, daysBack)
	buckets := make([][]SaleProduct, 0, daysBack)
	i := 0
	for n := 0; n < daysBack; n++ {
		day := end.AddDate(0, 0, -n)
		var bucket []SaleProduct
		for i < len(sales) && sameDate(sales[i].Timestamp.In(s.loc), day) {
			bucket = append(bucket, sales[i])
			i++
		}
		dates = append(dates, day)
		buckets = append(buckets, bucket)
	}
	// Drop the padding day after the requested end date.
	return dates[1:], buckets[1:], nil
}
