// Package heatmap builds the per-member purchase heatmap view model: a
// GitHub-style grid of the last weeks of purchases, with pluggable color
// modes mapping each day's purchases to an RGB cell and a short summary.
package heatmap

import (
	"fmt"
	"time"

	"stregsystem/internal/core/kroner"
)

// RGB is an 8-bit color triple.
type RGB struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// neutralGrey marks days without purchases.
var neutralGrey = RGB{R: 235, G: 237, B: 240}

// lerpColor interpolates linearly between two colors, truncating to ints.
func lerpColor(from, to RGB, value float64) RGB {
	return RGB{
		R: from.R + int(float64(to.R-from.R)*value),
		G: from.G + int(float64(to.G-from.G)*value),
		B: from.B + int(float64(to.B-from.B)*value),
	}
}

// SaleProduct is one purchased item as the heatmap sees it.
type SaleProduct struct {
	ProductID int64       `db:"product_id"`
	Price     kroner.Oere `db:"price"`
	Timestamp time.Time   `db:"timestamp"`
}

// Day is one finished cell of the grid: the purchases of a calendar day
// rendered under every color mode.
type Day struct {
	Date       time.Time `json:"date"`
	ProductIDs []int64   `json:"productIds"`
	Colors     []RGB     `json:"colors"`
	Summaries  []string  `json:"summaries"`
}

// ColorMode maps a day's purchases to a cell color and a summary line.
type ColorMode interface {
	// Name identifies the mode in templates and query parameters.
	Name() string
	// Description is the link text shown to switch to the mode.
	Description() string
	DayColor(day []SaleProduct) RGB
	DaySummary(day []SaleProduct) string
}

func countSummary(day []SaleProduct) string {
	unit := "varer"
	if len(day) == 1 {
		unit = "vare"
	}
	return fmt.Sprintf("%d %s købt", len(day), unit)
}

// ItemCountMode shades light green to dark green by purchase count
// relative to the busiest day on display.
type ItemCountMode struct {
	MaxItemsDay int
}

func (m *ItemCountMode) Name() string        { return "ItemCount" }
func (m *ItemCountMode) Description() string { return "Antal" }

func (m *ItemCountMode) DayColor(day []SaleProduct) RGB {
	if len(day) == 0 || m.MaxItemsDay == 0 {
		return neutralGrey
	}
	value := float64(len(day)) / float64(m.MaxItemsDay)
	return lerpColor(RGB{144, 238, 144}, RGB{0, 100, 0}, value)
}

func (m *ItemCountMode) DaySummary(day []SaleProduct) string {
	return countSummary(day)
}

// MoneySumMode shades light yellow to yellow by money spent relative to
// the most expensive day on display.
type MoneySumMode struct {
	MaxMoneyDay kroner.Oere
}

func (m *MoneySumMode) Name() string        { return "MoneySum" }
func (m *MoneySumMode) Description() string { return "Penge brugt" }

func daySum(day []SaleProduct) kroner.Oere {
	var sum kroner.Oere
	for _, p := range day {
		sum += p.Price
	}
	return sum
}

func (m *MoneySumMode) DayColor(day []SaleProduct) RGB {
	if len(day) == 0 || m.MaxMoneyDay == 0 {
		return neutralGrey
	}
	value := float64(daySum(day)) / float64(m.MaxMoneyDay)
	return lerpColor(RGB{255, 255, 200}, RGB{255, 255, 0}, value)
}

func (m *MoneySumMode) DaySummary(day []SaleProduct) string {
	return fmt.Sprintf("%s 𝓕$ brugt", daySum(day).Money())
}

// ColorCategorizedMode mixes the red, green and blue channels from the
// share of the day's purchases falling in three product categories.
type ColorCategorizedMode struct {
	channels [3]map[int64]bool
}

// NewColorCategorizedMode builds the mode from the product id sets
// backing the red, green and blue channels, in that order.
func NewColorCategorizedMode(byChannel [3][]int64) *ColorCategorizedMode {
	m := &ColorCategorizedMode{}
	for i, ids := range byChannel {
		m.channels[i] = make(map[int64]bool, len(ids))
		for _, id := range ids {
			m.channels[i][id] = true
		}
	}
	return m
}

func (m *ColorCategorizedMode) Name() string        { return "ColorCategorized" }
func (m *ColorCategorizedMode) Description() string { return "Med kategorier" }

func (m *ColorCategorizedMode) DayColor(day []SaleProduct) RGB {
	var counts [3]int
	for _, p := range day {
		for i := range m.channels {
			if m.channels[i][p.ProductID] {
				counts[i]++
			}
		}
	}
	total := counts[0] + counts[1] + counts[2]
	if total == 0 {
		return neutralGrey
	}
	return RGB{
		R: 70 + int(float64(counts[0])/float64(total)*185),
		G: 70 + int(float64(counts[1])/float64(total)*185),
		B: 70 + int(float64(counts[2])/float64(total)*185),
	}
}

func (m *ColorCategorizedMode) DaySummary(day []SaleProduct) string {
	return countSummary(day)
}
