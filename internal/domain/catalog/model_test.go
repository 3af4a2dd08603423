package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProductIsTimeActive(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		p    Product
		want bool
	}{
		{"active no deactivate", Product{Active: true}, true},
		{"inactive flag", Product{Active: false}, false},
		{"deactivate in future", Product{Active: true, DeactivateDate: &future}, true},
		{"deactivate passed", Product{Active: true, DeactivateDate: &past}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.IsTimeActive(now))
		})
	}
}

func TestProductSellsInRoom(t *testing.T) {
	everywhere := Product{}
	assert.True(t, everywhere.SellsInRoom(1))
	assert.True(t, everywhere.SellsInRoom(99))

	bound := Product{RoomIDs: []int64{2, 3}}
	assert.True(t, bound.SellsInRoom(2))
	assert.False(t, bound.SellsInRoom(1))
}

func TestProductInStock(t *testing.T) {
	untracked := Product{Quantity: 0}
	assert.True(t, untracked.InStock(1000))

	start := time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC)
	tracked := Product{StartDate: &start, Quantity: 10}
	assert.True(t, tracked.InStock(9))
	assert.False(t, tracked.InStock(10))
	assert.False(t, tracked.InStock(11))
}

func TestProductStartMidnight(t *testing.T) {
	start := time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC)
	p := Product{StartDate: &start}
	got := p.StartMidnight(time.UTC)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), got)
}

func TestNamedProductValidate(t *testing.T) {
	ctx := context.Background()

	valid := []string{"øl", "kaffe", "club-mate", "abekat"}
	for _, name := range valid {
		n := NamedProduct{Name: name, ProductID: 1}
		assert.NoError(t, n.Validate(ctx), name)
	}

	invalid := []string{"1up", ":colon", "-dash", "_under", "a b", ""}
	for _, name := range invalid {
		n := NamedProduct{Name: name, ProductID: 1}
		assert.Error(t, n.Validate(ctx), name)
	}
}

func TestProductNoteIsShown(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	assert.True(t, (&ProductNote{Active: true}).IsShown(now))
	assert.False(t, (&ProductNote{Active: false}).IsShown(now))
	assert.True(t, (&ProductNote{Active: true, StartDate: &past, EndDate: &future}).IsShown(now))
	assert.False(t, (&ProductNote{Active: true, StartDate: &future}).IsShown(now))
	assert.False(t, (&ProductNote{Active: true, EndDate: &past}).IsShown(now))
}
