package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFjulePartyFirstFridayOfDecember(t *testing.T) {
	tests := []struct {
		year int
		day  int
	}{
		{2023, 1}, // 2023-12-01 is a Friday
		{2024, 6},
		{2025, 5},
		{2026, 4},
	}
	for _, tt := range tests {
		got := FjuleParty(tt.year, time.UTC)
		assert.Equal(t, time.December, got.Month(), tt.year)
		assert.Equal(t, tt.day, got.Day(), tt.year)
		assert.Equal(t, time.Friday, got.Weekday(), tt.year)
		assert.Equal(t, 22, got.Hour(), tt.year)
	}
}

func TestLastAndNextFjulePartyYear(t *testing.T) {
	beforeParty := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2025, LastFjulePartyYear(beforeParty, time.UTC))
	assert.Equal(t, 2026, NextFjulePartyYear(beforeParty, time.UTC))

	afterParty := time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2026, LastFjulePartyYear(afterParty, time.UTC))
	assert.Equal(t, 2027, NextFjulePartyYear(afterParty, time.UTC))
}

func TestPartyYearBounds(t *testing.T) {
	from, to := PartyYearBounds(2026, time.UTC)
	assert.Equal(t, FjuleParty(2025, time.UTC), from)
	assert.Equal(t, FjuleParty(2026, time.UTC), to)
	assert.True(t, from.Before(to))
}
