// Package report provides the time-bounded rank and sum aggregations used
// by the admin reports. The canonical reporting year runs between fjule
// parties: the first Friday of December at 22:00.
package report

import (
	"time"
)

// FjuleParty returns the party instant for the given year.
func FjuleParty(year int, loc *time.Location) time.Time {
	first := time.Date(year, time.December, 1, 22, 0, 0, 0, loc)
	daysToAdd := (11 - mondayWeekday(first)) % 7
	return first.AddDate(0, 0, daysToAdd)
}

// LastFjulePartyYear returns the year of the most recent party.
func LastFjulePartyYear(now time.Time, loc *time.Location) int {
	if now.After(FjuleParty(now.Year(), loc)) {
		return now.Year()
	}
	return now.Year() - 1
}

// NextFjulePartyYear returns the year of the next party.
func NextFjulePartyYear(now time.Time, loc *time.Location) int {
	if !now.After(FjuleParty(now.Year(), loc)) {
		return now.Year()
	}
	return now.Year() + 1
}

// PartyYearBounds returns the reporting window for the given party year:
// from the previous year's party (exclusive) to this year's (inclusive).
func PartyYearBounds(year int, loc *time.Location) (time.Time, time.Time) {
	return FjuleParty(year-1, loc), FjuleParty(year, loc)
}

func mondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
