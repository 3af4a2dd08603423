// Package theme selects the seasonal UI themes shown by the kiosk. Every
// theme carries a month/day window of the year; an operator override can
// pin a theme visible or hidden regardless of the date.
package theme

import (
	"stregsystem/internal/core/apperror"
)

// Override pins a theme outside its date window.
type Override string

const (
	// OverrideNone leaves the date window in charge.
	OverrideNone Override = "N"
	// OverrideShow forces the theme visible.
	OverrideShow Override = "S"
	// OverrideHide forces the theme hidden.
	OverrideHide Override = "H"
)

// Theme is one seasonal skin: optional css, js and html fragments under
// the theme's asset directory, active in the [begin, end] window of any
// year. A window with BeginMonth > EndMonth wraps the year boundary.
type Theme struct {
	ID         int64    `db:"id"`
	Name       string   `db:"name"`
	HTML       string   `db:"html"`
	CSS        string   `db:"css"`
	JS         string   `db:"js"`
	BeginMonth int      `db:"begin_month"`
	BeginDay   int      `db:"begin_day"`
	EndMonth   int      `db:"end_month"`
	EndDay     int      `db:"end_day"`
	Override   Override `db:"override"`
}

// Validate checks the window fields.
func (t *Theme) Validate() error {
	if t.Name == "" {
		return apperror.NewValidation("theme name is required")
	}
	if t.BeginMonth < 1 || t.BeginMonth > 12 || t.EndMonth < 1 || t.EndMonth > 12 {
		return apperror.NewValidation("theme months must be in 1..12")
	}
	if t.BeginDay < 1 || t.BeginDay > 31 || t.EndDay < 1 || t.EndDay > 31 {
		return apperror.NewValidation("theme days must be in 1..31")
	}
	switch t.Override {
	case OverrideNone, OverrideShow, OverrideHide:
	default:
		return apperror.NewValidation("theme override must be N, S or H")
	}
	return nil
}

// ActiveOn reports whether the theme shows on the given month and day.
// Wrap-around windows starting and ending in the same month are not
// supported.
func (t *Theme) ActiveOn(month, day int) bool {
	switch t.Override {
	case OverrideShow:
		return true
	case OverrideHide:
		return false
	}

	inMonths := t.BeginMonth <= month && t.EndMonth >= month
	wraps := t.BeginMonth > t.EndMonth && (t.BeginMonth <= month || t.EndMonth >= month)
	if !inMonths && !wraps {
		return false
	}

	// Day bounds only bind in the endpoint months.
	if t.BeginMonth == month && t.BeginDay > day {
		return false
	}
	if t.EndMonth == month && t.EndDay < day {
		return false
	}
	return true
}
