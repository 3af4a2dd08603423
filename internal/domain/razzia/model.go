// Package razzia implements check-in events with a per-member lockout:
// interval-limited razzias accept a member again after turn_interval, bread
// razzias accept each member exactly once.
package razzia

import (
	"time"
)

// DefaultTurnInterval is the lockout used for new interval razzias.
const DefaultTurnInterval = 30 * time.Minute

// Razzia is one check-in event. A nil TurnInterval marks a once-only
// (bread-style) razzia.
type Razzia struct {
	ID             int64          `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	TurnsPerMember int            `db:"turns_per_member" json:"turnsPerMember"`
	TurnInterval   *time.Duration `db:"turn_interval" json:"turnInterval,omitempty"`
	StartDate      time.Time      `db:"start_date" json:"startDate"`
}

// OnceOnly reports whether members may check in at most once.
func (r *Razzia) OnceOnly() bool {
	return r.TurnInterval == nil
}

// Entry is one accepted check-in.
type Entry struct {
	ID       int64     `db:"id" json:"id"`
	RazziaID int64     `db:"razzia_id" json:"razziaId"`
	MemberID int64     `db:"member_id" json:"memberId"`
	Time     time.Time `db:"time" json:"time"`
}

// CheckInResult is the outcome of one attempt.
type CheckInResult struct {
	Accepted bool
	// AlreadyCheckedIn is set for rejected once-only attempts.
	AlreadyCheckedIn bool
	// Remaining is the lockout left for rejected interval attempts.
	Remaining time.Duration
	// Turns is the member's accepted entry count including this attempt
	// when it was accepted.
	Turns int
}

// RemainingMinutes and RemainingSeconds decompose the lockout for display.
func (r CheckInResult) RemainingMinutes() int { return int(r.Remaining.Minutes()) }
func (r CheckInResult) RemainingSeconds() int { return int(r.Remaining.Seconds()) % 60 }

// MemberCount is one row of the razzia member listing.
type MemberCount struct {
	MemberID int64  `db:"member_id" json:"memberId"`
	Username string `db:"username" json:"username"`
	Entries  int    `db:"entries" json:"entries"`
}
