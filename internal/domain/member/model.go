// Package member provides the member ledger: the prepaid balance, the
// transactions that move it, and the stregforbud rule that guards it.
package member

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/core/kroner"
)

// Gender of a member, used by the blood-alcohol calculation.
type Gender string

const (
	GenderUnknown Gender = "U"
	GenderMale    Gender = "M"
	GenderFemale  Gender = "F"
)

var usernameRe = regexp.MustCompile(`^\S{1,16}$`)

// Member is a prepaid account holder.
type Member struct {
	ID        int64  `db:"id" json:"id"`
	Username  string `db:"username" json:"username"`
	Firstname string `db:"firstname" json:"firstname"`
	Lastname  string `db:"lastname" json:"lastname"`
	Email     string `db:"email" json:"email,omitempty"`
	Year      string `db:"year" json:"year,omitempty"`
	Gender    Gender `db:"gender" json:"gender"`

	// Balance is mutated only through Fulfil/Rollback and the payment
	// subsystem; everything else reads it.
	Balance kroner.Oere `db:"balance" json:"balance"`

	Active        bool   `db:"active" json:"active"`
	WantSpam      bool   `db:"want_spam" json:"wantSpam"`
	SignupDuePaid bool   `db:"signup_due_paid" json:"signupDuePaid"`
	UndoCount     int    `db:"undo_count" json:"-"`
	Notes         string `db:"notes" json:"-"`
}

// Validate checks member invariants.
func (m *Member) Validate(ctx context.Context) error {
	if !usernameRe.MatchString(m.Username) {
		return apperror.NewValidation("username must be 1-16 characters without whitespace").
			WithDetail("field", "username").
			WithDetail("value", m.Username)
	}
	switch m.Gender {
	case GenderUnknown, GenderMale, GenderFemale:
	default:
		return apperror.NewValidation("invalid gender").
			WithDetail("field", "gender").
			WithDetail("value", string(m.Gender))
	}
	return nil
}

// BalanceDisplay formats the balance for kiosk display.
func (m *Member) BalanceDisplay() string {
	return m.Balance.PriceDisplay()
}

// CanFulfil reports whether applying tx keeps the balance non-negative.
func (m *Member) CanFulfil(tx kroner.Transaction) bool {
	return m.Balance+tx.Change() >= 0
}

// Fulfil applies tx to the balance or fails with a stregforbud error.
func (m *Member) Fulfil(tx kroner.Transaction) error {
	if !m.CanFulfil(tx) {
		return apperror.NewStregforbud(m.Username)
	}
	m.Balance += tx.Change()
	return nil
}

// Rollback reverses a previously fulfilled tx.
func (m *Member) Rollback(tx kroner.Transaction) {
	m.Balance -= tx.Change()
}

// MakePayment credits an amount directly. Only the payment subsystem calls
// this; payments may push a negative balance back toward zero.
func (m *Member) MakePayment(amount kroner.Oere) {
	m.Balance += amount
}

// HasStregforbud reports whether a purchase of the given total is forbidden.
// The override flag lifts the ban for special events.
func (m *Member) HasStregforbud(buy kroner.Oere, override bool) bool {
	if override {
		return false
	}
	return m.Balance-buy < 0
}

// HasValidEmail reports whether the member can receive mail.
func (m *Member) HasValidEmail() bool {
	return strings.Contains(m.Email, "@")
}

// LowBalance is the threshold below which the kiosk nags about topping up.
const LowBalance kroner.Oere = 5000

// PendingSignup tracks the dues a freshly signed-up member owes before the
// account activates. Mobile payments are consumed against Due until it
// reaches zero.
type PendingSignup struct {
	ID       int64       `db:"id" json:"id"`
	MemberID int64       `db:"member_id" json:"memberId"`
	Due      kroner.Oere `db:"due" json:"due"`
	Status   string      `db:"status" json:"status"` // shares MobilePayment's U/A/I/R states
	Token    uuid.UUID   `db:"token" json:"token"`
}

// SignupDue is the initial amount owed on signup.
const SignupDue kroner.Oere = 20000

// NewPendingSignup creates the due record for a new member.
func NewPendingSignup(memberID int64) *PendingSignup {
	return &PendingSignup{
		MemberID: memberID,
		Due:      SignupDue,
		Status:   "U",
		Token:    uuid.New(),
	}
}

// MobilePayURI builds the deep link a phone opens to pay the signup due.
func (p *PendingSignup) MobilePayURI(username string) string {
	return MobilePayURI("signup:"+p.Token.String()+"+"+username, p.Due)
}

// MobilePayURI builds a mobile-pay deep link for the shop number with the
// given comment and amount.
func MobilePayURI(comment string, amount kroner.Oere) string {
	q := url.Values{}
	q.Set("phone", "90601")
	q.Set("comment", comment)
	if amount > 0 {
		q.Set("amount", amount.Kroner().StringFixed(2))
	}
	return "mobilepay://send?" + q.Encode()
}
