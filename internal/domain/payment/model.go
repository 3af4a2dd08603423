// Package payment holds the balance-crediting Payment ledger and the
// mobile-payment reconciliation machinery that feeds it.
package payment

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"stregsystem/internal/core/kroner"
)

// Payment credits a member's balance. Rows are created and deleted, never
// updated; a delete debits exactly the credited amount back.
type Payment struct {
	ID        int64       `db:"id" json:"id"`
	MemberID  int64       `db:"member_id" json:"memberId"`
	Timestamp time.Time   `db:"timestamp" json:"timestamp"`
	Amount    kroner.Oere `db:"amount" json:"amount"`
	Notes     string      `db:"notes" json:"notes,omitempty"`
}

// AmountDisplay formats the amount for admin listings.
func (p *Payment) AmountDisplay() string {
	return p.Amount.PriceDisplay()
}

// Status of a mobile payment in the reconciliation state machine.
type Status string

const (
	StatusUnset    Status = "U"
	StatusApproved Status = "A"
	StatusIgnored  Status = "I"
	StatusRejected Status = "R"
)

// Final reports whether the status admits no further transitions.
func (s Status) Final() bool {
	return s == StatusApproved || s == StatusIgnored || s == StatusRejected
}

// MobilePayment is one ingested Vipps transaction. MemberID is the match
// guess (possibly nil); PaymentID links the Payment created at commit.
type MobilePayment struct {
	ID            int64       `db:"id" json:"id"`
	MemberID      *int64      `db:"member_id" json:"memberId,omitempty"`
	PaymentID     *int64      `db:"payment_id" json:"paymentId,omitempty"`
	CustomerName  string      `db:"customer_name" json:"customerName"`
	Timestamp     time.Time   `db:"timestamp" json:"timestamp"`
	Amount        kroner.Oere `db:"amount" json:"amount"`
	TransactionID string      `db:"transaction_id" json:"transactionId"`
	Comment       string      `db:"comment" json:"comment"`
	Status        Status      `db:"status" json:"status"`
}

// autoPaymentMinimum is the smallest amount the unattended approval job
// will touch; smaller transfers wait for an operator.
const autoPaymentMinimum kroner.Oere = 5000

var signupCommentRe = regexp.MustCompile(`^signup:([0-9a-fA-F-]{36})\+(.{1,16})$`)

// ScanSignupComment extracts the signup token and username from a comment
// of the form "signup:<uuid>+<username>".
func ScanSignupComment(comment string) (uuid.UUID, string, bool) {
	m := signupCommentRe.FindStringSubmatch(comment)
	if m == nil {
		return uuid.Nil, "", false
	}
	token, err := uuid.Parse(m[1])
	if err != nil {
		return uuid.Nil, "", false
	}
	return token, m[2], true
}

// IsSignupComment reports whether the comment routes to a pending signup.
func IsSignupComment(comment string) bool {
	return signupCommentRe.MatchString(comment)
}

// emojiRe keeps the characters that occur in usernames and printable text;
// everything else (emoji in particular) is dropped before storage.
var emojiRe = regexp.MustCompile("[^a-zA-Z0-9äåæéëöø!\"#$%&()*+,\\-_./:;<=>?@\\\\^`\\]{|}~£§¶Ø\\s]")

// StripEmoji removes non-allowlisted characters and trims whitespace.
func StripEmoji(text string) string {
	return strings.TrimSpace(emojiRe.ReplaceAllString(text, ""))
}
