package mail

import (
	"context"
	"fmt"
	"html"

	"stregsystem/internal/core/kroner"
	"stregsystem/internal/domain/events"
	"stregsystem/internal/domain/member"
	"stregsystem/pkg/logger"
)

// Notifier subscribes to domain events and mails the affected member.
// Everything here is fire-and-forget: failures are logged, never raised.
type Notifier struct {
	sender  Sender
	members member.Repository
}

// NewNotifier creates a notifier over the given sender and member
// lookup.
func NewNotifier(sender Sender, members member.Repository) *Notifier {
	return &Notifier{sender: sender, members: members}
}

// Register subscribes the notifier to the bus.
func (n *Notifier) Register(bus *events.Bus) {
	bus.Subscribe(events.MemberCreated{}.EventName(), n.onMemberCreated)
	bus.Subscribe(events.SignupCompleted{}.EventName(), n.onSignupCompleted)
	bus.Subscribe(events.PaymentRecorded{}.EventName(), n.onPaymentRecorded)
}

func (n *Notifier) onMemberCreated(ctx context.Context, e events.Event) {
	evt := e.(events.MemberCreated)
	n.sendWelcome(ctx, evt.MemberID)
}

func (n *Notifier) onSignupCompleted(ctx context.Context, e events.Event) {
	evt := e.(events.SignupCompleted)
	n.sendWelcome(ctx, evt.MemberID)
}

func (n *Notifier) sendWelcome(ctx context.Context, memberID int64) {
	m, err := n.members.GetByID(ctx, memberID)
	if err != nil {
		logger.Error(ctx, "welcome mail: member lookup failed", "member_id", memberID, "error", err)
		return
	}
	if m.Email == "" {
		return
	}
	body := fmt.Sprintf(
		`<html><body><p>Hej %s!</p>
<p>Velkommen til stregsystemet. Dit brugernavn er <b>%s</b> og din saldo er %s.</p>
<p>Vi ses i kantinen!</p></body></html>`,
		html.EscapeString(m.Firstname), html.EscapeString(m.Username), m.Balance.Money())
	if err := n.sender.Send(ctx, m.Email, "", body); err != nil {
		logger.Error(ctx, "welcome mail failed", "member_id", m.ID, "error", err)
	}
}

func (n *Notifier) onPaymentRecorded(ctx context.Context, e events.Event) {
	evt := e.(events.PaymentRecorded)
	m, err := n.members.GetByID(ctx, evt.MemberID)
	if err != nil {
		logger.Error(ctx, "payment mail: member lookup failed", "member_id", evt.MemberID, "error", err)
		return
	}
	if m.Email == "" {
		return
	}
	if err := n.sender.Send(ctx, m.Email, "Stregsystem payment", paymentBody(m, evt.Amount, evt.MobilePayComment)); err != nil {
		logger.Error(ctx, "payment mail failed", "member_id", m.ID, "error", err)
	}
}

func paymentBody(m *member.Member, amount kroner.Oere, mobilePayComment string) string {
	if mobilePayComment != "" {
		return fmt.Sprintf(
			`<html><body><p>Hej %s!</p>
<p>Din indbetaling på %s med kommentaren "%s" er registreret manuelt.</p></body></html>`,
			html.EscapeString(m.Firstname), amount.Money(), html.EscapeString(mobilePayComment))
	}
	return fmt.Sprintf(
		`<html><body><p>Hej %s!</p>
<p>Din indbetaling på %s er registreret automatisk.</p></body></html>`,
		html.EscapeString(m.Firstname), amount.Money())
}
