// Package events carries explicit domain events between subsystems.
// The original relied on hidden framework save-hooks (member save -> welcome
// mail, payment save -> receipt mail); here the services emit events and the
// interested parties subscribe: mail is one subscriber, the achievement
// evaluator another.
package events

import (
	"context"
	"sync"
	"time"

	"stregsystem/internal/core/kroner"
	"stregsystem/pkg/logger"
)

// Event is a marker for domain events.
type Event interface {
	EventName() string
}

// MemberCreated fires when a new member row is committed.
type MemberCreated struct {
	MemberID int64
	Username string
}

func (MemberCreated) EventName() string { return "member.created" }

// SignupCompleted fires when a pending signup's due reaches zero and the
// signup was approved; subscribers send the welcome mail.
type SignupCompleted struct {
	MemberID int64
	Username string
}

func (SignupCompleted) EventName() string { return "signup.completed" }

// PaymentRecorded fires after a Payment credit is committed.
type PaymentRecorded struct {
	MemberID          int64
	Amount            kroner.Oere
	MobilePayComment  string
	FromMobilePayment bool
}

func (PaymentRecorded) EventName() string { return "payment.recorded" }

// SalesCommitted fires after an order's sale rows are committed. It drives
// achievement evaluation and display recomputation; a crash between commit
// and dispatch only delays completions until the member's next sale.
type SalesCommitted struct {
	MemberID   int64
	RoomID     int64
	ProductIDs []int64 // one entry per sale row, used for relevance filtering
	Total      kroner.Oere
	At         time.Time
}

func (SalesCommitted) EventName() string { return "order.sales_committed" }

// Handler consumes one event. Handlers run after the originating transaction
// has committed and must not fail the caller; errors are logged only.
type Handler func(ctx context.Context, e Event)

// Bus is a process-local synchronous dispatcher.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers a handler for the named event.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish dispatches the event to all subscribers in registration order.
// Panics in handlers are recovered and logged; one bad subscriber must not
// take down the sale path.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	hs := b.handlers[e.EventName()]
	b.mu.RUnlock()

	for _, h := range hs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(ctx, "event handler panicked", "event", e.EventName(), "panic", r)
				}
			}()
			h(ctx, e)
		}()
	}
}
