// Package kroner provides the integer minor-unit money model.
// All amounts in the system are signed 64-bit integers in øre (1 kr. = 100 øre);
// decimal kroner appear only at the boundary (display, deep links, CSV import).
package kroner

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Oere is a monetary amount in øre.
type Oere int64

var hundred = decimal.NewFromInt(100)

// Money formats an amount as decimal kroner, e.g. 90000 -> "900.00".
func (a Oere) Money() string {
	sign := ""
	if a < 0 {
		sign = "-"
	}
	v := abs64(int64(a))
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// PriceDisplay formats an amount for kiosk display, e.g. "900.00 kr.".
func (a Oere) PriceDisplay() string {
	return a.Money() + " kr."
}

// Kroner returns the amount as decimal kroner for boundary serialization
// (mobile-pay deep links carry kr with two decimals).
func (a Oere) Kroner() decimal.Decimal {
	return decimal.NewFromInt(int64(a)).Div(hundred)
}

// FromKroner converts a decimal kroner amount to øre, truncating beyond
// two decimals. Used when parsing operator input and CSV imports.
func FromKroner(kr decimal.Decimal) Oere {
	return Oere(kr.Mul(hundred).IntPart())
}

// ParseKroner parses a decimal kroner string ("200", "200.50") into øre.
func ParseKroner(s string) (Oere, error) {
	kr, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse kroner amount %q: %w", s, err)
	}
	return FromKroner(kr), nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// Transaction is a monetary transaction (not a database transaction) seen
// from the member's perspective: pay takes money, get gives money.
type Transaction interface {
	// Change returns the signed effect on the member's balance.
	Change() Oere
	// Amount returns the unsigned transaction amount.
	Amount() Oere
}

// PayTransaction debits the member.
type PayTransaction struct {
	amount Oere
}

// NewPay creates a debiting transaction.
func NewPay(amount Oere) *PayTransaction {
	return &PayTransaction{amount: amount}
}

// Add grows the amount this transaction is for.
func (t *PayTransaction) Add(amount Oere) {
	t.amount += amount
}

func (t *PayTransaction) Amount() Oere { return t.amount }

// Change is negative because the member is losing money.
func (t *PayTransaction) Change() Oere { return -t.amount }

// GetTransaction credits the member.
type GetTransaction struct {
	amount Oere
}

// NewGet creates a crediting transaction.
func NewGet(amount Oere) *GetTransaction {
	return &GetTransaction{amount: amount}
}

func (t *GetTransaction) Amount() Oere { return t.amount }

func (t *GetTransaction) Change() Oere { return t.amount }
