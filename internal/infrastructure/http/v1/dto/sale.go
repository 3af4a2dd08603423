package dto

import (
	"time"

	"stregsystem/internal/domain/member"
	"stregsystem/internal/domain/order"
)

// QuickBuyRequest is one terminal line.
type QuickBuyRequest struct {
	QuickBuy string `json:"quickbuy" binding:"required"`
}

// SaleLine is one committed sale row.
type SaleLine struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"productId"`
	Price     int64     `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// QuickBuyResponse is what the terminal renders after a sale. Promille
// and caffeine are only set when the purchase contained alcohol or
// caffeine respectively.
type QuickBuyResponse struct {
	MemberID       int64      `json:"memberId"`
	Username       string     `json:"username"`
	Balance        int64      `json:"balance"`
	BalanceDisplay string     `json:"balanceDisplay"`
	Sales          []SaleLine `json:"sales,omitempty"`
	Total          int64      `json:"total"`
	// MenuOnly is set when the line held only a username.
	MenuOnly       bool     `json:"menuOnly"`
	MultibuyHint   string   `json:"multibuyHint,omitempty"`
	Promille       *float64 `json:"promille,omitempty"`
	CaffeineMG     *float64 `json:"caffeineMg,omitempty"`
	CaffeineCups   *int     `json:"caffeineCups,omitempty"`
	IsCoffeeMaster bool     `json:"isCoffeeMaster,omitempty"`
}

// NewQuickBuyResponse maps the execution result.
func NewQuickBuyResponse(r *order.QuickBuyResult) *QuickBuyResponse {
	resp := &QuickBuyResponse{
		MemberID:       r.Member.ID,
		Username:       r.Member.Username,
		Balance:        int64(r.Member.Balance),
		BalanceDisplay: r.Member.BalanceDisplay(),
		MenuOnly:       r.Order == nil,
	}
	for _, s := range r.Sales {
		resp.Sales = append(resp.Sales, SaleLine{
			ID:        s.ID,
			ProductID: s.ProductID,
			Price:     int64(s.Price),
			Timestamp: s.Timestamp,
		})
	}
	if r.Order != nil {
		resp.Total = int64(r.Order.Total())
	}
	return resp
}

// UserInfoResponse backs the room user page: recent activity plus the
// running balance.
type UserInfoResponse struct {
	MemberID       int64        `json:"memberId"`
	Username       string       `json:"username"`
	Firstname      string       `json:"firstname"`
	Lastname       string       `json:"lastname"`
	Balance        int64        `json:"balance"`
	BalanceDisplay string       `json:"balanceDisplay"`
	LowBalance     bool         `json:"lowBalance"`
	Sales          []SaleLine   `json:"sales"`
	LastPayment    *PaymentLine `json:"lastPayment,omitempty"`
}

// PaymentLine is one payment row.
type PaymentLine struct {
	ID        int64     `json:"id"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUserInfoResponse maps the member with recent sales.
func NewUserInfoResponse(m *member.Member, sales []*order.Sale, lowBalance bool) *UserInfoResponse {
	resp := &UserInfoResponse{
		MemberID:       m.ID,
		Username:       m.Username,
		Firstname:      m.Firstname,
		Lastname:       m.Lastname,
		Balance:        int64(m.Balance),
		BalanceDisplay: m.BalanceDisplay(),
		LowBalance:     lowBalance,
		Sales:          []SaleLine{},
	}
	for _, s := range sales {
		resp.Sales = append(resp.Sales, SaleLine{
			ID:        s.ID,
			ProductID: s.ProductID,
			Price:     int64(s.Price),
			Timestamp: s.Timestamp,
		})
	}
	return resp
}
