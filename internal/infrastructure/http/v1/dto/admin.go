package dto

import (
	"time"

	"stregsystem/internal/domain/payment"
	"stregsystem/internal/domain/razzia"
	"stregsystem/internal/domain/report"
)

// BatchPaymentEntry is one row of a manual batch payment.
type BatchPaymentEntry struct {
	MemberID int64  `json:"memberId" binding:"required"`
	Amount   int64  `json:"amount" binding:"required"`
	Notes    string `json:"notes"`
}

// BatchPaymentRequest credits several members in one submission.
type BatchPaymentRequest struct {
	Payments []BatchPaymentEntry `json:"payments" binding:"required,min=1"`
}

// PaymentDecision is one operator decision in the payment tool.
type PaymentDecision struct {
	MobilePaymentID int64  `json:"mobilePaymentId" binding:"required"`
	MemberID        *int64 `json:"memberId"`
	Status          string `json:"status" binding:"required"`
}

// PaymentToolRequest submits the operator's batch of decisions.
type PaymentToolRequest struct {
	Decisions []PaymentDecision `json:"decisions" binding:"required,min=1"`
}

// ToDecisions maps the request to domain decisions.
func (r *PaymentToolRequest) ToDecisions() []payment.Decision {
	decisions := make([]payment.Decision, len(r.Decisions))
	for i, d := range r.Decisions {
		decisions[i] = payment.Decision{
			MobilePaymentID: d.MobilePaymentID,
			MemberID:        d.MemberID,
			Status:          payment.Status(d.Status),
		}
	}
	return decisions
}

// RazziaCreateRequest starts a razzia.
type RazziaCreateRequest struct {
	Name string `json:"name" binding:"required"`
}

// RazziaCheckInRequest checks a member in by username.
type RazziaCheckInRequest struct {
	Username string `json:"username" binding:"required"`
}

// RazziaCheckInResponse reports the check-in outcome.
type RazziaCheckInResponse struct {
	Accepted         bool   `json:"accepted"`
	AlreadyCheckedIn bool   `json:"alreadyCheckedIn"`
	RemainingSeconds int64  `json:"remainingSeconds,omitempty"`
	Turns            int    `json:"turns"`
	MemberID         int64  `json:"memberId"`
	Username         string `json:"username"`
}

// NewRazziaCheckInResponse maps a check-in result.
func NewRazziaCheckInResponse(memberID int64, username string, r razzia.CheckInResult) *RazziaCheckInResponse {
	return &RazziaCheckInResponse{
		Accepted:         r.Accepted,
		AlreadyCheckedIn: r.AlreadyCheckedIn,
		RemainingSeconds: int64(r.Remaining / time.Second),
		Turns:            r.Turns,
		MemberID:         memberID,
		Username:         username,
	}
}

// RanksResponse is the yearly ranking report.
type RanksResponse struct {
	Year       int                  `json:"year"`
	Money      []*report.MemberRank `json:"money"`
	Categories []CategoryRanks      `json:"categories"`
}

// CategoryRanks is one category's top list.
type CategoryRanks struct {
	CategoryID int64                `json:"categoryId"`
	Name       string               `json:"name"`
	Ranks      []*report.MemberRank `json:"ranks"`
}

// SalesSummaryRequest bounds the per-product sales report.
type SalesSummaryRequest struct {
	ProductIDs []int64   `json:"productIds" binding:"required,min=1"`
	From       time.Time `json:"from" binding:"required"`
	To         time.Time `json:"to" binding:"required"`
}

// ReimburseRequest undoes a sale.
type ReimburseRequest struct {
	SaleID int64 `json:"saleId" binding:"required"`
}
