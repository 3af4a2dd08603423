package dto

import (
	"stregsystem/internal/domain/member"
)

// SignupRequest creates a member with a pending signup due.
type SignupRequest struct {
	Username  string `json:"username" binding:"required"`
	Firstname string `json:"firstname" binding:"required"`
	Lastname  string `json:"lastname" binding:"required"`
	Email     string `json:"email"`
	Gender    string `json:"gender"`
	WantSpam  bool   `json:"wantSpam"`
}

// SignupResponse is returned when a signup is created.
type SignupResponse struct {
	SignupID     int64  `json:"signupId"`
	MemberID     int64  `json:"memberId"`
	Due          int64  `json:"due"`
	MobilePayURI string `json:"mobilePayUri"`
}

// SignupStatusResponse reports reconciliation progress of a signup.
type SignupStatusResponse struct {
	SignupID     int64  `json:"signupId"`
	Username     string `json:"username"`
	Due          int64  `json:"due"`
	Status       string `json:"status"`
	DuePaid      bool   `json:"duePaid"`
	MobilePayURI string `json:"mobilePayUri"`
}

// NewSignupStatusResponse maps a pending signup with its member.
func NewSignupStatusResponse(s *member.PendingSignup, m *member.Member) *SignupStatusResponse {
	return &SignupStatusResponse{
		SignupID:     s.ID,
		Username:     m.Username,
		Due:          int64(s.Due),
		Status:       s.Status,
		DuePaid:      m.SignupDuePaid,
		MobilePayURI: s.MobilePayURI(m.Username),
	}
}

// MemberIDResponse resolves a username to its id.
type MemberIDResponse struct {
	MemberID int64 `json:"memberId"`
}

// BalanceResponse is the member's current balance.
type BalanceResponse struct {
	MemberID       int64  `json:"memberId"`
	Balance        int64  `json:"balance"`
	BalanceDisplay string `json:"balanceDisplay"`
}
