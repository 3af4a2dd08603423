// Package auth provides admin authentication and capability checks for
// the back-office surface. Kiosk quickbuy is unauthenticated; only the
// operator endpoints (payment tool, razzias, reports) sit behind this.
package auth

import (
	"context"
	"time"

	"stregsystem/internal/core/apperror"
)

// Capability gates one slice of the admin surface.
type Capability string

const (
	// CapabilityStaff admits to the admin area at all.
	CapabilityStaff Capability = "staff"
	// CapabilityHostRazzia allows creating razzias and checking members in.
	CapabilityHostRazzia Capability = "host_razzia"
	// CapabilitySalesReports allows the rank and sales report pages.
	CapabilitySalesReports Capability = "access_sales_reports"
	// CapabilityMobilePayTool allows the mobile-payment decision tool.
	CapabilityMobilePayTool Capability = "mobilepaytool"
)

// AdminUser is a back-office operator account.
type AdminUser struct {
	ID                  int64        `db:"id" json:"id"`
	Username            string       `db:"username" json:"username"`
	PasswordHash        string       `db:"password_hash" json:"-"`
	IsActive            bool         `db:"is_active" json:"isActive"`
	IsSuperuser         bool         `db:"is_superuser" json:"isSuperuser"`
	Capabilities        []Capability `db:"-" json:"capabilities,omitempty"`
	LastLoginAt         *time.Time   `db:"last_login_at" json:"lastLoginAt,omitempty"`
	FailedLoginAttempts int          `db:"failed_login_attempts" json:"-"`
	LockedUntil         *time.Time   `db:"locked_until" json:"-"`
	CreatedAt           time.Time    `db:"created_at" json:"createdAt"`
}

// Validate validates account data.
func (u *AdminUser) Validate() error {
	if u.Username == "" {
		return apperror.NewValidation("username is required").WithDetail("field", "username")
	}
	return nil
}

// IsLocked returns true while the account is locked out.
func (u *AdminUser) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// CanLogin checks whether the account may authenticate right now.
func (u *AdminUser) CanLogin(now time.Time) error {
	if !u.IsActive {
		return apperror.NewForbidden("account is disabled")
	}
	if u.IsLocked(now) {
		return apperror.NewForbidden("account is temporarily locked")
	}
	return nil
}

// RecordFailedLogin increments the failed login counter and locks the
// account once the limit is hit.
func (u *AdminUser) RecordFailedLogin(now time.Time, maxAttempts int, lockDuration time.Duration) {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		lockUntil := now.Add(lockDuration)
		u.LockedUntil = &lockUntil
	}
}

// RecordSuccessfulLogin resets the lockout state.
func (u *AdminUser) RecordSuccessfulLogin(now time.Time) {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLoginAt = &now
}

// Has reports whether the account carries the capability. Superusers
// carry everything.
func (u *AdminUser) Has(c Capability) bool {
	if u.IsSuperuser {
		return true
	}
	for _, have := range u.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// RefreshToken is a stored, hashed refresh token.
type RefreshToken struct {
	ID            int64      `db:"id"`
	UserID        int64      `db:"user_id"`
	TokenHash     string     `db:"token_hash"`
	ExpiresAt     time.Time  `db:"expires_at"`
	CreatedAt     time.Time  `db:"created_at"`
	RevokedAt     *time.Time `db:"revoked_at"`
	RevokedReason string     `db:"revoked_reason"`
}

// IsValid checks whether the refresh token may still be redeemed.
func (t *RefreshToken) IsValid(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// TokenPair contains the issued access and refresh tokens.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	TokenType    string    `json:"tokenType"`
}

// Credentials for login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Operator is the authenticated principal attached to a request.
type Operator struct {
	UserID       int64
	Username     string
	Superuser    bool
	Capabilities []Capability
}

// Has reports whether the operator carries the capability.
func (o *Operator) Has(c Capability) bool {
	if o.Superuser {
		return true
	}
	for _, have := range o.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

type operatorKey struct{}

// WithOperator attaches the operator to the context.
func WithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// OperatorFrom returns the request's operator, or nil.
func OperatorFrom(ctx context.Context) *Operator {
	if op, ok := ctx.Value(operatorKey{}).(*Operator); ok {
		return op
	}
	return nil
}

// RequireCapability returns the operator if it carries the capability.
func RequireCapability(ctx context.Context, c Capability) (*Operator, error) {
	op := OperatorFrom(ctx)
	if op == nil {
		return nil, apperror.NewUnauthorized("authentication required")
	}
	if !op.Has(c) {
		return nil, apperror.NewForbidden("missing capability").WithDetail("capability", string(c))
	}
	return op, nil
}
