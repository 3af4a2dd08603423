// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced by the accounting core
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"
	CodeQuickBuy   = "QUICKBUY_PARSE_ERROR"

	// Business rule violations
	CodeStregforbud     = "STREGFORBUD"       // 402, balance would go negative
	CodeNoMoreInventory = "NO_MORE_INVENTORY" // 422, product exhausted at commit
	CodePaymentToolRace = "PAYMENT_TOOL_RACE" // 409, operator batch is stale
	CodeSignupDueUnpaid = "SIGNUP_DUE_UNPAID" // 402, member has not paid signup due
	CodeRazziaLockout   = "RAZZIA_LOCKOUT"    // 422, member checked in too recently

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict  = "CONFLICT"
	CodeDuplicate = "DUPLICATE_ENTRY"
)

// AppError is the standard error type for the system.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, amounts, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewQuickBuy creates a parse error carrying the prefix that parsed and the
// suffix that failed, so the UI can point at the first bad character.
func NewQuickBuy(parsed, failed string) *AppError {
	return &AppError{
		Code:       CodeQuickBuy,
		Message:    "malformed quickbuy command",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"parsed": parsed, "failed": failed},
	}
}

// NewStregforbud creates an insufficient balance error (402)
func NewStregforbud(username string) *AppError {
	return &AppError{
		Code:       CodeStregforbud,
		Message:    "insufficient balance",
		HTTPStatus: http.StatusPaymentRequired,
		Details:    map[string]any{"username": username},
	}
}

// NewNoMoreInventory creates a product exhausted error (422)
func NewNoMoreInventory(productID int64) *AppError {
	return &AppError{
		Code:       CodeNoMoreInventory,
		Message:    "product is out of stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"product_id": productID},
	}
}

// NewPaymentToolRace is returned when an operator submits a batch where some
// rows were already processed by another operator or the auto-approval job.
// The whole batch is rejected; the UI must reload.
func NewPaymentToolRace(transactionIDs []string) *AppError {
	return &AppError{
		Code:       CodePaymentToolRace,
		Message:    "batch is out of date, some rows were already processed",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"count":           len(transactionIDs),
			"transaction_ids": transactionIDs,
		},
	}
}

// NewSignupDueUnpaid creates an error for members that have not paid their due (402)
func NewSignupDueUnpaid(username string) *AppError {
	return &AppError{
		Code:       CodeSignupDueUnpaid,
		Message:    "signup due not paid",
		HTTPStatus: http.StatusPaymentRequired,
		Details:    map[string]any{"username": username},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsStregforbud checks if error is CodeStregforbud
func IsStregforbud(err error) bool {
	return IsCode(err, CodeStregforbud)
}

// IsNoMoreInventory checks if error is CodeNoMoreInventory
func IsNoMoreInventory(err error) bool {
	return IsCode(err, CodeNoMoreInventory)
}

// IsCode checks if error carries the given code
func IsCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
