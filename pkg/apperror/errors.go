package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured ledger error. Code identifies the failure kind and
// is stable across the ledger boundary; HTTPStatus is used by the collaborator API.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Error codes of the ledger taxonomy.
const (
	CodeInvalidAmount      = "LED_001"
	CodeInsufficientFunds  = "LED_002"
	CodeDailyLimitExceeded = "LED_003"
	CodeAccountNotFound    = "LED_004"
	CodeInvalidTransfer    = "LED_005"
	CodeInvalidRequest     = "LED_006"
	CodePersistenceFailure = "SYS_001"
	CodeInternal           = "SYS_002"
	CodeInvalidToken       = "AUTH_001"
	CodeRateLimitExceeded  = "RATE_001"
)

// Is reports whether err is an *AppError carrying the given code.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the code of err, or CodeInternal for foreign errors.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// ---- Ledger business rules (LED) ----

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Amount outside the allowed range", http.StatusBadRequest)
}

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient balance", http.StatusPaymentRequired)
}

func ErrDailyLimitExceeded() *AppError {
	return New(CodeDailyLimitExceeded, "Daily transaction limit exceeded", http.StatusTooManyRequests)
}

func ErrAccountNotFound() *AppError {
	return New(CodeAccountNotFound, "Account not found", http.StatusNotFound)
}

func ErrInvalidTransfer(reason string) *AppError {
	return New(CodeInvalidTransfer, "Invalid transfer: "+reason, http.StatusBadRequest)
}

// Validation returns an invalid-request error for malformed input.
func Validation(message string) *AppError {
	return New(CodeInvalidRequest, message, http.StatusBadRequest)
}

// ---- System & Infrastructure (SYS) ----

// ErrPersistenceFailure reports a durable-store I/O failure, including a lock
// wait that ran past its context deadline.
func ErrPersistenceFailure(err error) *AppError {
	return Wrap(CodePersistenceFailure, "Ledger persistence failure", http.StatusServiceUnavailable, err)
}

// InternalError wraps an unexpected internal error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// ---- Collaborator API (AUTH, RATE) ----

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}
