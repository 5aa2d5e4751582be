// Package errors provides custom error types for the Stockfolio API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & token lifecycle errors.
var (
	ErrUnauthenticated    = &AppError{Code: "UNAUTHENTICATED", Message: "Invalid or expired token", StatusCode: http.StatusUnauthorized}
	ErrTokenExpired       = &AppError{Code: "TOKEN_EXPIRED", Message: "Token expired", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid username or password", StatusCode: http.StatusUnauthorized}
	ErrUserNotFound       = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusUnauthorized}
)

// General errors.
var (
	ErrInvalidInput       = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound           = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer     = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
	ErrStorageUnavailable = &AppError{Code: "STORAGE_UNAVAILABLE", Message: "Database not initialized or unavailable", StatusCode: http.StatusServiceUnavailable}
)

// User errors.
var (
	ErrDuplicateUsername = &AppError{Code: "DUPLICATE_USERNAME", Message: "Username already exists", StatusCode: http.StatusConflict}
)

// Portfolio & ledger errors.
var (
	ErrPortfolioNotFound    = &AppError{Code: "PORTFOLIO_NOT_FOUND", Message: "Portfolio not found", StatusCode: http.StatusNotFound}
	ErrNoSuchHolding        = &AppError{Code: "NO_SUCH_HOLDING", Message: "No holdings for this symbol in portfolio", StatusCode: http.StatusNotFound}
	ErrInsufficientHoldings = &AppError{Code: "INSUFFICIENT_HOLDINGS", Message: "Not enough holdings for this sale", StatusCode: http.StatusBadRequest}
	ErrInvalidQuantity      = &AppError{Code: "INVALID_QUANTITY", Message: "Input quantity is not a whole number of shares", StatusCode: http.StatusBadRequest}
)

// Quote errors.
var (
	ErrPriceUnavailable = &AppError{Code: "PRICE_UNAVAILABLE", Message: "Unable to fetch current price", StatusCode: http.StatusBadGateway}
)

// Advisor errors.
var (
	ErrAdvisorUnavailable = &AppError{Code: "ADVISOR_UNAVAILABLE", Message: "Advisor service is unavailable", StatusCode: http.StatusBadGateway}
)
