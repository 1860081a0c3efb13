package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidInstallmentCount = errors.New("invalid installment count")
	ErrPeriodOutOfRange        = errors.New("period out of range")
	ErrStoreUnavailable        = errors.New("store unavailable")
	ErrPurchaseNotFound        = errors.New("purchase not found")
	ErrRecurringNotFound       = errors.New("recurring purchase not found")
	ErrValidationFailed        = errors.New("validation failed")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeInvalidAmount           = "INVALID_AMOUNT"
	ErrCodeInvalidInstallmentCount = "INVALID_INSTALLMENT_COUNT"
	ErrCodePeriodOutOfRange        = "PERIOD_OUT_OF_RANGE"
	ErrCodeStoreUnavailable        = "STORE_UNAVAILABLE"
	ErrCodePurchaseNotFound        = "PURCHASE_NOT_FOUND"
	ErrCodeRecurringNotFound       = "RECURRING_NOT_FOUND"
	ErrCodeValidationFailed        = "VALIDATION_FAILED"
	ErrCodeCacheError              = "CACHE_ERROR"
)

// CodeOf returns the business code carried by err, or "" when err is not a BusinessError.
func CodeOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

func WrapInvalidAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidAmount,
		fmt.Sprintf("Invalid amount: %s", amount),
		ErrInvalidAmount,
	)
}

func WrapInstallmentTooSmall(total string, count int) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidAmount,
		fmt.Sprintf("Amount %s split in %d installments rounds to zero", total, count),
		ErrInvalidAmount,
	)
}

func WrapInvalidInstallmentCount(count, max int) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidInstallmentCount,
		fmt.Sprintf("Installment count %d outside [1, %d]", count, max),
		ErrInvalidInstallmentCount,
	)
}

func WrapPeriodOutOfRange(month, year int) *BusinessError {
	return NewBusinessError(
		ErrCodePeriodOutOfRange,
		fmt.Sprintf("Period %02d/%d is out of range", month, year),
		ErrPeriodOutOfRange,
	)
}

// WrapStoreUnavailable keeps the driver error reachable through errors.Is / errors.As
// while still matching ErrStoreUnavailable.
func WrapStoreUnavailable(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeStoreUnavailable,
		"ledger store operation failed",
		fmt.Errorf("%w: %w", ErrStoreUnavailable, err),
	)
}

func WrapPurchaseNotFound(purchaseID string) *BusinessError {
	return NewBusinessError(
		ErrCodePurchaseNotFound,
		fmt.Sprintf("Purchase with ID %s not found", purchaseID),
		ErrPurchaseNotFound,
	)
}

func WrapRecurringNotFound(recurringID string) *BusinessError {
	return NewBusinessError(
		ErrCodeRecurringNotFound,
		fmt.Sprintf("Recurring purchase with ID %s not found", recurringID),
		ErrRecurringNotFound,
	)
}

func WrapValidationFailed(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeValidationFailed,
		"request validation failed",
		fmt.Errorf("%w: %w", ErrValidationFailed, err),
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}
