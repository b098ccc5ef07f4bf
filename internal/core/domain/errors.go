// Package domain defines the core entities, state machines, and errors of
// the settlement gateway, independent of any storage or transport concern.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the typed tag carried in the API error envelope (§7).
type ErrorCode string

const (
	ErrCodeValidation           ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound             ErrorCode = "NOT_FOUND"
	ErrCodeConflict             ErrorCode = "CONFLICT"
	ErrCodePaymentExpired       ErrorCode = "PAYMENT_EXPIRED"
	ErrCodePaymentCancelled     ErrorCode = "PAYMENT_CANCELLED"
	ErrCodeDuplicatePayment     ErrorCode = "DUPLICATE_PAYMENT"
	ErrCodeSettlementFailed     ErrorCode = "SETTLEMENT_FAILED"
	ErrCodeBatchClosed          ErrorCode = "BATCH_CLOSED"
	ErrCodeLiquidityUnavailable ErrorCode = "LIQUIDITY_UNAVAILABLE"
	ErrCodeRiskThreshold        ErrorCode = "RISK_THRESHOLD_EXCEEDED"
	ErrCodeRiskAssessmentFailed ErrorCode = "RISK_ASSESSMENT_FAILED"
	ErrCodeExternalService      ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout              ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
	ErrCodeMissingIdemKey       ErrorCode = "MISSING_IDEMPOTENCY_KEY"
	ErrCodeInvalidIdemKey       ErrorCode = "INVALID_IDEMPOTENCY_KEY"
)

// statusByCode mirrors the taxonomy table in spec §7.
var statusByCode = map[ErrorCode]int{
	ErrCodeValidation:           http.StatusBadRequest,
	ErrCodeNotFound:             http.StatusNotFound,
	ErrCodeConflict:             http.StatusConflict,
	ErrCodePaymentExpired:       http.StatusGone,
	ErrCodePaymentCancelled:     http.StatusConflict,
	ErrCodeDuplicatePayment:     http.StatusConflict,
	ErrCodeSettlementFailed:     http.StatusInternalServerError,
	ErrCodeBatchClosed:         http.StatusConflict,
	ErrCodeLiquidityUnavailable: http.StatusServiceUnavailable,
	ErrCodeRiskThreshold:        http.StatusForbidden,
	ErrCodeRiskAssessmentFailed: http.StatusInternalServerError,
	ErrCodeExternalService:      http.StatusBadGateway,
	ErrCodeTimeout:              http.StatusGatewayTimeout,
	ErrCodeInternal:             http.StatusInternalServerError,
	ErrCodeMissingIdemKey:       http.StatusBadRequest,
	ErrCodeInvalidIdemKey:       http.StatusBadRequest,
}

// GatewayError is the single error type that crosses every layer boundary.
type GatewayError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error { return e.Err }

// HTTPStatus returns the status code §7 assigns to the error's code,
// defaulting to 500 for anything not in the table (unknown failures are
// normalized rather than leaking internals).
func (e *GatewayError) HTTPStatus() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func NewError(code ErrorCode, message string) *GatewayError {
	return &GatewayError{Code: code, Message: message}
}

func WrapError(code ErrorCode, message string, err error) *GatewayError {
	return &GatewayError{Code: code, Message: message, Err: err}
}

func NewValidationError(field, reason string) *GatewayError {
	return &GatewayError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("%s: %s", field, reason),
		Details: map[string]any{"field": field},
	}
}

func NewNotFoundError(resource, id string) *GatewayError {
	return &GatewayError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %s not found", resource, id),
	}
}

// CodeOf extracts the ErrorCode from err, defaulting to ErrCodeInternal for
// anything that isn't a *GatewayError — infrastructure failures are never
// allowed to leak their internal shape to a caller.
func CodeOf(err error) ErrorCode {
	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err is a *GatewayError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var gerr *GatewayError
	return errors.As(err, &gerr) && gerr.Code == code
}
