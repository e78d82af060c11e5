package daraja

import (
	"errors"
	"fmt"
)

// Error codes surfaced to callers. Transport-layer codes marked retryable
// may be retried; everything else is final from the gateway's perspective.
const (
	ErrCodeAuthFailed       = "AUTH_FAILED"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeEncryptionFailed = "ENCRYPTION_FAILED"
	ErrCodeInvalidPhone     = "INVALID_PHONE"
	ErrCodeNetwork          = "NETWORK_ERROR"
	ErrCodeTimeout          = "TIMEOUT"
	ErrCodeHTTP             = "HTTP_ERROR"
	ErrCodeAPI              = "API_ERROR"
	ErrCodeRequestFailed    = "REQUEST_FAILED"
	ErrCodeInvalidResponse  = "INVALID_RESPONSE"
)

// Error is the gateway error type. Every failure leaving this package is an
// *Error so callers can branch on Code without string matching.
type Error struct {
	Code        string
	Message     string
	StatusCode  int
	RawResponse string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the failure is transient. A retryable error
// from an exhausted call means the outcome is unknown, not that the payment
// failed; the webhook result is authoritative.
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case ErrCodeNetwork, ErrCodeTimeout:
		return true
	case ErrCodeHTTP, ErrCodeAPI:
		return e.StatusCode == 429 || e.StatusCode >= 500
	case ErrCodeRequestFailed:
		if e.StatusCode == 429 || e.StatusCode >= 500 {
			return true
		}
		// An exhausted retry loop wraps its last attempt's error. Timeouts
		// and network failures carry no status, so the cause decides.
		var inner *Error
		if errors.As(e.Err, &inner) {
			return inner.IsRetryable()
		}
		return false
	}
	return false
}

func NewValidationError(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

func NewAuthFailedError(raw string) *Error {
	return &Error{
		Code:        ErrCodeAuthFailed,
		Message:     "token response contained no access_token",
		RawResponse: raw,
	}
}

func NewEncryptionError(err error) *Error {
	return &Error{
		Code:    ErrCodeEncryptionFailed,
		Message: "could not encrypt initiator password; check that the certificate matches the environment (sandbox and production certificates are not interchangeable)",
		Err:     err,
	}
}

func NewInvalidPhoneError(original, attempted string) *Error {
	return &Error{
		Code:    ErrCodeInvalidPhone,
		Message: fmt.Sprintf("phone number %q did not normalize to a 254XXXXXXXXX MSISDN (got %q)", original, attempted),
	}
}

func NewNetworkError(err error) *Error {
	return &Error{
		Code:    ErrCodeNetwork,
		Message: "request to gateway failed",
		Err:     err,
	}
}

func NewTimeoutError(err error) *Error {
	return &Error{
		Code:    ErrCodeTimeout,
		Message: "request to gateway timed out",
		Err:     err,
	}
}

func NewAPIError(statusCode int, message, raw string) *Error {
	return &Error{
		Code:        ErrCodeAPI,
		Message:     message,
		StatusCode:  statusCode,
		RawResponse: raw,
	}
}

func NewInvalidResponseError(err error, raw string) *Error {
	return &Error{
		Code:        ErrCodeInvalidResponse,
		Message:     "gateway returned a body that could not be decoded",
		RawResponse: raw,
		Err:         err,
	}
}

// IsErrorCode checks if an error is a gateway *Error with a specific code
func IsErrorCode(err error, code string) bool {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Code == code
	}
	return false
}
