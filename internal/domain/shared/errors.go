package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped copies compare equal to the sentinels.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeInvalidInput    = "INVALID_INPUT"
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidPeriod   = "INVALID_PERIOD"
	CodeDataUnavailable = "DATA_UNAVAILABLE"
	CodeNoData          = "NO_DATA"
	CodeSessionLost     = "SESSION_LOST"
	CodeRenderFailed    = "RENDER_FAILED"
)

// Common domain errors
var (
	ErrNotFound     = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput = NewDomainError(CodeInvalidInput, "Invalid input provided")

	// ErrInvalidPeriod is returned for anchor values that do not name a real period.
	ErrInvalidPeriod = NewDomainError(CodeInvalidPeriod, "Invalid period")
	// ErrDataUnavailable is returned when the sales database cannot answer a query.
	ErrDataUnavailable = NewDomainError(CodeDataUnavailable, "Data is currently unavailable")
	// ErrNoData marks a valid query that returned zero rows. It is informative, not a failure.
	ErrNoData = NewDomainError(CodeNoData, "No data for the requested period")
	// ErrSessionLost is returned when a navigation event arrives without a live session.
	ErrSessionLost = NewDomainError(CodeSessionLost, "Navigation session lost")
	// ErrRenderFailed is returned when a chart, page or document cannot be rendered.
	ErrRenderFailed = NewDomainError(CodeRenderFailed, "Artifact rendering failed")
)
