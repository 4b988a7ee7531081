package dto

import "net/http"

// Error codes of the web API
const (
	ErrCodeInternal   = "ERR_INTERNAL"
	ErrCodeValidation = "ERR_VALIDATION"
	ErrCodeBadRequest = "ERR_BAD_REQUEST"

	// ErrCodeInvalidInput is used for filter values the service rejects
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidPeriod is used for dates that do not form a valid range
	ErrCodeInvalidPeriod = "ERR_INVALID_PERIOD"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"

	ErrCodeNotFound    = "ERR_NOT_FOUND"
	ErrCodeNoData      = "ERR_NO_DATA"
	ErrCodeRateLimited = "ERR_RATE_LIMITED"

	// ErrCodeDataUnavailable is used when the sales database cannot be reached
	ErrCodeDataUnavailable = "ERR_DATA_UNAVAILABLE"
	ErrCodeRenderFailed    = "ERR_RENDER_FAILED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidPeriod:   http.StatusBadRequest,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeTokenExpired:    http.StatusUnauthorized,
	ErrCodeTokenInvalid:    http.StatusUnauthorized,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeNoData:          http.StatusNotFound,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeDataUnavailable: http.StatusServiceUnavailable,
	ErrCodeRenderFailed:    http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps shared.DomainError codes to API codes
var DomainErrorCodeMapping = map[string]string{
	"INVALID_INPUT":    ErrCodeInvalidInput,
	"NOT_FOUND":        ErrCodeNotFound,
	"INVALID_PERIOD":   ErrCodeInvalidPeriod,
	"DATA_UNAVAILABLE": ErrCodeDataUnavailable,
	"NO_DATA":          ErrCodeNoData,
	"RENDER_FAILED":    ErrCodeRenderFailed,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format, and unknown ones, are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
