package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	// Input errors: the request itself is malformed.
	ErrCodeInvalidEventRequirements ErrorCode = "INVALID_EVENT_REQUIREMENTS"
	ErrCodeInvalidBudgetFormat      ErrorCode = "INVALID_BUDGET_FORMAT"
	ErrCodeInvalidFilterFormat      ErrorCode = "INVALID_FILTER_FORMAT"
	ErrCodeInvalidJobInput          ErrorCode = "INVALID_JOB_INPUT"

	// Data errors: a single catalog record cannot be scored.
	ErrCodeInvalidVenueData ErrorCode = "INVALID_VENUE_DATA"

	// Collaborator errors.
	ErrCodeCatalogUnavailable       ErrorCode = "CATALOG_UNAVAILABLE"
	ErrCodeWeatherUnavailable       ErrorCode = "WEATHER_UNAVAILABLE"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeCacheUnavailable         ErrorCode = "CACHE_UNAVAILABLE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Sentinels for errors.Is matching. StandardError.Is compares codes only.
var (
	ErrInvalidEventRequirements = &StandardError{Code: ErrCodeInvalidEventRequirements}
	ErrInvalidBudgetFormat      = &StandardError{Code: ErrCodeInvalidBudgetFormat}
	ErrInvalidFilterFormat      = &StandardError{Code: ErrCodeInvalidFilterFormat}
	ErrInvalidVenueData         = &StandardError{Code: ErrCodeInvalidVenueData}
	ErrCatalogUnavailable       = &StandardError{Code: ErrCodeCatalogUnavailable}
	ErrWeatherUnavailable       = &StandardError{Code: ErrCodeWeatherUnavailable}
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata returns e after attaching key/value.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewInvalidEventRequirementsError(details string) *StandardError {
	return newError(ErrCodeInvalidEventRequirements, "Invalid event requirements", details, false, nil)
}

func NewInvalidBudgetFormatError(raw string) *StandardError {
	return newError(ErrCodeInvalidBudgetFormat, "Budget range could not be parsed",
		fmt.Sprintf("budget: %q", raw), false, nil)
}

func NewInvalidFilterFormatError(details string) *StandardError {
	return newError(ErrCodeInvalidFilterFormat, "Invalid candidate filter", details, false, nil)
}

func NewInvalidJobInputError(details string) *StandardError {
	return newError(ErrCodeInvalidJobInput, "Job variables failed validation", details, false, nil)
}

func NewInvalidVenueDataError(venueID, details string) *StandardError {
	return newError(ErrCodeInvalidVenueData, "Venue record cannot be scored", details, false, nil).
		WithMetadata("venueId", venueID)
}

func NewCatalogUnavailableError(err error) *StandardError {
	return newError(ErrCodeCatalogUnavailable, "Venue catalog unavailable", err.Error(), true, err)
}

func NewWeatherUnavailableError(err error) *StandardError {
	return newError(ErrCodeWeatherUnavailable, "Weather forecast unavailable", err.Error(), true, err)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true, err)
}

func NewQueryExecutionFailedError(query string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("query: %s, error: %s", query, err.Error()), true, err)
}

func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Elasticsearch query error",
		fmt.Sprintf("index: %s, error: %s", index, err.Error()), true, err)
}

func NewCacheUnavailableError(err error) *StandardError {
	return newError(ErrCodeCacheUnavailable, "Redis cache unavailable", err.Error(), true, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// As extracts the first StandardError in err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCatalogUnavailable,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeSearchQueryFailed:
		return 3
	case ErrCodeWeatherUnavailable, ErrCodeCacheUnavailable:
		return 1
	default:
		return 0
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"errorCategory":     GetErrorCategory(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "INVALID_VENUE"):
		return "DATA"
	case strings.HasPrefix(codeStr, "INVALID_"):
		return "INPUT"
	case strings.HasSuffix(codeStr, "_UNAVAILABLE"),
		strings.Contains(codeStr, "QUERY"),
		strings.Contains(codeStr, "DATABASE"):
		return "COLLABORATOR"
	default:
		return "OTHER"
	}
}
