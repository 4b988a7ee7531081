package report

import (
	"fmt"

	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/shared"
)

// FailureKind tells connection failures from query failures
type FailureKind string

const (
	ConnectionFailed FailureKind = "connection_failed"
	QueryFailed      FailureKind = "query_failed"
)

// DataUnavailableError is returned by the gateway when a query cannot be answered.
type DataUnavailableError struct {
	Query  string
	Period period.Range
	Kind   FailureKind
	Err    error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("query %s for %s: %s: %v", e.Query, e.Period, e.Kind, e.Err)
}

func (e *DataUnavailableError) Unwrap() []error {
	return []error{shared.ErrDataUnavailable, e.Err}
}

// NewDataUnavailable wraps a gateway failure.
func NewDataUnavailable(query string, r period.Range, kind FailureKind, err error) *DataUnavailableError {
	return &DataUnavailableError{Query: query, Period: r, Kind: kind, Err: err}
}

// NoDataError signals a valid query with zero rows. Its message is shown to the user as is.
type NoDataError struct {
	Query  QueryName
	Period period.Range
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("Нет данных для графика '%s' за период %s - %s.",
		e.Query, e.Period.Start.Format(period.DateLayout), e.Period.End.Format(period.DateLayout))
}

func (e *NoDataError) Unwrap() error {
	return shared.ErrNoData
}
