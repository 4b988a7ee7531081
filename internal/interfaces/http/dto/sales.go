package dto

import (
	"fmt"
	"time"

	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/domain/shared"
)

// SalesQueryRequest is the filter form of the sales dashboard
type SalesQueryRequest struct {
	PeriodType string `form:"period_type" binding:"omitempty,oneof=custom month year quarter"`
	StartDate  string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate    string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
	Year       int    `form:"year" binding:"omitempty,min=1970,max=2100"`
	Month      int    `form:"month" binding:"omitempty,min=1,max=12"`
	Quarter    int    `form:"quarter" binding:"omitempty,min=1,max=4"`
	Category   string `form:"category" binding:"max=200"`
}

// ToQuery converts the form into a domain query. Dates are read as calendar days.
func (r SalesQueryRequest) ToQuery() (report.SalesQuery, error) {
	q := report.SalesQuery{
		PeriodType: report.PeriodType(r.PeriodType),
		Year:       r.Year,
		Month:      r.Month,
		Quarter:    r.Quarter,
		Category:   r.Category,
	}
	var err error
	if q.Start, err = parseDate(r.StartDate); err != nil {
		return q, err
	}
	if q.End, err = parseDate(r.EndDate); err != nil {
		return q, err
	}
	return q, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(period.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: некорректная дата %q", shared.ErrInvalidPeriod, s)
	}
	return period.Date(t.Year(), t.Month(), t.Day()), nil
}

// SalesOverviewResponse is the JSON form of the sales dashboard
type SalesOverviewResponse struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	*report.SalesOverview
}

// NewSalesOverviewResponse wraps an overview with its resolved dates
func NewSalesOverviewResponse(o *report.SalesOverview) SalesOverviewResponse {
	return SalesOverviewResponse{
		StartDate:     o.Period.Start.Format(period.DateLayout),
		EndDate:       o.Period.End.Format(period.DateLayout),
		SalesOverview: o,
	}
}
