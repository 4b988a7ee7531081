package report

import (
	"time"

	"github.com/bimate/backend/internal/domain/period"
	"github.com/shopspring/decimal"
)

// ColumnType is the value type of one result column
type ColumnType string

const (
	ColumnDate    ColumnType = "date"
	ColumnText    ColumnType = "text"
	ColumnNumeric ColumnType = "numeric"
	ColumnInteger ColumnType = "integer"
)

// Column describes one column of a series row
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Point is one row of an aggregate series. Date is set for time series, Label for
// categorical ones. Secondary carries the optional third column (revenue of top goods).
type Point struct {
	Label     string          `json:"label"`
	Date      time.Time       `json:"date,omitempty"`
	Value     decimal.Decimal `json:"value"`
	Secondary decimal.Decimal `json:"secondary,omitempty"`
}

// Series is the typed result of one named aggregation over a period.
// It is built once per request and never mutated afterwards.
type Series struct {
	Name    QueryName    `json:"name"`
	Period  period.Range `json:"-"`
	Columns []Column     `json:"columns"`
	Points  []Point      `json:"points"`
}

// Empty reports whether the aggregation returned no rows.
func (s *Series) Empty() bool {
	return s == nil || len(s.Points) == 0
}

// Labels returns the category axis: formatted dates for time series, labels otherwise.
func (s *Series) Labels() []string {
	out := make([]string, len(s.Points))
	for i, p := range s.Points {
		if !p.Date.IsZero() {
			out[i] = p.Date.Format("02.01.2006")
			continue
		}
		out[i] = p.Label
	}
	return out
}

// Values returns the primary values, optionally scaled to thousands.
func (s *Series) Values(thousands bool) []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		v := p.Value
		if thousands {
			v = v.Div(decimal.NewFromInt(1000))
		}
		out[i] = v.InexactFloat64()
	}
	return out
}

// Total sums the primary values.
func (s *Series) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range s.Points {
		sum = sum.Add(p.Value)
	}
	return sum
}
