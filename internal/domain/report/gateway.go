package report

import (
	"context"

	"github.com/bimate/backend/internal/domain/period"
)

// Filter narrows a chart aggregation. Empty fields are ignored.
type Filter struct {
	Category string
}

// Gateway is the read-only aggregate query surface over the sales database.
// Empty results are returned as empty values, never as errors. Failures are
// returned as *DataUnavailableError.
type Gateway interface {
	// RunSeries executes one named chart aggregation.
	RunSeries(ctx context.Context, name QueryName, r period.Range, filter Filter) (*Series, error)

	// Totals returns revenue and distinct order count of completed orders.
	Totals(ctx context.Context, r period.Range) (Totals, error)
	NewCustomers(ctx context.Context, r period.Range) (int64, error)
	TopProducts(ctx context.Context, r period.Range, limit int) ([]ProductSales, error)
	Channels(ctx context.Context, r period.Range) ([]ChannelRow, error)
	DailyTotals(ctx context.Context, r period.Range) ([]DailyTotal, error)
	ShippedOrders(ctx context.Context, r period.Range) (int64, error)
	// DeliveryRegions returns the distinct delivery cities joined by ", ".
	DeliveryRegions(ctx context.Context, r period.Range) (string, error)
}
