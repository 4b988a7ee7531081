package report_test

import (
	"context"
	"errors"
	"time"

	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/infrastructure/document"
	"github.com/bimate/backend/internal/infrastructure/printing"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Implementations
// =============================================================================

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) RunSeries(ctx context.Context, name report.QueryName, r period.Range, filter report.Filter) (*report.Series, error) {
	args := m.Called(ctx, name, r, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.Series), args.Error(1)
}

func (m *MockGateway) Totals(ctx context.Context, r period.Range) (report.Totals, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(report.Totals), args.Error(1)
}

func (m *MockGateway) NewCustomers(ctx context.Context, r period.Range) (int64, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGateway) TopProducts(ctx context.Context, r period.Range, limit int) ([]report.ProductSales, error) {
	args := m.Called(ctx, r, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]report.ProductSales), args.Error(1)
}

func (m *MockGateway) Channels(ctx context.Context, r period.Range) ([]report.ChannelRow, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]report.ChannelRow), args.Error(1)
}

func (m *MockGateway) DailyTotals(ctx context.Context, r period.Range) ([]report.DailyTotal, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]report.DailyTotal), args.Error(1)
}

func (m *MockGateway) ShippedOrders(ctx context.Context, r period.Range) (int64, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGateway) DeliveryRegions(ctx context.Context, r period.Range) (string, error) {
	args := m.Called(ctx, r)
	return args.String(0), args.Error(1)
}

type fakeChartRenderer struct {
	calls int
	err   error
}

func (f *fakeChartRenderer) Chart(ctx context.Context, spec report.ChartSpec, series *report.Series) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("PNG:" + string(spec.Query)), nil
}

type fakePrinter struct {
	last *printing.RenderRequest
	err  error
}

func (f *fakePrinter) Render(ctx context.Context, req *printing.RenderRequest) (*printing.RenderResult, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &printing.RenderResult{PDFData: []byte("%PDF-1.4"), PageCount: 1, RenderDuration: time.Millisecond}, nil
}

func (f *fakePrinter) Close() error { return nil }

// captureBuilder records the laid out document instead of zipping it
type captureBuilder struct {
	doc *document.Document
	err error
}

func (c *captureBuilder) Build(doc *document.Document) ([]byte, error) {
	c.doc = doc
	if c.err != nil {
		return nil, c.err
	}
	return []byte("DOCX"), nil
}

// text concatenates paragraph and cell texts of a document
func (c *captureBuilder) text() []string {
	var out []string
	for _, b := range c.doc.Blocks {
		switch v := b.(type) {
		case document.Paragraph:
			out = append(out, v.Text)
		case document.Table:
			for _, row := range v.Rows {
				for _, cell := range row {
					out = append(out, cell.Text)
				}
			}
		}
	}
	return out
}

type recorder struct {
	kinds           []string
	errs            []error
	archiveFailures int
}

func (r *recorder) RecordArtifact(kind string, elapsed time.Duration, err error) {
	r.kinds = append(r.kinds, kind)
	r.errs = append(r.errs, err)
}

func (r *recorder) RecordArchiveFailure() { r.archiveFailures++ }

type memoryArchive struct {
	stored []string
	fail   bool
}

func (a *memoryArchive) Store(ctx context.Context, artifact *report.Artifact) (string, error) {
	if a.fail {
		return "", errors.New("bucket unavailable")
	}
	a.stored = append(a.stored, artifact.Filename)
	return "artifacts/" + artifact.Filename, nil
}
