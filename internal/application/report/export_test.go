package report

import "github.com/bimate/backend/internal/infrastructure/charting"

// SetLayout replaces the dashboard page builder.
func (s *DashboardService) SetLayout(fn func(*charting.Dashboard, charting.Options) ([]byte, error)) {
	s.layout = fn
}
