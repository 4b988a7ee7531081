// Package catalog serves the product analysis dashboard.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bimate/backend/internal/domain/catalog"
	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AnalysisService loads product search results and the product dashboard
type AnalysisService struct {
	repo   catalog.ProductAnalyticsRepository
	now    func() time.Time
	logger *zap.Logger
}

// NewAnalysisService creates a new AnalysisService
func NewAnalysisService(repo catalog.ProductAnalyticsRepository, loc *time.Location, logger *zap.Logger) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AnalysisService{
		repo:   repo,
		now:    func() time.Time { return time.Now().In(loc) },
		logger: logger,
	}
}

// Countries lists the country filter values
func (s *AnalysisService) Countries(ctx context.Context) ([]string, error) {
	return s.repo.Countries(ctx)
}

// Categories lists the category filter values
func (s *AnalysisService) Categories(ctx context.Context) ([]string, error) {
	return s.repo.Categories(ctx)
}

// ValidateFilter checks that the fields required by the filter type are present.
func ValidateFilter(f catalog.GoodsFilter) error {
	missing := func(field string) error {
		return fmt.Errorf("%w: %s is required for filter %q", shared.ErrInvalidInput, field, f.Type)
	}
	switch f.Type {
	case catalog.FilterByName:
		if strings.TrimSpace(f.Name) == "" {
			return missing("name")
		}
	case catalog.FilterByID:
		if f.ID <= 0 {
			return missing("id")
		}
	case catalog.FilterByCategoryCountry:
		if f.Category == "" {
			return missing("category")
		}
		if f.Country == "" {
			return missing("country")
		}
	case catalog.FilterByNameCountry:
		if strings.TrimSpace(f.Name) == "" {
			return missing("name")
		}
		if f.Country == "" {
			return missing("country")
		}
	default:
		return fmt.Errorf("%w: unknown filter type %q", shared.ErrInvalidInput, f.Type)
	}
	return nil
}

// Search finds goods matching the filter
func (s *AnalysisService) Search(ctx context.Context, f catalog.GoodsFilter) ([]catalog.GoodRef, error) {
	if err := ValidateFilter(f); err != nil {
		return nil, err
	}
	return s.repo.SearchGoods(ctx, f)
}

// Analyze loads every dashboard section of one product. The product card is
// required; the remaining sections are fail-soft and stay empty on failure.
func (s *AnalysisService) Analyze(ctx context.Context, goodID int64) (*catalog.ProductAnalysis, error) {
	if goodID <= 0 {
		return nil, fmt.Errorf("%w: good id must be positive", shared.ErrInvalidInput)
	}
	info, err := s.repo.ProductInfo(ctx, goodID)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("%w: good %d", shared.ErrNotFound, goodID)
	}

	today := s.now()
	t := period.Date(today.Year(), today.Month(), today.Day())
	a := &catalog.ProductAnalysis{
		Info:        info,
		SalesPeriod: period.Range{Start: t.AddDate(0, 0, -catalog.SalesWindowDays), End: t},
	}

	log := s.logger.With(zap.Int64("good_id", goodID))
	soft := func(section string, err error) {
		if err != nil {
			log.Warn("product section unavailable", zap.String("section", section), zap.Error(err))
		}
	}

	var e error
	a.Popularity, e = s.repo.Popularity(ctx, goodID, t.AddDate(0, 0, -catalog.PopularityWindowDays))
	soft("popularity", e)
	a.Sales, e = s.repo.SalesDynamics(ctx, goodID, a.SalesPeriod)
	soft("sales", e)
	a.Gender, e = s.repo.GenderDistribution(ctx, goodID)
	soft("gender", e)
	a.Seasonality, e = s.repo.HolidaySeasonality(ctx, goodID)
	soft("seasonality", e)
	a.Availability, e = s.repo.Availability(ctx, goodID)
	soft("availability", e)
	a.Suppliers, e = s.repo.Suppliers(ctx, goodID)
	soft("suppliers", e)
	a.Ratings, e = s.repo.Ratings(ctx, goodID)
	soft("ratings", e)

	return a, nil
}
