package report

import (
	"context"
	"strings"
	"time"

	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Ranking sizes of the sales dashboard
const (
	TopBrandsLimit     = 10
	TopCategoriesLimit = 10
)

// SalesOverviewService loads the web sales dashboard
type SalesOverviewService struct {
	repo    report.SalesOverviewRepository
	maxDays int
	now     func() time.Time
	logger  *zap.Logger
}

// NewSalesOverviewService creates a new SalesOverviewService. maxDays bounds custom ranges.
func NewSalesOverviewService(repo report.SalesOverviewRepository, maxDays int, loc *time.Location, logger *zap.Logger) *SalesOverviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SalesOverviewService{
		repo:    repo,
		maxDays: maxDays,
		now:     func() time.Time { return time.Now().In(loc) },
		logger:  logger,
	}
}

// Overview resolves the query period and loads every dashboard section. An invalid
// period falls back to the default range and is reported in Warnings. Every section
// is fail-soft: a failed query leaves it empty and adds a warning.
func (s *SalesOverviewService) Overview(ctx context.Context, q report.SalesQuery) *report.SalesOverview {
	log := contextLogger(ctx, s.logger)
	o := &report.SalesOverview{Category: q.Category}

	r, err := q.Resolve(s.now(), s.maxDays)
	if err != nil {
		o.Warnings = append(o.Warnings, periodWarning(err))
	}
	o.Period = r

	section := func(name string, err error) {
		if err == nil {
			return
		}
		log.Warn("sales overview section unavailable", zap.String("section", name), zap.String("period", r.String()), zap.Error(err))
		o.Warnings = append(o.Warnings, "Не удалось загрузить раздел: "+name)
	}

	var base report.CostBase
	var e error
	o.Categories, e = s.repo.Categories(ctx)
	section("категории", e)
	base, e = s.repo.CostBase(ctx, r)
	section("сводка", e)
	o.Summary = report.ComputeSummary(base)
	o.GrossProfit, e = s.repo.GrossProfitByDay(ctx, r)
	section("валовая прибыль", e)
	o.OrdersByDay, e = s.repo.OrdersByDay(ctx, r)
	section("заказы по дням", e)
	o.AvgOrderByDay, e = s.repo.AvgOrderByDay(ctx, r)
	section("средний чек по дням", e)
	o.RevenueByStore, e = s.repo.RevenueByStore(ctx, r, q.Category)
	section("выручка по магазинам", e)
	o.OrdersByStore, e = s.repo.OrdersByStore(ctx, r, q.Category)
	section("заказы по магазинам", e)
	o.TopBrands, e = s.repo.TopBrands(ctx, r, TopBrandsLimit)
	section("бренды", e)
	o.TopCategories, e = s.repo.TopCategories(ctx, r, TopCategoriesLimit)
	section("топ категорий", e)
	o.SalesByManager, e = s.repo.SalesByManager(ctx, r)
	section("менеджеры", e)
	o.ARPU, e = s.repo.ARPU(ctx, r)
	section("ARPU", e)
	o.CategoryStats, e = s.repo.CategoryStats(ctx, r, q.Category)
	section("статистика категорий", e)

	return o
}

// periodWarning strips the sentinel prefix so only the user-facing reason remains.
func periodWarning(err error) string {
	return strings.TrimPrefix(err.Error(), shared.ErrInvalidPeriod.Error()+": ")
}
