package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/domain/shared"
	"github.com/bimate/backend/internal/infrastructure/charting"
	"github.com/bimate/backend/internal/infrastructure/document"
	"github.com/bimate/backend/internal/interfaces/http/dto"
	"github.com/bimate/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// yearsShown is the depth of the year selector
const yearsShown = 5

const invalidFilterText = "Некорректные параметры фильтра, показаны данные за последние 30 дней"

// SalesOverviewLoader loads the sales dashboard data
type SalesOverviewLoader interface {
	Overview(ctx context.Context, q report.SalesQuery) *report.SalesOverview
}

// SalesHandler serves the sales dashboard page, its xlsx export and JSON form
type SalesHandler struct {
	BaseHandler
	sales     SalesOverviewLoader
	chartOpts charting.Options
	now       func() time.Time
}

// NewSalesHandler creates a new SalesHandler
func NewSalesHandler(sales SalesOverviewLoader, chartOpts charting.Options) *SalesHandler {
	return &SalesHandler{
		sales:     sales,
		chartOpts: chartOpts,
		now:       time.Now,
	}
}

// Page renders /sales. Invalid filters never fail the page: the default
// range is shown with a warning.
func (h *SalesHandler) Page(c *gin.Context) {
	var (
		req      dto.SalesQueryRequest
		q        report.SalesQuery
		warnings []string
	)
	err := c.ShouldBindQuery(&req)
	if err == nil {
		q, err = req.ToQuery()
	}
	if err != nil {
		warnings = append(warnings, invalidFilterText)
		q = report.SalesQuery{}
	}

	ov := h.sales.Overview(c.Request.Context(), q)
	ov.Warnings = append(warnings, ov.Warnings...)

	html, err := charting.SalesPageHTML(&charting.SalesPage{
		Overview: ov,
		Query:    q,
		Token:    middleware.GetLinkToken(c),
		Years:    h.years(),
	}, h.chartOpts)
	if err != nil {
		h.HandleError(c, fmt.Errorf("%w: sales page: %v", shared.ErrRenderFailed, err))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

// Export downloads the dashboard data of the requested period as xlsx
func (h *SalesHandler) Export(c *gin.Context) {
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}
	ov := h.sales.Overview(c.Request.Context(), q)

	data, err := document.SalesOverviewWorkbook(ov)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	filename := fmt.Sprintf("sales_%s_%s.xlsx",
		ov.Period.Start.Format(period.DateLayout), ov.Period.End.Format(period.DateLayout))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, report.ContentTypeXLSX, data)
}

// Overview returns the dashboard data as JSON
func (h *SalesHandler) Overview(c *gin.Context) {
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}
	h.Success(c, dto.NewSalesOverviewResponse(h.sales.Overview(c.Request.Context(), q)))
}

func (h *SalesHandler) bindQuery(c *gin.Context) (report.SalesQuery, bool) {
	var req dto.SalesQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return report.SalesQuery{}, false
	}
	q, err := req.ToQuery()
	if err != nil {
		h.HandleError(c, err)
		return report.SalesQuery{}, false
	}
	return q, true
}

func (h *SalesHandler) years() []int {
	current := h.now().Year()
	years := make([]int, 0, yearsShown)
	for y := current - yearsShown + 1; y <= current; y++ {
		years = append(years, y)
	}
	return years
}
