package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bimate/backend/internal/domain/catalog"
	"github.com/bimate/backend/internal/domain/shared"
	"github.com/bimate/backend/internal/infrastructure/charting"
	"github.com/bimate/backend/internal/infrastructure/logger"
	"github.com/bimate/backend/internal/interfaces/http/dto"
	"github.com/bimate/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Messages shown on the product page instead of the analysis
const (
	badGoodIDText       = "Некорректный идентификатор товара"
	goodNotFoundText    = "Товар не найден"
	goodUnavailableText = "Не удалось загрузить данные товара. Попробуйте позже."
)

// ProductAnalyzer searches goods and loads the product dashboard
type ProductAnalyzer interface {
	Countries(ctx context.Context) ([]string, error)
	Categories(ctx context.Context) ([]string, error)
	Search(ctx context.Context, f catalog.GoodsFilter) ([]catalog.GoodRef, error)
	Analyze(ctx context.Context, goodID int64) (*catalog.ProductAnalysis, error)
}

// ProductHandler serves the product dashboard, goods search and catalog lists
type ProductHandler struct {
	BaseHandler
	products  ProductAnalyzer
	chartOpts charting.Options
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products ProductAnalyzer, chartOpts charting.Options) *ProductHandler {
	return &ProductHandler{products: products, chartOpts: chartOpts}
}

// Page renders /products, with the analysis of good_id when given
func (h *ProductHandler) Page(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.GetGinLogger(c)
	page := &charting.ProductPage{Token: middleware.GetLinkToken(c)}

	var err error
	if page.Countries, err = h.products.Countries(ctx); err != nil {
		log.Warn("country list unavailable", zap.Error(err))
	}
	if page.Categories, err = h.products.Categories(ctx); err != nil {
		log.Warn("category list unavailable", zap.Error(err))
	}

	var req dto.ProductPageRequest
	switch {
	case c.ShouldBindQuery(&req) != nil:
		page.Error = badGoodIDText
	case req.GoodID > 0:
		page.Analysis, err = h.products.Analyze(ctx, req.GoodID)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			page.Error = goodNotFoundText
		case err != nil:
			log.Error("product analysis failed", zap.Int64("good_id", req.GoodID), zap.Error(err))
			page.Error = goodUnavailableText
		}
	}

	html, err := charting.ProductPageHTML(page, h.chartOpts)
	if err != nil {
		h.HandleError(c, fmt.Errorf("%w: product page: %v", shared.ErrRenderFailed, err))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

// SearchGoods answers /search_goods with the matching goods
func (h *ProductHandler) SearchGoods(c *gin.Context) {
	var req dto.SearchGoodsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	filter, err := req.ToFilter()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	goods, err := h.products.Search(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(goods))
}

// Countries lists the country filter values
func (h *ProductHandler) Countries(c *gin.Context) {
	h.list(c, h.products.Countries)
}

// Categories lists the category filter values
func (h *ProductHandler) Categories(c *gin.Context) {
	h.list(c, h.products.Categories)
}

func (h *ProductHandler) list(c *gin.Context, load func(context.Context) ([]string, error)) {
	values, err := load(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(values))
}

// Analysis returns the product dashboard data as JSON
func (h *ProductHandler) Analysis(c *gin.Context) {
	var uri dto.ProductURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}
	a, err := h.products.Analyze(c.Request.Context(), uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, a)
}
