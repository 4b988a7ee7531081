package router

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bimate/backend/internal/domain/catalog"
	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/infrastructure/auth"
	"github.com/bimate/backend/internal/infrastructure/charting"
	"github.com/bimate/backend/internal/infrastructure/config"
	"github.com/bimate/backend/internal/interfaces/http/handler"
	"github.com/bimate/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSales struct{}

func (stubSales) Overview(ctx context.Context, q report.SalesQuery) *report.SalesOverview {
	return &report.SalesOverview{Period: period.NewRange(period.Date(2024, time.March, 1), period.Date(2024, time.March, 31))}
}

type stubProducts struct{}

func (stubProducts) Countries(ctx context.Context) ([]string, error)  { return []string{"Италия"}, nil }
func (stubProducts) Categories(ctx context.Context) ([]string, error) { return []string{"Сыры"}, nil }
func (stubProducts) Search(ctx context.Context, f catalog.GoodsFilter) ([]catalog.GoodRef, error) {
	return []catalog.GoodRef{{ID: 1, Name: "Пармезан"}}, nil
}
func (stubProducts) Analyze(ctx context.Context, goodID int64) (*catalog.ProductAnalysis, error) {
	return &catalog.ProductAnalysis{Info: &catalog.ProductInfo{ID: goodID, Name: "Пармезан"}}, nil
}

type routeObserver struct {
	mu     sync.Mutex
	routes []string
}

func (o *routeObserver) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.routes = append(o.routes, route)
}

func testWebConfig(requireLink bool) config.WebConfig {
	return config.WebConfig{
		PublicURL:   "https://bi.example.com",
		LinkSecret:  "test-secret-key-at-least-32-chars",
		LinkTTL:     time.Hour,
		RequireLink: requireLink,
	}
}

func newTestEngine(t *testing.T, web config.WebConfig, observer middleware.HTTPObserver) (*gin.Engine, *auth.LinkService) {
	t.Helper()
	links := auth.NewLinkService(web)
	limiter := middleware.NewRateLimiter(100, time.Minute)
	t.Cleanup(limiter.Stop)

	engine := New(Deps{
		Web:      web,
		Links:    links,
		Observer: observer,
		Limiter:  limiter,
	}, Handlers{
		Sales:    handler.NewSalesHandler(stubSales{}, charting.Options{}),
		Products: handler.NewProductHandler(stubProducts{}, charting.Options{}),
		System:   handler.NewSystemHandler("test", nil),
		Metrics:  http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
	})
	return engine, links
}

func TestNew_OpenRoutes(t *testing.T) {
	engine, _ := newTestEngine(t, testWebConfig(false), nil)

	tests := []struct {
		path        string
		contentType string
	}{
		{"/sales", "text/html"},
		{"/sales/export", report.ContentTypeXLSX},
		{"/products", "text/html"},
		{"/products?good_id=3", "text/html"},
		{"/search_goods?filter_type=name&query=parm", "application/json"},
		{"/api/v1/sales/overview", "application/json"},
		{"/api/v1/catalog/countries", "application/json"},
		{"/api/v1/catalog/categories", "application/json"},
		{"/api/v1/products/3", "application/json"},
		{"/api/v1/system/ping", "application/json"},
		{"/api/v1/system/info", "application/json"},
		{"/health", "application/json"},
		{"/metrics", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := serve(engine, tt.path)
			assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), tt.contentType))
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
			assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		})
	}
}

func TestNew_RequiredLinks(t *testing.T) {
	engine, links := newTestEngine(t, testWebConfig(true), nil)

	t.Run("pages reject missing links", func(t *testing.T) {
		for _, path := range []string{"/sales", "/products", "/search_goods?filter_type=name", "/api/v1/sales/overview", "/api/v1/products/3"} {
			assert.Equal(t, http.StatusUnauthorized, serve(engine, path).Code, path)
		}
	})

	t.Run("system routes stay open", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(engine, "/api/v1/system/ping").Code)
		assert.Equal(t, http.StatusOK, serve(engine, "/health").Code)
	})

	t.Run("link of the right scope", func(t *testing.T) {
		link, err := links.Issue(42, 4200, auth.ScopeSales)
		require.NoError(t, err)

		w := serve(engine, "/sales?token="+link.Token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))

		assert.Equal(t, http.StatusUnauthorized, serve(engine, "/products?token="+link.Token).Code)
	})
}

func TestNew_ObservesRouteTemplates(t *testing.T) {
	observer := &routeObserver{}
	engine, _ := newTestEngine(t, testWebConfig(false), observer)

	serve(engine, "/api/v1/products/3")
	serve(engine, "/health")
	serve(engine, "/metrics")

	assert.Equal(t, []string{"/api/v1/products/:id"}, observer.routes)
}
