package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/bimate/backend/internal/infrastructure/auth"
	"github.com/bimate/backend/internal/infrastructure/config"
	"github.com/bimate/backend/internal/infrastructure/logger"
	"github.com/bimate/backend/internal/interfaces/http/handler"
	"github.com/bimate/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Paths kept out of request logs and HTTP metrics
const (
	HealthPath  = "/health"
	MetricsPath = "/metrics"
)

// Handlers are the endpoints served by the engine
type Handlers struct {
	Sales    *handler.SalesHandler
	Products *handler.ProductHandler
	System   *handler.SystemHandler
	// Metrics exposes the Prometheus registry; nil disables /metrics
	Metrics http.Handler
}

// Deps are the cross-cutting collaborators of the engine
type Deps struct {
	Web        config.WebConfig
	AssetsHost string
	Links      middleware.LinkValidator
	Observer   middleware.HTTPObserver
	Limiter    *middleware.RateLimiter
	Logger     *zap.Logger
}

// New builds the gin engine: pages at the root, JSON under /api/v1 and the
// operational endpoints. The caller owns deps.Limiter and must Stop it.
func New(deps Deps, h Handlers) *gin.Engine {
	middleware.SetupValidator()
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(deps.Logger))
	engine.Use(logger.GinMiddleware(deps.Logger, HealthPath, MetricsPath))

	secure := strings.HasPrefix(deps.Web.PublicURL, "https://")
	security := middleware.WebSecurityConfig(deps.AssetsHost)
	security.HSTSEnabled = secure
	engine.Use(middleware.SecureWithConfig(security))
	if deps.Observer != nil {
		engine.Use(middleware.HTTPMetrics(deps.Observer, HealthPath, MetricsPath))
	}
	engine.Use(middleware.Timeout(deps.Web.RequestTimeout))

	engine.GET(HealthPath, h.System.Health)
	if h.Metrics != nil {
		engine.GET(MetricsPath, gin.WrapH(h.Metrics))
	}

	opts := []RouterOption{
		WithAPIVersion("v1"),
		WithGuard(func(scope auth.LinkScope) gin.HandlerFunc {
			return middleware.LinkAuth(middleware.LinkAuthConfig{
				Validator: deps.Links,
				Scope:     scope,
				Required:  deps.Web.RequireLink,
				Secure:    secure,
				Logger:    deps.Logger,
			})
		}),
	}
	if deps.Limiter != nil {
		opts = append(opts, WithLimiter(middleware.RateLimit(deps.Limiter)))
	}
	r := NewRouter(engine, opts...)

	r.Page("/sales").Scope(auth.ScopeSales).
		GET("", h.Sales.Page).
		Limited("/export", h.Sales.Export)
	r.Page("").Scope(auth.ScopeProducts).
		GET("/products", h.Products.Page).
		Limited("/search_goods", h.Products.SearchGoods)

	r.API("/sales").Scope(auth.ScopeSales).
		Limited("/overview", h.Sales.Overview)
	r.API("/catalog").Scope(auth.ScopeProducts).
		Limited("/countries", h.Products.Countries).
		Limited("/categories", h.Products.Categories)
	r.API("/products").Scope(auth.ScopeProducts).
		Limited("/:id", h.Products.Analysis)
	r.API("/system").
		GET("/info", h.System.GetSystemInfo).
		GET("/ping", h.System.Ping)

	r.Setup()

	return engine
}

// NewServer wraps the engine with the configured timeouts
func NewServer(cfg config.WebConfig, engine *gin.Engine) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
}
