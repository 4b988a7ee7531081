package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	catalogapp "github.com/bimate/backend/internal/application/catalog"
	"github.com/bimate/backend/internal/application/navigation"
	reportapp "github.com/bimate/backend/internal/application/report"
	"github.com/bimate/backend/internal/infrastructure/auth"
	"github.com/bimate/backend/internal/infrastructure/cache"
	"github.com/bimate/backend/internal/infrastructure/charting"
	"github.com/bimate/backend/internal/infrastructure/config"
	"github.com/bimate/backend/internal/infrastructure/document"
	"github.com/bimate/backend/internal/infrastructure/logger"
	"github.com/bimate/backend/internal/infrastructure/persistence"
	"github.com/bimate/backend/internal/infrastructure/printing"
	"github.com/bimate/backend/internal/infrastructure/scheduler"
	"github.com/bimate/backend/internal/infrastructure/storage"
	"github.com/bimate/backend/internal/infrastructure/telemetry"
	"github.com/bimate/backend/internal/interfaces/http/handler"
	"github.com/bimate/backend/internal/interfaces/http/middleware"
	"github.com/bimate/backend/internal/interfaces/http/router"
	"github.com/bimate/backend/internal/interfaces/telegram"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	poolStatsInterval = 15 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting BI Mate",
		zap.String("version", version),
		zap.String("env", cfg.App.Env),
		zap.String("timezone", cfg.App.Timezone),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := telemetry.NewMetrics(telemetry.DefaultMetricsConfig())

	// Sales database, with every query timed
	db, err := persistence.NewDatabase(&cfg.Database, log, logger.WithQueryObserver(metrics.ObserveQuery))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if sqlDB, err := db.DB.DB(); err == nil {
		poolStats := telemetry.NewPoolStatsCollector(metrics, sqlDB, poolStatsInterval, log)
		poolStats.Start(ctx)
		defer poolStats.Stop()
	}

	gateway := persistence.NewSalesGateway(db.DB)
	catalogRepo := persistence.NewGormCatalogRepository(db.DB)
	overviewRepo := persistence.NewGormSalesOverviewRepository(db.DB)

	// Headless Chrome renders chart photos and PDF dashboards
	chrome := printing.NewChromedpRenderer(printing.ConfigFromChrome(&cfg.Chrome, log))
	defer func() {
		if err := chrome.Close(); err != nil {
			log.Warn("Error closing browser", zap.Error(err))
		}
	}()

	chartOpts := charting.DefaultOptions()
	chartOpts.AssetsHost = cfg.Chrome.AssetsHost
	webOpts := charting.Options{AssetsHost: cfg.Chrome.AssetsHost}

	charts := reportapp.NewChartService(gateway, charting.NewRenderer(chrome, chartOpts, log), log)
	dashboard := reportapp.NewDashboardService(gateway, chrome, chartOpts, log)
	narrative := reportapp.NewNarrativeService(gateway, document.NewDocxBuilder(), reportapp.NarrativeConfig{
		CompanyLines: cfg.Report.CompanyLines,
		Responsible:  cfg.Report.Responsible,
		ExportXLSX:   cfg.Report.ExportXLSX,
	}, log)

	producerOpts := []reportapp.ProducerOption{reportapp.WithRecorder(metrics)}
	if cfg.Storage.Enabled {
		archive, err := storage.NewS3ArtifactArchive(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpires),
		)
		if err != nil {
			log.Fatal("Failed to initialize artifact archive", zap.Error(err))
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			log.Warn("Artifact bucket unavailable, uploads will fail", zap.Error(err))
		}
		producerOpts = append(producerOpts, reportapp.WithArchive(archive))
		log.Info("Artifact archive enabled", zap.String("bucket", archive.GetBucket()))
	}
	producer := reportapp.NewProducer(charts, dashboard, narrative, log, producerOpts...)

	// Navigation sessions
	store, err := cache.NewSessionStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create session store", zap.Error(err))
	}
	checks := map[string]handler.HealthCheck{"database": db.Ping}
	if redisStore, ok := store.(*cache.RedisSessionStore); ok {
		defer func() {
			_ = redisStore.Close()
		}()
		checks["redis"] = func(ctx context.Context) error {
			return redisStore.GetClient().Ping(ctx).Err()
		}
	}

	// Telegram transport
	api, err := telegram.Connect(cfg.Telegram)
	if err != nil {
		log.Fatal("Failed to connect to Telegram", zap.Error(err))
	}
	log.Info("Telegram bot authorized", zap.String("username", api.Self.UserName))

	notifier := telegram.NewNotifier(api)
	machine := navigation.NewMachine(store, notifier, producer, log)
	links := auth.NewLinkService(cfg.Web)
	bot := telegram.NewBot(api, machine, links, log,
		telegram.WithSignedLinks(cfg.Web.RequireLink),
		telegram.WithUpdateRecorder(metrics),
	)

	// Web dashboards
	gin.SetMode(cfg.Web.Mode)
	limiter := middleware.NewRateLimiter(cfg.Web.RateLimit, time.Minute)
	defer limiter.Stop()

	engine := router.New(router.Deps{
		Web:        cfg.Web,
		AssetsHost: cfg.Chrome.AssetsHost,
		Links:      links,
		Observer:   metrics,
		Limiter:    limiter,
		Logger:     log,
	}, router.Handlers{
		Sales:    handler.NewSalesHandler(reportapp.NewSalesOverviewService(overviewRepo, cfg.Web.MaxRangeDays, cfg.App.Location(), log), webOpts),
		Products: handler.NewProductHandler(catalogapp.NewAnalysisService(catalogRepo, cfg.App.Location(), log), webOpts),
		System:   handler.NewSystemHandler(version, checks),
		Metrics:  metrics.Handler(),
	})
	srv := router.NewServer(cfg.Web, engine)

	go func() {
		log.Info("Web server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Web server failed", zap.Error(err))
			stop()
		}
	}()

	// Weekly digest
	var (
		digestPool    *scheduler.Scheduler
		digestTrigger *scheduler.CronTrigger
	)
	if cfg.Scheduler.Enabled {
		poolCfg := scheduler.DefaultConfig()
		poolCfg.JobTimeout = cfg.Scheduler.JobTimeout
		executor := scheduler.NewDigestExecutor(producer, notifier, cfg.Telegram.DigestChatIDs, metrics, log)
		digestPool = scheduler.NewScheduler(poolCfg, executor, log)
		digestTrigger = scheduler.NewCronTrigger(scheduler.CronTriggerConfig{
			Weekday:       cfg.Scheduler.Weekday,
			Hour:          cfg.Scheduler.Hour,
			Minute:        cfg.Scheduler.Minute,
			CheckInterval: cfg.Scheduler.CheckInterval,
		}, digestPool, log)

		if err := digestPool.Start(ctx); err != nil {
			log.Fatal("Failed to start digest scheduler", zap.Error(err))
		}
		if err := digestTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start digest trigger", zap.Error(err))
		}
	}

	// Long polling until a signal arrives
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = cfg.Telegram.PollTimeout
	updates := api.GetUpdatesChan(updateCfg)

	var botDone sync.WaitGroup
	botDone.Add(1)
	go func() {
		defer botDone.Done()
		bot.Run(ctx, updates)
	}()
	log.Info("Bot is polling for updates")

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	api.StopReceivingUpdates()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Web server forced to shutdown", zap.Error(err))
	}
	if digestTrigger != nil {
		_ = digestTrigger.Stop(shutdownCtx)
		_ = digestPool.Stop(shutdownCtx)
	}
	botDone.Wait()

	log.Info("Server exited gracefully")
}
