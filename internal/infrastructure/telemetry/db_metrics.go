package telemetry

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultPoolStatsInterval is how often pool statistics are sampled.
const DefaultPoolStatsInterval = 15 * time.Second

// PoolStatsCollector periodically copies sql.DB pool statistics into gauges.
type PoolStatsCollector struct {
	metrics  *Metrics
	sqlDB    *sql.DB
	interval time.Duration
	logger   *zap.Logger

	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once // Ensures Stop() is idempotent
}

// NewPoolStatsCollector creates a collector for the given pool.
func NewPoolStatsCollector(metrics *Metrics, sqlDB *sql.DB, interval time.Duration, logger *zap.Logger) *PoolStatsCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultPoolStatsInterval
	}
	return &PoolStatsCollector{
		metrics:  metrics,
		sqlDB:    sqlDB,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the sampling goroutine. Call Stop() to terminate.
func (c *PoolStatsCollector) Start(ctx context.Context) {
	if c.sqlDB == nil || c.metrics == nil {
		c.logger.Warn("Cannot start pool stats collection: sqlDB not set")
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		// Collect immediately on start
		c.Collect()

		for {
			select {
			case <-ticker.C:
				c.Collect()
			case <-c.stopCh:
				c.logger.Debug("Stopping pool stats collection")
				return
			case <-ctx.Done():
				c.logger.Debug("Pool stats collection context cancelled")
				return
			}
		}
	}()

	c.logger.Info("Started database connection pool stats collection",
		zap.Duration("interval", c.interval),
	)
}

// Collect samples the pool once.
func (c *PoolStatsCollector) Collect() {
	stats := c.sqlDB.Stats()

	c.metrics.poolConnectionsMax.Set(float64(stats.MaxOpenConnections))
	// OpenConnections = Idle + InUse; WaitCount is cumulative and not a state
	c.metrics.poolConnections.WithLabelValues("idle").Set(float64(stats.Idle))
	c.metrics.poolConnections.WithLabelValues("in_use").Set(float64(stats.InUse))
	c.metrics.poolConnections.WithLabelValues("open").Set(float64(stats.OpenConnections))
}

// Stop stops the sampling goroutine. Safe to call multiple times.
func (c *PoolStatsCollector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.wg.Wait()
	})
}
