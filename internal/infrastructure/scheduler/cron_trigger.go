package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/bimate/backend/internal/domain/period"
	"go.uber.org/zap"
)

// DigestScheduler queues digest runs
type DigestScheduler interface {
	ScheduleDigest(week period.Range) (*Job, error)
}

// CronTriggerConfig is the weekly slot of the digest
type CronTriggerConfig struct {
	Weekday time.Weekday
	Hour    int
	Minute  int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
}

// DefaultCronTriggerConfig returns Monday 09:00, checked every minute
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		Weekday:       time.Monday,
		Hour:          9,
		Minute:        0,
		CheckInterval: time.Minute,
	}
}

// CronTrigger submits the digest of the previous week once per weekly slot
type CronTrigger struct {
	config    CronTriggerConfig
	scheduler DigestScheduler
	logger    *zap.Logger
	now       func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(config CronTriggerConfig, scheduler DigestScheduler, logger *zap.Logger) *CronTrigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	return &CronTrigger{
		config:    config,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
	}
}

// Start starts the cron trigger
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isRunning {
		return nil
	}
	c.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Digest trigger started",
		zap.String("weekday", c.config.Weekday.String()),
		zap.Int("hour", c.config.Hour),
		zap.Int("minute", c.config.Minute),
		zap.Duration("check_interval", c.config.CheckInterval),
	)
	return nil
}

// Stop stops the cron trigger
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Digest trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger()
		}
	}
}

// checkAndTrigger submits the digest when the clock is inside the slot and
// it has not run today yet.
func (c *CronTrigger) checkAndTrigger() bool {
	now := c.now()
	if now.Weekday() != c.config.Weekday || now.Hour() != c.config.Hour || now.Minute() != c.config.Minute {
		return false
	}

	today := now.Format(period.DateLayout)
	c.mu.Lock()
	if c.lastRunDate == today {
		c.mu.Unlock()
		return false
	}
	c.lastRunDate = today
	c.mu.Unlock()

	c.TriggerNow()
	return true
}

// TriggerNow submits the digest of the week before now
func (c *CronTrigger) TriggerNow() {
	week := PreviousWeek(c.now())
	job, err := c.scheduler.ScheduleDigest(week)
	if err != nil {
		c.logger.Error("Failed to schedule digest", zap.String("week", week.String()), zap.Error(err))
		return
	}
	c.logger.Info("Digest scheduled", zap.String("job_id", job.ID.String()), zap.String("week", week.String()))
}

// PreviousWeek returns Monday to Sunday of the last complete week before t
func PreviousWeek(t time.Time) period.Range {
	today := period.Date(t.Year(), t.Month(), t.Day())
	sinceMonday := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -sinceMonday-7)
	return period.Range{Start: monday, End: monday.AddDate(0, 0, 6)}
}
