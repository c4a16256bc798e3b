package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/cache"
	"github.com/modlocker/modlocker/internal/models"
	"github.com/modlocker/modlocker/internal/services"
	"github.com/modlocker/modlocker/pkg/logger"
)

const (
	defaultAuditRetentionDays    = 90
	defaultDownloadRetentionDays = 365
	defaultAuditSpec             = "@daily"
	defaultDownloadSpec          = "@daily"
	defaultCacheSpec             = "@hourly"
)

// Cleaner coordinates background maintenance tasks: pruning stale audit
// logs, expiring old download analytics, and purging dead cache rows.
type Cleaner struct {
	db    *gorm.DB
	audit *services.AuditService
	store *cache.DatabaseStore
	cron  *cron.Cron
	now   func() time.Time
	log   *zap.Logger

	auditRetention    int
	downloadRetention int

	auditSchedule    string
	downloadSchedule string
	cacheSchedule    string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.auditRetention = days
		}
	}
}

// WithDownloadRetentionDays adjusts how long download events are retained.
func WithDownloadRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.downloadRetention = days
		}
	}
}

// WithCacheStore enables expired-cache purging against the database store.
func WithCacheStore(store *cache.DatabaseStore) Option {
	return func(cleaner *Cleaner) {
		cleaner.store = store
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency
// results in the corresponding cleanup job being skipped.
func NewCleaner(db *gorm.DB, audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:                db,
		audit:             audit,
		now:               time.Now,
		auditRetention:    defaultAuditRetentionDays,
		downloadRetention: defaultDownloadRetentionDays,
		auditSchedule:     defaultAuditSpec,
		downloadSchedule:  defaultDownloadSpec,
		cacheSchedule:     defaultCacheSpec,
		log:               logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.audit != nil && c.auditRetention > 0 {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			if _, err := c.audit.CleanupOlderThan(context.Background(), c.auditRetention); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.db != nil && c.downloadRetention > 0 {
		if _, err := c.cron.AddFunc(c.downloadSchedule, func() {
			if _, err := CleanupDownloadEvents(context.Background(), c.db, c.now().AddDate(0, 0, -c.downloadRetention)); err != nil {
				c.log.Warn("download event cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.store != nil {
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			if _, err := c.store.PurgeExpired(context.Background()); err != nil {
				c.log.Warn("cache purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily
// used in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.audit != nil && c.auditRetention > 0 {
		if _, err := c.audit.CleanupOlderThan(ctx, c.auditRetention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.db != nil && c.downloadRetention > 0 {
		if _, err := CleanupDownloadEvents(ctx, c.db, c.now().AddDate(0, 0, -c.downloadRetention)); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.store != nil {
		if _, err := c.store.PurgeExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// CleanupDownloadEvents removes download analytics older than the cutoff.
func CleanupDownloadEvents(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup downloads: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.DownloadEvent{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
