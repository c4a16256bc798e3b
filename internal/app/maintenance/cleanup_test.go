package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/modlocker/modlocker/internal/cache"
	"github.com/modlocker/modlocker/internal/database/testutil"
	"github.com/modlocker/modlocker/internal/models"
	"github.com/modlocker/modlocker/internal/services"
)

func TestRunOncePrunesOldRecords(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	audit, err := services.NewAuditService(db)
	require.NoError(t, err)
	store := cache.NewDatabaseStore(db)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// One stale and one fresh row per table.
	require.NoError(t, audit.Log(context.Background(), services.AuditEntry{Action: "old.event", Result: "success"}))
	require.NoError(t, db.Model(&models.AuditLog{}).
		Where("action = ?", "old.event").
		Update("created_at", now.AddDate(0, 0, -100)).Error)
	require.NoError(t, audit.Log(context.Background(), services.AuditEntry{Action: "new.event", Result: "success"}))

	events := []models.DownloadEvent{
		{UserID: "u1", ProductID: "p1"},
		{UserID: "u2", ProductID: "p2"},
	}
	require.NoError(t, db.Create(&events).Error)
	require.NoError(t, db.Model(&models.DownloadEvent{}).
		Where("user_id = ?", "u1").
		Update("created_at", now.AddDate(-2, 0, 0)).Error)

	require.NoError(t, store.Set(context.Background(), "stale", []byte("x"), -time.Minute))
	require.NoError(t, store.Set(context.Background(), "live", []byte("y"), time.Hour))

	cleaner := NewCleaner(db, audit,
		WithNow(func() time.Time { return now }),
		WithAuditRetentionDays(90),
		WithDownloadRetentionDays(365),
		WithCacheStore(store),
	)
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var auditCount int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&auditCount).Error)
	require.EqualValues(t, 1, auditCount)

	var eventCount int64
	require.NoError(t, db.Model(&models.DownloadEvent{}).Count(&eventCount).Error)
	require.EqualValues(t, 1, eventCount)

	var cacheCount int64
	require.NoError(t, db.Model(&models.CacheEntry{}).Count(&cacheCount).Error)
	require.EqualValues(t, 1, cacheCount)
}

func TestStartRegistersJobs(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	cleaner := NewCleaner(db, audit, WithCacheStore(cache.NewDatabaseStore(db)))
	require.NoError(t, cleaner.Start())

	<-cleaner.Stop().Done()
}
