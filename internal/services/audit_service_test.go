package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/modlocker/modlocker/internal/auditctx"
	"github.com/modlocker/modlocker/internal/database/testutil"
	"github.com/modlocker/modlocker/internal/models"
)

func TestAuditLogFillsActorFromContext(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	ctx := auditctx.WithActor(context.Background(), auditctx.Actor{
		UserID:    "actor-1",
		Username:  "admin",
		IPAddress: "203.0.113.7",
		UserAgent: "test-agent",
	})

	require.NoError(t, svc.Log(ctx, AuditEntry{
		Action:   "role.create",
		Resource: "role-1",
		Result:   "success",
		Metadata: map[string]any{"name": "editors"},
	}))

	var log models.AuditLog
	require.NoError(t, db.First(&log).Error)
	require.NotNil(t, log.UserID)
	require.Equal(t, "actor-1", *log.UserID)
	require.Equal(t, "admin", log.Username)
	require.Equal(t, "203.0.113.7", log.IPAddress)
	require.Contains(t, string(log.Metadata), "editors")
}

func TestRecordAuditFailureDoesNotBlockOperation(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	audit, err := NewAuditService(db)
	require.NoError(t, err)
	users, err := NewUserService(db, audit)
	require.NoError(t, err)

	user := createTestUser(t, db, "alice")

	// Audit writes fail once the table is gone; the ban must still land.
	require.NoError(t, db.Migrator().DropTable(&models.AuditLog{}))

	banned, err := users.SetBanned(context.Background(), user.ID, true)
	require.NoError(t, err)
	require.True(t, banned.IsBanned)
}

func TestAuditLogRequiresActionAndResult(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	require.Error(t, svc.Log(context.Background(), AuditEntry{Result: "success"}))
	require.Error(t, svc.Log(context.Background(), AuditEntry{Action: "role.create"}))
}

func TestAuditListFilters(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	for _, action := range []string{"role.create", "role.delete", "role.create"} {
		require.NoError(t, svc.Log(context.Background(), AuditEntry{
			Action: action,
			Result: "success",
		}))
	}

	logs, total, err := svc.List(context.Background(), AuditListOptions{
		Filters: AuditFilters{Action: "role.create"},
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, logs, 2)
}

func TestAuditCleanupOlderThan(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	require.NoError(t, svc.Log(context.Background(), AuditEntry{Action: "old.event", Result: "success"}))
	require.NoError(t, db.Model(&models.AuditLog{}).
		Where("action = ?", "old.event").
		Update("created_at", time.Now().Add(-48*time.Hour)).Error)
	require.NoError(t, svc.Log(context.Background(), AuditEntry{Action: "new.event", Result: "success"}))

	removed, err := svc.CleanupOlderThan(context.Background(), 1)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var remaining int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&remaining).Error)
	require.EqualValues(t, 1, remaining)
}
