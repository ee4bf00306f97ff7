package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SlpAus/spam-clicker-backend/internal/achievement"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/database"
)

func openReconcileDB(t *testing.T) (*gorm.DB, *Engine) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, PrimeDB(db))
	catalog, err := achievement.PrimeDB(db, zap.NewNop())
	require.NoError(t, err)
	return db, NewEngine(NewGormStore(db), catalog, WithClock(newFakeClock(day0)))
}

func TestReconcileConsistent(t *testing.T) {
	db, engine := openReconcileDB(t)
	ctx := t.Context()

	_, err := engine.RecordClicks(ctx, "alice", 4)
	require.NoError(t, err)
	_, err = engine.RecordClicks(ctx, "bob", 2)
	require.NoError(t, err)

	report, err := Reconcile(ctx, db, false)
	require.NoError(t, err)
	assert.True(t, report.Consistent())
	assert.Equal(t, 2, report.Users)
	assert.Equal(t, int64(6), report.ExpectedGlobal.TotalSpamCount)
}

func TestReconcileDetectsAndFixesDrift(t *testing.T) {
	db, engine := openReconcileDB(t)
	ctx := t.Context()

	_, err := engine.RecordClicks(ctx, "alice", 4)
	require.NoError(t, err)

	// 人为制造漂移
	require.NoError(t, db.Model(&UserStats{}).Where("user_id = ?", "alice").Update("total_clicks", 9).Error)
	require.NoError(t, db.Model(&GlobalStats{}).Where("id = ?", globalStatsID).Update("total_spam_count", 1).Error)
	require.NoError(t, db.Create(&ClickEvent{UserID: "ghost", CreatedAt: day0}).Error)

	report, err := Reconcile(ctx, db, false)
	require.NoError(t, err)
	assert.False(t, report.Consistent())
	assert.Equal(t, []Mismatch{{UserID: "alice", Recorded: 9, Events: 4}}, report.Mismatches)
	assert.Equal(t, []string{"ghost"}, report.OrphanUsers)
	assert.False(t, report.Fixed)

	report, err = Reconcile(ctx, db, true)
	require.NoError(t, err)
	assert.True(t, report.Fixed)

	u, err := NewGormStore(db).GetUserStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(4), u.TotalClicks)

	g, err := NewGormStore(db).GetGlobalStats(ctx)
	require.NoError(t, err)
	// 孤立日志也计入全局点击总数
	assert.Equal(t, int64(5), g.TotalSpamCount)
	assert.Equal(t, int64(1), g.TotalUsers)
}

func TestReconcileReportOnlyDoesNotTakeWriteLock(t *testing.T) {
	// 与生产相同的DSN：WAL + BEGIN IMMEDIATE
	path := filepath.Join(t.TempDir(), "spam.db")
	db, err := gorm.Open(sqlite.Open(database.SqliteDSN(path)), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, PrimeDB(db))

	// 另一个写事务持有写锁
	writer := db.Begin()
	require.NoError(t, writer.Error)
	require.NoError(t, writer.Create(&ClickEvent{UserID: "alice", CreatedAt: day0}).Error)
	defer writer.Rollback()

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()

	start := time.Now()
	report, err := Reconcile(ctx, db, false)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, report.Consistent())
	assert.False(t, report.Fixed)
}
