package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestSchemaVersionLifecycle(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, PrimeDB(db))

	v, err := GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	require.NoError(t, MarkMigrated(db))
	v, err = GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)

	// 重复写入走 upsert
	require.NoError(t, MarkMigrated(db))
	var count int64
	require.NoError(t, db.Model(&Metadata{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPrimeDBRejectsNewerSchema(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, PrimeDB(db))
	require.NoError(t, SetSchemaVersion(db, SchemaVersion+1))

	assert.Error(t, PrimeDB(db))
}

func TestEnsureInitializedAtIsStable(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, PrimeDB(db))

	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got, err := EnsureInitializedAt(db, first)
	require.NoError(t, err)
	assert.True(t, got.Equal(first))

	got, err = EnsureInitializedAt(db, first.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, got.Equal(first))
}
