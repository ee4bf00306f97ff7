package metadata

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- Generic Accessors ---

// GetValue retrieves a value for a given key. A missing key yields an empty string.
func GetValue(db *gorm.DB, key string) (string, error) {
	var meta Metadata
	err := db.Where("key = ?", key).Take(&meta).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return meta.Value, nil
}

// SetValue creates or updates a value for a given key.
func SetValue(db *gorm.DB, key, value string) error {
	meta := Metadata{
		Key:   key,
		Value: value,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&meta).Error
}

// --- Specific Helpers ---

// GetSchemaVersion returns the stored schema version, 0 when the database is fresh.
func GetSchemaVersion(db *gorm.DB) (int, error) {
	valueStr, err := GetValue(db, SchemaVersionKey)
	if err != nil {
		return 0, err
	}
	if valueStr == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("无法解析元数据 '%s' 的值: %w", SchemaVersionKey, err)
	}
	return v, nil
}

// SetSchemaVersion records the schema version.
func SetSchemaVersion(db *gorm.DB, version int) error {
	return SetValue(db, SchemaVersionKey, strconv.Itoa(version))
}

// EnsureInitializedAt records the first startup time once and returns the stored value.
func EnsureInitializedAt(db *gorm.DB, now time.Time) (time.Time, error) {
	valueStr, err := GetValue(db, InitializedAtKey)
	if err != nil {
		return time.Time{}, err
	}
	if valueStr != "" {
		return time.Parse(time.RFC3339, valueStr)
	}
	now = now.UTC().Truncate(time.Second)
	if err := SetValue(db, InitializedAtKey, now.Format(time.RFC3339)); err != nil {
		return time.Time{}, err
	}
	return now, nil
}
