package metadata

import (
	"fmt"

	"gorm.io/gorm"
)

// PrimeDB 迁移metadata表，并拒绝在比当前程序更新的数据库上启动
func PrimeDB(db *gorm.DB) error {
	if err := db.AutoMigrate(&Metadata{}); err != nil {
		return fmt.Errorf("无法迁移metadata表: %w", err)
	}

	stored, err := GetSchemaVersion(db)
	if err != nil {
		return err
	}
	if stored > SchemaVersion {
		return fmt.Errorf("数据库结构版本 %d 高于程序支持的版本 %d", stored, SchemaVersion)
	}
	return nil
}

// MarkMigrated 在所有模块迁移完成后记录当前结构版本
func MarkMigrated(db *gorm.DB) error {
	if err := SetSchemaVersion(db, SchemaVersion); err != nil {
		return fmt.Errorf("无法记录数据库结构版本: %w", err)
	}
	return nil
}
