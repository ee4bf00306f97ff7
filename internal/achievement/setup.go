package achievement

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// migrateDB 负责自动迁移成就相关的表结构
func migrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(&Achievement{}, &UserAchievement{}); err != nil {
		return fmt.Errorf("无法迁移achievement表: %w", err)
	}
	return nil
}

// seedDB 写入默认成就。已存在相同阈值的成就时保持不变。
func seedDB(db *gorm.DB, items []Achievement) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]Achievement, len(items))
	copy(rows, items)
	// 让数据库分配ID
	for i := range rows {
		rows[i].ID = 0
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "threshold"}},
		DoNothing: true,
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("无法写入默认成就: %w", err)
	}
	return nil
}

// LoadCatalog 从数据库读取全部成就
func LoadCatalog(db *gorm.DB) (*Catalog, error) {
	var items []Achievement
	if err := db.Order("threshold asc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("无法读取成就列表: %w", err)
	}
	return NewCatalog(items)
}

// PrimeDB 是achievement模块的初始化总入口：迁移、写入默认数据、加载目录
func PrimeDB(db *gorm.DB, log *zap.Logger) (*Catalog, error) {
	if err := migrateDB(db); err != nil {
		return nil, err
	}
	if err := seedDB(db, Defaults()); err != nil {
		return nil, err
	}
	catalog, err := LoadCatalog(db)
	if err != nil {
		return nil, err
	}
	log.Info("成就目录加载完成", zap.Int("count", catalog.Len()))
	return catalog, nil
}
