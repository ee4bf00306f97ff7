package startup

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SlpAus/spam-clicker-backend/internal/achievement"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/config"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/metadata"
	"github.com/SlpAus/spam-clicker-backend/internal/stats"
)

// InitializeApplication 是应用启动时执行的总入口：迁移数据库、写入默认成就并构造统计引擎。
// db 为 nil 时使用内存存储。
func InitializeApplication(cfg *config.Config, db *gorm.DB, log *zap.Logger) (*stats.Engine, error) {
	log.Info("开始应用初始化...")

	loc, err := cfg.Clicks.Location()
	if err != nil {
		return nil, err
	}

	var (
		store   stats.Store
		catalog *achievement.Catalog
	)
	if db == nil {
		catalog, err = achievement.NewCatalog(achievement.Defaults())
		if err != nil {
			return nil, err
		}
		store = stats.NewMemoryStore()
	} else {
		catalog, err = primeDB(db, log)
		if err != nil {
			return nil, err
		}
		store = stats.NewGormStore(db)
	}

	engine := stats.NewEngine(store, catalog,
		stats.WithLogger(log.Named("stats")),
		stats.WithLocation(loc),
		stats.WithMaxClicksPerRequest(cfg.Clicks.MaxClicksPerRequest),
	)

	log.Info("应用初始化完成！",
		zap.String("timezone", loc.String()),
		zap.Int("achievements", catalog.Len()))
	return engine, nil
}

func primeDB(db *gorm.DB, log *zap.Logger) (*achievement.Catalog, error) {
	if err := metadata.PrimeDB(db); err != nil {
		return nil, err
	}
	if err := stats.PrimeDB(db); err != nil {
		return nil, err
	}
	catalog, err := achievement.PrimeDB(db, log)
	if err != nil {
		return nil, err
	}
	if err := metadata.MarkMigrated(db); err != nil {
		return nil, err
	}
	initializedAt, err := metadata.EnsureInitializedAt(db, time.Now())
	if err != nil {
		return nil, fmt.Errorf("无法读取初始化时间: %w", err)
	}
	log.Info("数据库迁移完成",
		zap.Int("schema_version", metadata.SchemaVersion),
		zap.Time("initialized_at", initializedAt))
	return catalog, nil
}
