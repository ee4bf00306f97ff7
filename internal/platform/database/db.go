package database

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SlpAus/spam-clicker-backend/internal/platform/config"
)

var DB *gorm.DB

// sqlite 连接参数：WAL + 写事务以 BEGIN IMMEDIATE 开始，并发写入者在锁上等待而不是立即失败
const sqliteParams = "_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate&_foreign_keys=on"

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Silent
	}
}

// SqliteDSN 为文件路径附加连接参数
func SqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + sqliteParams
	}
	return path + "?" + sqliteParams
}

// InitDB 初始化数据库连接。driver 为 memory 时不打开任何连接，返回 nil。
func InitDB(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	if cfg.Driver == config.DriverMemory {
		log.Info("使用内存存储，不连接数据库")
		return nil, nil
	}

	// GORM日志配置，输出接入zap
	newLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gormCfg := &gorm.Config{Logger: newLogger}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err = gorm.Open(postgres.Open(cfg.Postgres.DSN), gormCfg)
	default:
		db, err = gorm.Open(sqlite.Open(SqliteDSN(cfg.Sqlite.Path)), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	if cfg.Driver == config.DriverSqlite {
		// SQLite 同一时刻只允许一个写入者
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("无法获取底层数据库连接: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	DB = db
	log.Info("数据库连接成功", zap.String("driver", cfg.Driver))
	return db, nil
}

// Close 关闭底层连接
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
