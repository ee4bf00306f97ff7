package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SlpAus/spam-clicker-backend/internal/platform/database"
	"github.com/SlpAus/spam-clicker-backend/pkg/lifecycle"
)

const (
	checkInterval = 5 * time.Second
	pingTimeout   = 2 * time.Second
)

// Checker 定期检查Redis和数据库的连通性。
// 未配置的依赖（rdb 或 db 为 nil）视为健康。
type Checker struct {
	rdb      *redis.Client
	db       *gorm.DB
	log      *zap.Logger
	interval time.Duration
	status   *statusManager
}

// NewChecker 创建健康检查器
func NewChecker(rdb *redis.Client, db *gorm.DB, log *zap.Logger) *Checker {
	return &Checker{
		rdb:      rdb,
		db:       db,
		log:      log,
		interval: checkInterval,
		status:   newStatusManager(log),
	}
}

func (c *Checker) pingRedis(ctx context.Context) bool {
	if c.rdb == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return database.PingRedis(ctx, c.rdb) == nil
}

func (c *Checker) pingDatabase(ctx context.Context) bool {
	if c.db == nil {
		return true
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx) == nil
}

// PerformCheck 执行一次完整的健康检查
func (c *Checker) PerformCheck(ctx context.Context) State {
	redisOK := c.pingRedis(ctx)
	databaseOK := c.pingDatabase(ctx)

	if c.rdb != nil {
		database.UpdateStatus(redisOK)
	}
	c.status.Assess(redisOK, databaseOK, time.Now())
	return c.status.state()
}

// Run 在后台循环执行健康检查，直到生命周期句柄发出停机信号
func (c *Checker) Run(handle *lifecycle.Handle) {
	defer handle.Close()
	c.log.Info("健康检查器已启动", zap.Duration("interval", c.interval))

	for {
		if err := handle.Sleep(c.interval); err != nil {
			c.log.Info("健康检查器已停止")
			return
		}
		c.PerformCheck(handle.Ctx())
	}
}

// Report 返回最近一次检查的结果
func (c *Checker) Report() Report {
	return c.status.snapshot()
}

// Handler 处理 GET /healthz。数据库不可用时返回503。
func (c *Checker) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		report := c.Report()
		code := http.StatusOK
		if c.status.state() == StateUnavailable {
			code = http.StatusServiceUnavailable
		}
		ctx.JSON(code, report)
	}
}
