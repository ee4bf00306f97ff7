package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SlpAus/spam-clicker-backend/api"
	"github.com/SlpAus/spam-clicker-backend/internal/limiter"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/audit"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/config"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/database"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/health"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/logging"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/shutdown"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/startup"
	"github.com/SlpAus/spam-clicker-backend/internal/stats"
	"github.com/SlpAus/spam-clicker-backend/pkg/lifecycle"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("加载配置失败: %v", err))
	}

	log, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	gin.SetMode(cfg.Server.Mode)

	// 1. 连接存储
	db, err := database.InitDB(cfg.Database, log)
	if err != nil {
		log.Fatal("数据库初始化失败", zap.Error(err))
	}
	rdb := database.InitRedis(context.Background(), cfg.Redis, log)

	// 2. 执行应用初始化流程
	engine, err := startup.InitializeApplication(cfg, db, log)
	if err != nil {
		log.Fatal("应用初始化失败，无法启动", zap.Error(err))
	}

	// 3. 启动后健康检查，并在后台持续运行
	gracefulMgr := lifecycle.NewManager(log.Named("lifecycle"))
	forcefulMgr := lifecycle.NewManager(log.Named("lifecycle"))

	checker := health.NewChecker(rdb, db, log.Named("health"))
	log.Info("正在执行启动后健康检查...", zap.Stringer("state", checker.PerformCheck(context.Background())))
	healthHandle, err := gracefulMgr.NewServiceHandle("health-checker")
	if err != nil {
		log.Fatal("无法注册健康检查器", zap.Error(err))
	}
	go checker.Run(healthHandle)

	// 计数对账只对持久化存储有意义
	if db != nil && cfg.Audit.Interval > 0 {
		auditHandle, err := gracefulMgr.NewServiceHandle("counter-auditor")
		if err != nil {
			log.Fatal("无法注册对账调度器", zap.Error(err))
		}
		go audit.NewAuditor(db, cfg.Audit.Interval, log.Named("audit")).Run(auditHandle)
	}

	// 4. 频率限制只在配置开启且Redis可用时生效
	var clickLimiter stats.Limiter
	if cfg.RateLimit.Enabled {
		if rdb == nil {
			log.Warn("已开启频率限制但未配置Redis，频率限制不会生效")
		} else {
			clickLimiter = limiter.New(rdb, cfg.RateLimit, log.Named("limiter"))
		}
	}

	router := api.NewRouter(api.Dependencies{
		Config:  cfg,
		Engine:  engine,
		Limiter: clickLimiter,
		Health:  checker,
		Logger:  log,
	})

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	coordinator := shutdown.NewCoordinator(gracefulMgr, forcefulMgr, cfg.Server.ShutdownTimeout, log.Named("shutdown"))
	coordinator.Finalizers = append(coordinator.Finalizers, database.Close)
	if rdb != nil {
		coordinator.Finalizers = append(coordinator.Finalizers, rdb.Close)
	}

	go func() {
		log.Info("服务器已准备就绪，开始监听", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	coordinator.ListenForSignalsAndShutdown(server)
}
