package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SlpAus/spam-clicker-backend/internal/achievement"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/config"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/health"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/logging"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/metrics"
	"github.com/SlpAus/spam-clicker-backend/internal/stats"
	"github.com/SlpAus/spam-clicker-backend/internal/user"
)

// Dependencies 汇总路由需要的组件
type Dependencies struct {
	Config  *config.Config
	Engine  *stats.Engine
	Limiter stats.Limiter
	Health  *health.Checker
	Logger  *zap.Logger
}

// NewRouter 构造gin引擎并注册全部中间件和路由
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.RequestLogger(deps.Logger.Named("http"), "/healthz", "/metrics"))
	r.Use(metrics.CollectMetrics())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.Config.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	SetupRoutes(r, deps)
	return r
}

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	if deps.Health != nil {
		router.GET("/healthz", deps.Health.Handler())
	}
	router.GET("/metrics", metrics.Handler())

	api := router.Group("/api")
	{
		api.GET("/session", user.EnsureUserCookieMiddleware(deps.Logger.Named("user")), user.SessionHandler)
		api.GET("/achievements", gzip.Gzip(gzip.DefaultCompression), achievement.ListHandler(deps.Engine.Catalog()))

		handler := stats.NewHandler(deps.Engine, deps.Limiter, deps.Logger.Named("handler"))
		handler.RegisterRoutes(api)
	}
}
