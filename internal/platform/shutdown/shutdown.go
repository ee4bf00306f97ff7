package shutdown

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/SlpAus/spam-clicker-backend/pkg/lifecycle"
)

const (
	gracefulTimeout = 30 * time.Second
	forcefulTimeout = 1 * time.Second
)

// Coordinator 负责编排应用程序的优雅停机流程。
type Coordinator struct {
	GracefulManager *lifecycle.Manager
	ForcefulManager *lifecycle.Manager
	HTTPTimeout     time.Duration
	// Finalizers 在所有后台服务退出后按顺序执行，例如关闭数据库连接
	Finalizers []func() error
	log        *zap.Logger
}

// NewCoordinator 创建一个新的停机协调器。
func NewCoordinator(gracefulMgr, forcefulMgr *lifecycle.Manager, httpTimeout time.Duration, log *zap.Logger) *Coordinator {
	return &Coordinator{
		GracefulManager: gracefulMgr,
		ForcefulManager: forcefulMgr,
		HTTPTimeout:     httpTimeout,
		log:             log,
	}
}

// ListenForSignalsAndShutdown 启动信号监听并阻塞，直到停机流程完成。
func (c *Coordinator) ListenForSignalsAndShutdown(server *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	c.log.Info("收到关闭信号，开始优雅停机", zap.Stringer("signal", sig))
	c.Shutdown(server)
}

// Shutdown 依次关闭HTTP服务器、后台服务和底层资源
func (c *Coordinator) Shutdown(server *http.Server) {
	// 关闭HTTP服务器，允许正在进行的请求完成
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), c.HTTPTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		c.log.Error("Gin服务器关闭错误", zap.Error(err))
	} else {
		c.log.Info("Gin服务器已关闭")
	}

	// --- 阶段一: 优雅停机 ---
	c.GracefulManager.Shutdown()
	remaining := c.GracefulManager.WaitWithTimeout(gracefulTimeout)
	if len(remaining) > 0 {
		// --- 阶段二: 强制停机 ---
		c.log.Warn("第一阶段超时，发送强制停机信号", zap.Strings("remaining", remaining))
		c.ForcefulManager.Shutdown()
		c.ForcefulManager.WaitWithTimeout(forcefulTimeout)
	}

	for _, fn := range c.Finalizers {
		if err := fn(); err != nil {
			c.log.Error("停机收尾操作失败", zap.Error(err))
		}
	}

	c.log.Info("优雅停机完成")
}
