package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SlpAus/spam-clicker-backend/internal/stats"
	"github.com/SlpAus/spam-clicker-backend/pkg/lifecycle"
)

var (
	driftedUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spam_counter_drifted_users",
		Help: "Users whose total_clicks disagrees with the click log at the last audit.",
	})
	globalDrift = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spam_counter_global_drift",
		Help: "Recorded total_spam_count minus the click log size at the last audit.",
	})
	lastAudit = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spam_counter_last_audit_timestamp_seconds",
		Help: "Unix time of the last completed audit.",
	})
)

// Auditor 定期将计数与点击日志对账，只报告不修复
type Auditor struct {
	db       *gorm.DB
	interval time.Duration
	log      *zap.Logger

	mu sync.Mutex // 避免手动触发和定时任务重叠
}

func NewAuditor(db *gorm.DB, interval time.Duration, log *zap.Logger) *Auditor {
	return &Auditor{db: db, interval: interval, log: log}
}

// Run 启动对账循环，直到停机信号到达
func (a *Auditor) Run(handle *lifecycle.Handle) {
	defer handle.Close()
	a.log.Info("计数对账调度器已启动", zap.Duration("interval", a.interval))

	for {
		if err := handle.Sleep(a.interval); err != nil {
			a.log.Info("对账调度器: 休眠被中断，正在关闭")
			return
		}

		if _, err := a.RunOnce(handle.Ctx()); err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				a.log.Error("对账失败", zap.Error(err))
			}
		}
	}
}

// RunOnce 执行一次对账并更新指标
func (a *Auditor) RunOnce(ctx context.Context) (stats.ReconcileReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	report, err := stats.Reconcile(ctx, a.db, false)
	if err != nil {
		return stats.ReconcileReport{}, err
	}

	driftedUsers.Set(float64(len(report.Mismatches)))
	globalDrift.Set(float64(report.RecordedGlobal.TotalSpamCount - report.ExpectedGlobal.TotalSpamCount))
	lastAudit.SetToCurrentTime()

	if report.Consistent() {
		a.log.Debug("计数与点击日志一致", zap.Int("users", report.Users))
	} else {
		a.log.Warn("计数与点击日志不一致",
			zap.Int("drifted_users", len(report.Mismatches)),
			zap.Int("orphan_users", len(report.OrphanUsers)),
			zap.Int64("recorded_spam_count", report.RecordedGlobal.TotalSpamCount),
			zap.Int64("expected_spam_count", report.ExpectedGlobal.TotalSpamCount))
	}
	return report, nil
}
