package stats

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"
)

// Mismatch 描述一个累计点击数与点击日志不一致的用户
type Mismatch struct {
	UserID   string
	Recorded int64
	Events   int64
}

// ReconcileReport 是一次对账的结果
type ReconcileReport struct {
	Users          int
	Mismatches     []Mismatch
	OrphanUsers    []string // 有点击日志但没有统计记录的用户
	RecordedGlobal GlobalStats
	ExpectedGlobal GlobalStats
	Fixed          bool
}

// Consistent 报告计数是否与点击日志完全一致
func (r ReconcileReport) Consistent() bool {
	return len(r.Mismatches) == 0 && len(r.OrphanUsers) == 0 &&
		r.RecordedGlobal.TotalSpamCount == r.ExpectedGlobal.TotalSpamCount &&
		r.RecordedGlobal.TotalUsers == r.ExpectedGlobal.TotalUsers
}

type eventCount struct {
	UserID string
	Clicks int64
}

// Reconcile 以点击日志为准核对用户和全局计数。孤立的点击日志只报告不修复。
//
// fix 为 false 时只做普通读取，不开启事务，不会占用SQLite的写锁；
// 读取期间并发写入的点击可能表现为短暂的不一致。
// fix 为 true 时在一个写事务中重新核对并修正计数，期间其他写入会等待。
func Reconcile(ctx context.Context, db *gorm.DB, fix bool) (ReconcileReport, error) {
	if !fix {
		return inspect(ctx, db.WithContext(ctx))
	}

	var report ReconcileReport
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		report, err = inspect(ctx, tx)
		if err != nil {
			return err
		}
		if report.Consistent() {
			return nil
		}
		return repair(tx, report)
	})
	if err != nil {
		return ReconcileReport{}, err
	}
	if !report.Consistent() {
		report.Fixed = true
	}
	return report, nil
}

func inspect(ctx context.Context, db *gorm.DB) (ReconcileReport, error) {
	var report ReconcileReport

	var counts []eventCount
	err := db.Model(&ClickEvent{}).
		Select("user_id, COUNT(*) AS clicks").
		Group("user_id").
		Scan(&counts).Error
	if err != nil {
		return report, fmt.Errorf("统计点击日志失败: %w", err)
	}
	byUser := make(map[string]int64, len(counts))
	var totalEvents int64
	for _, c := range counts {
		byUser[c.UserID] = c.Clicks
		totalEvents += c.Clicks
	}

	var users []UserStats
	if err := db.Select("user_id", "total_clicks").Find(&users).Error; err != nil {
		return report, fmt.Errorf("读取用户统计失败: %w", err)
	}
	report.Users = len(users)

	known := make(map[string]bool, len(users))
	for _, u := range users {
		known[u.UserID] = true
		if events := byUser[u.UserID]; events != u.TotalClicks {
			report.Mismatches = append(report.Mismatches, Mismatch{UserID: u.UserID, Recorded: u.TotalClicks, Events: events})
		}
	}
	for userID := range byUser {
		if !known[userID] {
			report.OrphanUsers = append(report.OrphanUsers, userID)
		}
	}
	sort.Slice(report.Mismatches, func(i, j int) bool { return report.Mismatches[i].UserID < report.Mismatches[j].UserID })
	sort.Strings(report.OrphanUsers)

	global, err := gormReader{db: db}.GetGlobalStats(ctx)
	if err != nil {
		return report, err
	}
	report.RecordedGlobal = GlobalStats{TotalSpamCount: global.TotalSpamCount, TotalUsers: global.TotalUsers}
	report.ExpectedGlobal = GlobalStats{TotalSpamCount: totalEvents, TotalUsers: int64(len(users))}
	return report, nil
}

func repair(tx *gorm.DB, report ReconcileReport) error {
	for _, m := range report.Mismatches {
		err := tx.Model(&UserStats{}).
			Where("user_id = ?", m.UserID).
			Update("total_clicks", m.Events).Error
		if err != nil {
			return fmt.Errorf("修正用户 %s 的点击数失败: %w", m.UserID, err)
		}
	}
	err := tx.Model(&GlobalStats{}).
		Where("id = ?", globalStatsID).
		Updates(map[string]any{
			"total_spam_count": report.ExpectedGlobal.TotalSpamCount,
			"total_users":      report.ExpectedGlobal.TotalUsers,
		}).Error
	if err != nil {
		return fmt.Errorf("修正全局统计失败: %w", err)
	}
	return nil
}
