package stats

import (
	"context"
	"time"
)

// Reader 是统计数据的只读访问
type Reader interface {
	// GetUserStats 用户不存在时返回 (nil, nil)
	GetUserStats(ctx context.Context, userID string) (*UserStats, error)
	GetGlobalStats(ctx context.Context) (GlobalStats, error)
	// DenseRank 用户不存在时返回 (nil, nil)
	DenseRank(ctx context.Context, userID string) (*int64, error)
	HeldAchievementIDs(ctx context.Context, userID string) ([]uint, error)
	// TopUsers 按累计点击数降序、用户ID升序返回前 limit 名
	TopUsers(ctx context.Context, limit int) ([]UserStats, error)
}

// Tx 是事务内可用的操作，所有写入要么一起提交，要么一起回滚
type Tx interface {
	Reader

	AppendClicks(ctx context.Context, userID string, count int64, at time.Time) error
	// UpsertUserStats 累加点击数并按 today/yesterday 更新连续天数。
	// 新建用户时 created 为 true。
	UpsertUserStats(ctx context.Context, userID string, clicks int64, today, yesterday string) (stats UserStats, created bool, err error)
	AddGlobal(ctx context.Context, spamCount, newUsers int64) error
	// GrantAchievement 已持有时返回 false，不会重复写入
	GrantAchievement(ctx context.Context, userID string, achievementID uint) (bool, error)
}

// Store 是统计引擎依赖的存储接口
type Store interface {
	Reader
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
