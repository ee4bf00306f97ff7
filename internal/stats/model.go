package stats

import (
	"time"

	"github.com/SlpAus/spam-clicker-backend/internal/achievement"
)

// globalStatsID 是全局统计单行记录的主键
const globalStatsID = 1

// ClickEvent 是一次点击的追加写日志，一次请求按点击数写入多行
type ClickEvent struct {
	ID        uint      `gorm:"primarykey"`
	UserID    string    `gorm:"type:varchar(64);not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}

func (ClickEvent) TableName() string { return "click_events" }

// UserStats 是每个用户的累计统计。
// TotalClicks 是用户点击数的唯一权威来源，与 ClickEvent 在同一事务内写入。
type UserStats struct {
	ID            uint      `gorm:"primarykey" json:"-"`
	UserID        string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"user_id,omitempty"`
	TotalClicks   int64     `gorm:"not null;default:0;index" json:"total_clicks"`
	StreakDays    int64     `gorm:"not null;default:0" json:"streak_days"`
	LastClickDate *string   `gorm:"type:varchar(10)" json:"last_click_date"`
	CreatedAt     time.Time `json:"-"`
	UpdatedAt     time.Time `json:"-"`
}

func (UserStats) TableName() string { return "user_stats" }

// GlobalStats 是全站统计，表中只有 id=1 一行
type GlobalStats struct {
	ID             uint      `gorm:"primarykey" json:"-"`
	TotalSpamCount int64     `gorm:"not null;default:0" json:"total_spam_count"`
	TotalUsers     int64     `gorm:"not null;default:0" json:"total_users"`
	UpdatedAt      time.Time `json:"-"`
}

func (GlobalStats) TableName() string { return "global_stats" }

// RecordResult 是 RecordClicks 的返回值
type RecordResult struct {
	Error               string                    `json:"error,omitempty"`
	Status              Status                    `json:"status"`
	UserStats           UserStats                 `json:"userStats"`
	GlobalStats         GlobalStats               `json:"globalStats"`
	LeaderboardPosition *int64                    `json:"leaderboardPosition"`
	NewAchievements     []achievement.Achievement `json:"newAchievements"`
	// UserCreated 表示本次调用创建了该用户
	UserCreated bool `json:"-"`
}

// StatsResult 是 GetStats 的返回值。Degraded 列出失败并使用了默认值的子读取。
type StatsResult struct {
	Error               string                    `json:"error,omitempty"`
	Status              Status                    `json:"status"`
	Degraded            []string                  `json:"degraded,omitempty"`
	UserStats           UserStats                 `json:"userStats"`
	Achievements        []achievement.Achievement `json:"achievements"`
	GlobalStats         GlobalStats               `json:"globalStats"`
	LeaderboardPosition *int64                    `json:"leaderboardPosition"`
}

// LeaderboardEntry 是排行榜中的一行
type LeaderboardEntry struct {
	Rank        int64  `json:"rank"`
	UserID      string `json:"user_id"`
	TotalClicks int64  `json:"total_clicks"`
	StreakDays  int64  `json:"streak_days"`
}

func emptyRecordResult() RecordResult {
	return RecordResult{
		Status:          StatusFailed,
		NewAchievements: []achievement.Achievement{},
	}
}

func emptyStatsResult() StatsResult {
	return StatsResult{
		Status:       StatusFailed,
		Achievements: []achievement.Achievement{},
	}
}
