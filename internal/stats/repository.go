package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SlpAus/spam-clicker-backend/internal/achievement"
)

// clickBatchSize 控制一次INSERT写入的点击记录行数
const clickBatchSize = 500

// GormStore 是基于gorm的存储实现，支持SQLite和PostgreSQL
type GormStore struct {
	gormReader
}

// NewGormStore 创建存储。调用前需要先执行 PrimeDB 完成迁移。
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{gormReader{db: db}}
}

// WithinTx 在一个数据库事务中执行 fn
func (s *GormStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{gormReader{db: tx}})
	})
}

// --- 读取 ---

type gormReader struct {
	db *gorm.DB
}

func (r gormReader) GetUserStats(ctx context.Context, userID string) (*UserStats, error) {
	var s UserStats
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取用户统计失败: %w", err)
	}
	return &s, nil
}

func (r gormReader) GetGlobalStats(ctx context.Context) (GlobalStats, error) {
	var g GlobalStats
	err := r.db.WithContext(ctx).Where("id = ?", globalStatsID).Take(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return GlobalStats{}, nil
	}
	if err != nil {
		return GlobalStats{}, fmt.Errorf("读取全局统计失败: %w", err)
	}
	return g, nil
}

func (r gormReader) DenseRank(ctx context.Context, userID string) (*int64, error) {
	var totals []int64
	err := r.db.WithContext(ctx).Model(&UserStats{}).
		Where("user_id = ?", userID).
		Limit(1).
		Pluck("total_clicks", &totals).Error
	if err != nil {
		return nil, fmt.Errorf("读取用户点击数失败: %w", err)
	}
	if len(totals) == 0 {
		return nil, nil
	}

	var higher int64
	err = r.db.WithContext(ctx).Model(&UserStats{}).
		Where("total_clicks > ?", totals[0]).
		Distinct("total_clicks").
		Count(&higher).Error
	if err != nil {
		return nil, fmt.Errorf("计算排名失败: %w", err)
	}
	rank := higher + 1
	return &rank, nil
}

func (r gormReader) HeldAchievementIDs(ctx context.Context, userID string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&achievement.UserAchievement{}).
		Where("user_id = ?", userID).
		Pluck("achievement_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("读取用户成就失败: %w", err)
	}
	return ids, nil
}

func (r gormReader) TopUsers(ctx context.Context, limit int) ([]UserStats, error) {
	var rows []UserStats
	err := r.db.WithContext(ctx).
		Order("total_clicks desc").
		Order("user_id asc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("读取排行榜失败: %w", err)
	}
	return rows, nil
}

// --- 事务内写入 ---

type gormTx struct {
	gormReader
}

func (t *gormTx) AppendClicks(ctx context.Context, userID string, count int64, at time.Time) error {
	if count <= 0 {
		return nil
	}
	db := t.db.WithContext(ctx)
	for remaining := count; remaining > 0; {
		n := remaining
		if n > clickBatchSize {
			n = clickBatchSize
		}
		rows := make([]ClickEvent, n)
		for i := range rows {
			rows[i] = ClickEvent{UserID: userID, CreatedAt: at}
		}
		if err := db.Create(&rows).Error; err != nil {
			return fmt.Errorf("写入点击记录失败: %w", err)
		}
		remaining -= n
	}
	return nil
}

func (t *gormTx) UpsertUserStats(ctx context.Context, userID string, clicks int64, today, yesterday string) (UserStats, bool, error) {
	db := t.db.WithContext(ctx)

	// 1. 尝试创建新用户，冲突时什么也不做
	row := UserStats{
		UserID:        userID,
		TotalClicks:   clicks,
		StreakDays:    1,
		LastClickDate: &today,
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return UserStats{}, false, fmt.Errorf("创建用户统计失败: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return row, true, nil
	}

	// 2. 用户已存在：在同一条UPDATE中累加点击并推进连续天数，SET子句读取的都是旧值
	res = db.Model(&UserStats{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"total_clicks": gorm.Expr("total_clicks + ?", clicks),
			"streak_days": gorm.Expr(
				"CASE WHEN last_click_date = ? THEN streak_days WHEN last_click_date = ? THEN streak_days + 1 ELSE 1 END",
				today, yesterday,
			),
			"last_click_date": today,
		})
	if res.Error != nil {
		return UserStats{}, false, fmt.Errorf("更新用户统计失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return UserStats{}, false, fmt.Errorf("更新用户统计失败: 用户 %s 不存在", userID)
	}

	var updated UserStats
	if err := db.Where("user_id = ?", userID).Take(&updated).Error; err != nil {
		return UserStats{}, false, fmt.Errorf("读取更新后的用户统计失败: %w", err)
	}
	return updated, false, nil
}

func (t *gormTx) AddGlobal(ctx context.Context, spamCount, newUsers int64) error {
	res := t.db.WithContext(ctx).Model(&GlobalStats{}).
		Where("id = ?", globalStatsID).
		Updates(map[string]any{
			"total_spam_count": gorm.Expr("total_spam_count + ?", spamCount),
			"total_users":      gorm.Expr("total_users + ?", newUsers),
		})
	if res.Error != nil {
		return fmt.Errorf("更新全局统计失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.New("更新全局统计失败: 全局统计记录不存在")
	}
	return nil
}

func (t *gormTx) GrantAchievement(ctx context.Context, userID string, achievementID uint) (bool, error) {
	grant := achievement.UserAchievement{UserID: userID, AchievementID: achievementID}
	res := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
		DoNothing: true,
	}).Create(&grant)
	if res.Error != nil {
		return false, fmt.Errorf("授予成就失败: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// --- 初始化 ---

// PrimeDB 迁移统计相关的表，并确保全局统计记录存在
func PrimeDB(db *gorm.DB) error {
	if err := db.AutoMigrate(&UserStats{}, &GlobalStats{}, &ClickEvent{}); err != nil {
		return fmt.Errorf("无法迁移stats表: %w", err)
	}
	err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&GlobalStats{ID: globalStatsID}).Error
	if err != nil {
		return fmt.Errorf("无法初始化全局统计: %w", err)
	}
	return nil
}
