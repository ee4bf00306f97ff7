package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/SlpAus/spam-clicker-backend/internal/achievement"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/database"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100

	// DefaultMaxClicksPerRequest 是单次请求点击数的默认上限。每次点击写入一行日志，上限不能关闭。
	DefaultMaxClicksPerRequest = 10000
)

// Engine 负责点击记录、连续天数、排名和成就的更新与查询
type Engine struct {
	store     Store
	catalog   *achievement.Catalog
	calendar  Calendar
	log       *zap.Logger
	maxClicks int64
	backOff   func() backoff.BackOff
	retryable func(error) bool
}

// Option 配置 Engine
type Option func(*Engine)

// WithClock 替换时间来源
func WithClock(c Clock) Option {
	return func(e *Engine) { e.calendar.Clock = c }
}

// WithLocation 设置计算日历日期使用的时区
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.calendar.Location = loc }
}

// WithLogger 设置日志器
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMaxClicksPerRequest 设置单次请求的点击数上限，n<=0 时使用 DefaultMaxClicksPerRequest
func WithMaxClicksPerRequest(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxClicks = n
		}
	}
}

// WithBackOff 替换事务重试策略
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(e *Engine) { e.backOff = fn }
}

func defaultBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(20*time.Millisecond),
		backoff.WithMaxInterval(500*time.Millisecond),
		backoff.WithMaxElapsedTime(3*time.Second),
	), 4)
}

// NewEngine 创建统计引擎
func NewEngine(store Store, catalog *achievement.Catalog, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		catalog:   catalog,
		calendar:  Calendar{Clock: SystemClock{}, Location: time.UTC},
		log:       zap.NewNop(),
		maxClicks: DefaultMaxClicksPerRequest,
		backOff:   defaultBackOff,
		retryable: database.IsRetryableError,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog 返回引擎使用的成就目录
func (e *Engine) Catalog() *achievement.Catalog {
	return e.catalog
}

// RecordClicks 原子地记录一批点击：写入点击日志、累加全局和用户计数、
// 更新连续天数、计算排名并授予新达成的成就。
// 任一步骤失败都会整体回滚，可重试的存储错误会在新事务中重试。
func (e *Engine) RecordClicks(ctx context.Context, userID string, clickCount int64) (RecordResult, error) {
	const op = "RecordClicks"

	userID = strings.TrimSpace(userID)
	if userID == "" {
		operationFailures.WithLabelValues(op, KindValidation.String()).Inc()
		return emptyRecordResult(), validationError(op, ErrMissingUserID)
	}
	clicks := ClampClicks(clickCount, e.maxClicks)
	now, today, yesterday := e.calendar.Days()

	var result RecordResult
	attempt := func() error {
		result = emptyRecordResult()
		err := e.store.WithinTx(ctx, func(tx Tx) error {
			return e.recordInTx(ctx, tx, userID, clicks, now, today, yesterday, &result)
		})
		if err != nil && !e.retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		txRetries.Inc()
		e.log.Warn("记录点击的事务冲突，准备重试",
			zap.String("user_id", userID), zap.Duration("wait", wait), zap.Error(err))
	}

	if err := backoff.RetryNotify(attempt, backoff.WithContext(e.backOff(), ctx), notify); err != nil {
		operationFailures.WithLabelValues(op, KindStore.String()).Inc()
		e.log.Error("记录点击失败", zap.String("user_id", userID), zap.Int64("clicks", clicks), zap.Error(err))
		return emptyRecordResult(), storeError(op, err)
	}

	result.Status = StatusOK
	clicksRecorded.Add(float64(clicks))
	if result.UserCreated {
		usersCreated.Inc()
	}
	for _, a := range result.NewAchievements {
		achievementsGranted.WithLabelValues(a.Title).Inc()
	}
	e.log.Debug("点击已记录",
		zap.String("user_id", userID),
		zap.Int64("clicks", clicks),
		zap.Int64("total_clicks", result.UserStats.TotalClicks),
		zap.Int("new_achievements", len(result.NewAchievements)))
	return result, nil
}

func (e *Engine) recordInTx(ctx context.Context, tx Tx, userID string, clicks int64, now time.Time, today, yesterday string, out *RecordResult) error {
	if err := tx.AppendClicks(ctx, userID, clicks, now); err != nil {
		return err
	}

	userStats, created, err := tx.UpsertUserStats(ctx, userID, clicks, today, yesterday)
	if err != nil {
		return err
	}

	var newUsers int64
	if created {
		newUsers = 1
	}
	if err := tx.AddGlobal(ctx, clicks, newUsers); err != nil {
		return err
	}

	global, err := tx.GetGlobalStats(ctx)
	if err != nil {
		return err
	}

	rank, err := tx.DenseRank(ctx, userID)
	if err != nil {
		return err
	}

	heldIDs, err := tx.HeldAchievementIDs(ctx, userID)
	if err != nil {
		return err
	}
	held := make(map[uint]bool, len(heldIDs))
	for _, id := range heldIDs {
		held[id] = true
	}

	granted := []achievement.Achievement{}
	for _, a := range e.catalog.Eligible(userStats.TotalClicks, held) {
		ok, err := tx.GrantAchievement(ctx, userID, a.ID)
		if err != nil {
			return fmt.Errorf("授予成就 %d 失败: %w", a.ID, err)
		}
		if ok {
			granted = append(granted, a)
		}
	}
	achievement.SortAscending(granted)

	*out = RecordResult{
		UserStats:           userStats,
		GlobalStats:         global,
		LeaderboardPosition: rank,
		NewAchievements:     granted,
		UserCreated:         created,
	}
	return nil
}

// GetStats 只读地查询用户统计、已解锁成就（按阈值降序）、全局统计和排名。
// 四项读取相互独立，部分失败时使用默认值并返回 StatusDegraded；
// 全部失败时返回 StatusFailed 和错误。未知用户不是错误。
func (e *Engine) GetStats(ctx context.Context, userID string) (StatsResult, error) {
	const op = "GetStats"

	userID = strings.TrimSpace(userID)
	if userID == "" {
		operationFailures.WithLabelValues(op, KindValidation.String()).Inc()
		return emptyStatsResult(), validationError(op, ErrMissingUserID)
	}

	userRes := fetch(func() (*UserStats, error) { return e.store.GetUserStats(ctx, userID) })
	achRes := fetch(func() ([]uint, error) { return e.store.HeldAchievementIDs(ctx, userID) })
	globalRes := fetch(func() (GlobalStats, error) { return e.store.GetGlobalStats(ctx) })
	rankRes := fetch(func() (*int64, error) { return e.store.DenseRank(ctx, userID) })

	var p partial
	p.track("userStats", userRes.Err)
	p.track("achievements", achRes.Err)
	p.track("globalStats", globalRes.Err)
	p.track("leaderboardPosition", rankRes.Err)

	result := emptyStatsResult()
	if u := userRes.Or(nil); u != nil {
		result.UserStats = *u
	}
	result.Achievements = e.catalog.Resolve(achRes.Or(nil))
	result.GlobalStats = globalRes.Or(GlobalStats{})
	result.LeaderboardPosition = rankRes.Or(nil)
	result.Status = p.status(4)
	result.Degraded = p.failed

	switch result.Status {
	case StatusFailed:
		operationFailures.WithLabelValues(op, KindStore.String()).Inc()
		e.log.Error("查询用户统计失败", zap.String("user_id", userID), zap.Error(p.err()))
		result.Degraded = nil
		return result, storeError(op, p.err())
	case StatusDegraded:
		operationFailures.WithLabelValues(op, string(StatusDegraded)).Inc()
		e.log.Warn("查询用户统计部分失败，已使用默认值",
			zap.String("user_id", userID), zap.Strings("failed", p.failed), zap.Error(p.err()))
	}
	return result, nil
}

// Leaderboard 返回前 limit 名用户及其密集排名。limit<=0 使用默认值，超过上限时截断。
func (e *Engine) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	const op = "Leaderboard"

	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	rows, err := e.store.TopUsers(ctx, limit)
	if err != nil {
		operationFailures.WithLabelValues(op, KindStore.String()).Inc()
		return nil, storeError(op, err)
	}

	totals := make([]int64, len(rows))
	for i, r := range rows {
		totals[i] = r.TotalClicks
	}
	ranks := DenseRanks(totals)

	entries := make([]LeaderboardEntry, len(rows))
	for i, r := range rows {
		entries[i] = LeaderboardEntry{
			Rank:        ranks[i],
			UserID:      r.UserID,
			TotalClicks: r.TotalClicks,
			StreakDays:  r.StreakDays,
		}
	}
	return entries, nil
}
