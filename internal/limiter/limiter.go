package limiter

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/SlpAus/spam-clicker-backend/internal/platform/config"
	"github.com/SlpAus/spam-clicker-backend/internal/platform/database"
)

const (
	// keyPrefix 是Redis中有序集合的键名前缀
	keyPrefix = "click_window:"
)

// ErrUnavailable 表示Redis当前不可用，调用方应放行
var ErrUnavailable = errors.New("频率限制服务暂时不可用")

// ClickLimiter 在滑动时间窗口内限制每个用户的点击总数。
// 每次请求在用户的有序集合中写入一个成员：score为时间戳，member编码了本次点击数。
type ClickLimiter struct {
	rdb       *redis.Client
	window    time.Duration
	maxClicks int64
	log       *zap.Logger

	now     func() time.Time
	healthy func() bool
}

// New 创建限制器
func New(rdb *redis.Client, cfg config.RateLimitConfig, log *zap.Logger) *ClickLimiter {
	return &ClickLimiter{
		rdb:       rdb,
		window:    cfg.Window,
		maxClicks: cfg.MaxClicks,
		log:       log,
		now:       time.Now,
		healthy:   database.IsRedisHealthy,
	}
}

// generateUniqueID 根据给定的时间生成一个16字节的、抗冲突的ID，并将其编码为Base64字符串。
// 结构: [ 8字节纳秒时间戳 (Big Endian) | 8字节随机数 ]
func generateUniqueID(t time.Time) (string, error) {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[0:8], uint64(t.UnixNano()))
	if _, err := rand.Read(b[8:16]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func encodeMember(id string, clicks int64) string {
	return id + ":" + strconv.FormatInt(clicks, 10)
}

// clicksOf 从成员中解析点击数，格式错误的成员按1计
func clicksOf(member string) int64 {
	i := strings.LastIndexByte(member, ':')
	if i < 0 {
		return 1
	}
	n, err := strconv.ParseInt(member[i+1:], 10, 64)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Allow 记录本次点击并判断窗口内的总点击数是否超限。
// 超限时撤销本次记录并返回 false。Redis不可用时返回 ErrUnavailable。
func (l *ClickLimiter) Allow(ctx context.Context, userID string, clicks int64) (bool, error) {
	if userID == "" {
		return false, errors.New("缺少用户ID")
	}
	if l.rdb == nil || !l.healthy() {
		return false, ErrUnavailable
	}
	if clicks > l.maxClicks {
		// 单次请求已超过窗口上限，无需访问Redis
		return false, nil
	}

	now := l.now()
	key := keyPrefix + userID
	minScore := float64(now.Add(-l.window).UnixMicro())
	id, err := generateUniqueID(now)
	if err != nil {
		return false, fmt.Errorf("生成 memberID 失败: %w", err)
	}
	member := encodeMember(id, clicks)

	// 使用Redis事务(TxPipeline)来保证清理、写入和读取的原子性
	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%f", minScore))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMicro()), Member: member})
	pipe.Expire(ctx, key, l.window+time.Minute)
	membersCmd := pipe.ZRange(ctx, key, 0, -1)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("执行频率限制事务失败: %w", err)
	}

	members, err := membersCmd.Result()
	if err != nil {
		l.compensate(ctx, key, member)
		return false, fmt.Errorf("获取窗口内点击数失败: %w", err)
	}

	var total int64
	for _, m := range members {
		total += clicksOf(m)
	}
	if total > l.maxClicks {
		l.compensate(ctx, key, member)
		return false, nil
	}
	return true, nil
}

// compensate 撤销本次写入的成员，被拒绝的请求不占用额度
func (l *ClickLimiter) compensate(ctx context.Context, key, member string) {
	if err := l.rdb.ZRem(ctx, key, member).Err(); err != nil {
		l.log.Warn("频率限制补偿操作失败", zap.String("key", key), zap.Error(err))
	}
}
