package stats

import (
	"time"
)

// DateLayout 是 last_click_date 的存储格式
const DateLayout = "2006-01-02"

// Clock 提供当前时间，测试中可替换
type Clock interface {
	Now() time.Time
}

// SystemClock 使用系统时间
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Calendar 将时间点换算为指定时区下的日历日期
type Calendar struct {
	Clock    Clock
	Location *time.Location
}

// Days 返回"今天"和"昨天"的日期字符串
func (c Calendar) Days() (now time.Time, today, yesterday string) {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	now = c.Clock.Now()
	local := now.In(loc)
	// 按日历日回退一天，避免夏令时切换日不是24小时
	prev := time.Date(local.Year(), local.Month(), local.Day()-1, 12, 0, 0, 0, loc)
	return now, local.Format(DateLayout), prev.Format(DateLayout)
}

// NextStreak 根据上次点击日期计算新的连续天数。
// 同一天保持不变，昨天则加一，其余情况（包括从未点击）重置为1。
func NextStreak(current int64, lastClickDate *string, today, yesterday string) int64 {
	if lastClickDate == nil {
		return 1
	}
	switch *lastClickDate {
	case today:
		if current < 1 {
			return 1
		}
		return current
	case yesterday:
		return current + 1
	default:
		return 1
	}
}
