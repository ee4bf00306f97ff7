package stats

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NormalizeClickCount 把请求中的 clickCount 转换为不小于1的整数。
// 缺省、null、无法解析的值按1处理；数字截断小数部分；字符串取开头的整数部分。
func NormalizeClickCount(raw json.RawMessage) int64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 1
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 1
	}

	var n int64
	switch x := v.(type) {
	case json.Number:
		n = numberToInt(x)
	case string:
		n = leadingInt(x)
	default:
		n = 1
	}
	return ClampClicks(n, 0)
}

// ClampClicks 将点击数下限设为1；limit 大于0时同时作为上限
func ClampClicks(n, limit int64) int64 {
	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}

func numberToInt(num json.Number) int64 {
	if i, err := num.Int64(); err == nil {
		return i
	}
	f, err := num.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 1
	}
	// 超出int64的数字在文本化后为指数形式，只保留开头的整数位
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return leadingInt(num.String())
	}
	return int64(f)
}

// leadingInt 解析字符串开头的十进制整数，例如 "12abc" 为 12，"abc" 为 0
func leadingInt(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		// 溢出时按符号取边界
		if s[0] == '-' {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return n
}
