package stats

import (
	"errors"
)

// Status 表示一次读取操作的整体结果
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// Result 包装一次子读取的值与错误。失败时 Value 为零值，由调用方填入默认值。
type Result[T any] struct {
	Value T
	Err   error
}

// OK 报告子读取是否成功
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Or 在失败时返回 fallback
func (r Result[T]) Or(fallback T) T {
	if r.Err != nil {
		return fallback
	}
	return r.Value
}

func fetch[T any](fn func() (T, error)) Result[T] {
	v, err := fn()
	return Result[T]{Value: v, Err: err}
}

// partial 汇总一组子读取的结果
type partial struct {
	failed []string
	errs   []error
}

func (p *partial) track(name string, err error) {
	if err == nil {
		return
	}
	p.failed = append(p.failed, name)
	p.errs = append(p.errs, err)
}

func (p *partial) status(total int) Status {
	switch len(p.failed) {
	case 0:
		return StatusOK
	case total:
		return StatusFailed
	default:
		return StatusDegraded
	}
}

func (p *partial) err() error {
	return errors.Join(p.errs...)
}
