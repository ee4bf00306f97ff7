package stats

import (
	"errors"
	"fmt"
)

// Kind 区分错误的来源，决定处理器返回的提示信息与状态码
type Kind int

const (
	KindValidation Kind = iota + 1
	KindStore
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStore:
		return "store"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// 哨兵错误，配合 errors.Is 使用
var (
	ErrValidation  = errors.New("validation error")
	ErrStore       = errors.New("store error")
	ErrRateLimited = errors.New("rate limited")

	ErrMissingUserID = errors.New("user id is required")
)

// Error 是本包对外返回的错误类型
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 让 errors.Is(err, ErrValidation) 等按 Kind 匹配
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrStore:
		return e.Kind == KindStore
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	}
	return false
}

func validationError(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

func storeError(op string, err error) error {
	return &Error{Kind: KindStore, Op: op, Err: err}
}

// KindOf 返回错误的类别，非本包错误返回0
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
