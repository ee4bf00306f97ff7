package health

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// State 定义了系统健康状态的枚举类型
type State int

const (
	StateHealthy State = iota
	// StateDegraded 表示Redis不可用：点击照常记录，但频率限制暂停
	StateDegraded
	// StateUnavailable 表示数据库不可用，统计接口无法工作
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	default:
		return "unavailable"
	}
}

// statusManager 负责线程安全地管理和提供系统的健康状态。
type statusManager struct {
	mu           sync.RWMutex
	currentState State
	redisOK      bool
	databaseOK   bool
	checkedAt    time.Time
	log          *zap.Logger
}

func newStatusManager(log *zap.Logger) *statusManager {
	return &statusManager{
		currentState: StateHealthy,
		redisOK:      true,
		databaseOK:   true,
		log:          log,
	}
}

// Assess 根据一次检查的结果决定新的状态，返回状态是否发生变化
func (sm *statusManager) Assess(redisOK, databaseOK bool, at time.Time) (changed bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	next := StateHealthy
	switch {
	case !databaseOK:
		next = StateUnavailable
	case !redisOK:
		next = StateDegraded
	}

	if sm.redisOK != redisOK {
		if redisOK {
			sm.log.Info("健康检查: Redis连接已恢复")
		} else {
			sm.log.Warn("健康检查: Redis连接丢失，频率限制暂停")
		}
	}
	if sm.databaseOK != databaseOK {
		if databaseOK {
			sm.log.Info("健康检查: 数据库连接已恢复")
		} else {
			sm.log.Error("健康检查: 数据库连接丢失")
		}
	}

	changed = sm.currentState != next
	if changed {
		sm.log.Info("健康检查: 系统状态变更",
			zap.Stringer("from", sm.currentState), zap.Stringer("to", next))
	}
	sm.currentState = next
	sm.redisOK = redisOK
	sm.databaseOK = databaseOK
	sm.checkedAt = at
	return changed
}

// Report 是某一时刻的健康状态快照
type Report struct {
	State     string    `json:"state"`
	Redis     bool      `json:"redis"`
	Database  bool      `json:"database"`
	CheckedAt time.Time `json:"checked_at"`
}

func (sm *statusManager) snapshot() Report {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return Report{
		State:     sm.currentState.String(),
		Redis:     sm.redisOK,
		Database:  sm.databaseOK,
		CheckedAt: sm.checkedAt,
	}
}

func (sm *statusManager) state() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}
