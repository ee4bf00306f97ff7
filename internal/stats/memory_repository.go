package stats

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryStore 是进程内的存储实现，用于测试和不需要持久化的本地运行。
// 事务通过互斥锁串行执行，失败时按撤销日志回滚。
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
	// failNext 注入下一次事务的错误，用于测试回滚
	failNext error
}

type memState struct {
	users  map[string]*UserStats
	global GlobalStats
	events []ClickEvent
	grants map[string]map[uint]bool
	nextID uint
}

// NewMemoryStore 创建空存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{
			users:  make(map[string]*UserStats),
			global: GlobalStats{ID: globalStatsID},
			grants: make(map[string]map[uint]bool),
		},
	}
}

// FailNextTx 让下一次事务在提交前返回 err 并回滚
func (s *MemoryStore) FailNextTx(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// EventCount 返回某个用户的点击记录数
func (s *MemoryStore) EventCount(userID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, e := range s.state.events {
		if e.UserID == userID {
			n++
		}
	}
	return n
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{state: s.state}
	err := fn(tx)
	if err == nil && s.failNext != nil {
		err = s.failNext
		s.failNext = nil
	}
	if err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *MemoryStore) GetUserStats(ctx context.Context, userID string) (*UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.getUserStats(userID), nil
}

func (s *MemoryStore) GetGlobalStats(ctx context.Context) (GlobalStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.global, nil
}

func (s *MemoryStore) DenseRank(ctx context.Context, userID string) (*int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.denseRank(userID), nil
}

func (s *MemoryStore) HeldAchievementIDs(ctx context.Context, userID string) ([]uint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.heldIDs(userID), nil
}

func (s *MemoryStore) TopUsers(ctx context.Context, limit int) ([]UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.topUsers(limit), nil
}

// --- 状态访问，调用方负责加锁 ---

func (st *memState) getUserStats(userID string) *UserStats {
	u, ok := st.users[userID]
	if !ok {
		return nil
	}
	cp := *u
	if u.LastClickDate != nil {
		d := *u.LastClickDate
		cp.LastClickDate = &d
	}
	return &cp
}

func (st *memState) denseRank(userID string) *int64 {
	u, ok := st.users[userID]
	if !ok {
		return nil
	}
	totals := make([]int64, 0, len(st.users))
	for _, other := range st.users {
		totals = append(totals, other.TotalClicks)
	}
	rank := DenseRankOf(totals, u.TotalClicks)
	return &rank
}

func (st *memState) heldIDs(userID string) []uint {
	held := st.grants[userID]
	ids := make([]uint, 0, len(held))
	for id := range held {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (st *memState) topUsers(limit int) []UserStats {
	rows := make([]UserStats, 0, len(st.users))
	for id := range st.users {
		rows = append(rows, *st.getUserStats(id))
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalClicks != rows[j].TotalClicks {
			return rows[i].TotalClicks > rows[j].TotalClicks
		}
		return rows[i].UserID < rows[j].UserID
	})
	if limit >= 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// --- 事务 ---

type memTx struct {
	state *memState
	undo  []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) GetUserStats(ctx context.Context, userID string) (*UserStats, error) {
	return t.state.getUserStats(userID), nil
}

func (t *memTx) GetGlobalStats(ctx context.Context) (GlobalStats, error) {
	return t.state.global, nil
}

func (t *memTx) DenseRank(ctx context.Context, userID string) (*int64, error) {
	return t.state.denseRank(userID), nil
}

func (t *memTx) HeldAchievementIDs(ctx context.Context, userID string) ([]uint, error) {
	return t.state.heldIDs(userID), nil
}

func (t *memTx) TopUsers(ctx context.Context, limit int) ([]UserStats, error) {
	return t.state.topUsers(limit), nil
}

func (t *memTx) AppendClicks(ctx context.Context, userID string, count int64, at time.Time) error {
	if count <= 0 {
		return nil
	}
	st := t.state
	prevLen, prevID := len(st.events), st.nextID
	for i := int64(0); i < count; i++ {
		st.nextID++
		st.events = append(st.events, ClickEvent{ID: st.nextID, UserID: userID, CreatedAt: at})
	}
	t.undo = append(t.undo, func() {
		st.events = st.events[:prevLen]
		st.nextID = prevID
	})
	return nil
}

func (t *memTx) UpsertUserStats(ctx context.Context, userID string, clicks int64, today, yesterday string) (UserStats, bool, error) {
	st := t.state
	u, ok := st.users[userID]
	if !ok {
		d := today
		st.users[userID] = &UserStats{
			UserID:        userID,
			TotalClicks:   clicks,
			StreakDays:    1,
			LastClickDate: &d,
		}
		t.undo = append(t.undo, func() { delete(st.users, userID) })
		return *st.getUserStats(userID), true, nil
	}

	prev := *u
	u.StreakDays = NextStreak(u.StreakDays, u.LastClickDate, today, yesterday)
	u.TotalClicks += clicks
	d := today
	u.LastClickDate = &d
	t.undo = append(t.undo, func() { *u = prev })
	return *st.getUserStats(userID), false, nil
}

func (t *memTx) AddGlobal(ctx context.Context, spamCount, newUsers int64) error {
	st := t.state
	prev := st.global
	st.global.TotalSpamCount += spamCount
	st.global.TotalUsers += newUsers
	t.undo = append(t.undo, func() { st.global = prev })
	return nil
}

func (t *memTx) GrantAchievement(ctx context.Context, userID string, achievementID uint) (bool, error) {
	if achievementID == 0 {
		return false, errors.New("授予成就失败: 无效的成就ID")
	}
	st := t.state
	held, ok := st.grants[userID]
	if !ok {
		held = make(map[uint]bool)
		st.grants[userID] = held
	}
	if held[achievementID] {
		return false, nil
	}
	held[achievementID] = true
	t.undo = append(t.undo, func() {
		delete(held, achievementID)
		if len(held) == 0 {
			delete(st.grants, userID)
		}
	})
	return true, nil
}
