package achievement

import (
	"fmt"
	"sort"
)

// Catalog 是一份按阈值升序排列的只读成就列表
type Catalog struct {
	items []Achievement
	byID  map[uint]Achievement
}

// NewCatalog 复制并排序给定的成就。ID为0的项按排序后的位置分配ID（从1开始）。
func NewCatalog(items []Achievement) (*Catalog, error) {
	sorted := make([]Achievement, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Threshold < sorted[j].Threshold
	})

	c := &Catalog{items: sorted, byID: make(map[uint]Achievement, len(sorted))}
	seenThreshold := make(map[int64]bool, len(sorted))
	for i := range c.items {
		a := &c.items[i]
		if a.Threshold <= 0 {
			return nil, fmt.Errorf("成就 '%s' 的阈值必须为正数: %d", a.Title, a.Threshold)
		}
		if seenThreshold[a.Threshold] {
			return nil, fmt.Errorf("成就阈值重复: %d", a.Threshold)
		}
		seenThreshold[a.Threshold] = true
		if a.ID == 0 {
			a.ID = uint(i + 1)
		}
		if _, dup := c.byID[a.ID]; dup {
			return nil, fmt.Errorf("成就ID重复: %d", a.ID)
		}
		c.byID[a.ID] = *a
	}
	return c, nil
}

// All 返回按阈值升序排列的成就副本
func (c *Catalog) All() []Achievement {
	out := make([]Achievement, len(c.items))
	copy(out, c.items)
	return out
}

// Get 按ID查找
func (c *Catalog) Get(id uint) (Achievement, bool) {
	a, ok := c.byID[id]
	return a, ok
}

// Len 返回成就数量
func (c *Catalog) Len() int {
	return len(c.items)
}

// Eligible 返回累计点击数为 clicks 时已达标但尚未持有的成就，按阈值升序。
func (c *Catalog) Eligible(clicks int64, held map[uint]bool) []Achievement {
	var out []Achievement
	for _, a := range c.items {
		if a.Threshold > clicks {
			break
		}
		if held[a.ID] {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Resolve 将一组已持有的成就ID转换为成就，按阈值降序排列。未知ID被忽略。
func (c *Catalog) Resolve(ids []uint) []Achievement {
	out := make([]Achievement, 0, len(ids))
	for _, id := range ids {
		if a, ok := c.byID[id]; ok {
			out = append(out, a)
		}
	}
	SortDescending(out)
	return out
}

// SortAscending 按阈值升序排列
func SortAscending(items []Achievement) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Threshold < items[j].Threshold
	})
}

// SortDescending 按阈值降序排列
func SortDescending(items []Achievement) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Threshold > items[j].Threshold
	})
}
