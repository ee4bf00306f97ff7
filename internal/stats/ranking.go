package stats

// DenseRankOf 返回 value 在 totals 中的密集排名：1 + 严格大于它的不同取值个数。
// 相同点击数的用户名次相同，下一个名次不跳号。
func DenseRankOf(totals []int64, value int64) int64 {
	higher := make(map[int64]struct{})
	for _, t := range totals {
		if t > value {
			higher[t] = struct{}{}
		}
	}
	return int64(len(higher)) + 1
}

// DenseRanks 为已按降序排列的 totals 逐个计算密集排名
func DenseRanks(sortedDesc []int64) []int64 {
	ranks := make([]int64, len(sortedDesc))
	var rank int64
	for i, t := range sortedDesc {
		if i == 0 || t != sortedDesc[i-1] {
			rank++
		}
		ranks[i] = rank
	}
	return ranks
}
