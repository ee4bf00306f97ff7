package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDenseRankOf(t *testing.T) {
	totals := []int64{50, 50, 30}
	assert.Equal(t, int64(1), DenseRankOf(totals, 50))
	assert.Equal(t, int64(2), DenseRankOf(totals, 30))
	assert.Equal(t, int64(3), DenseRankOf(totals, 10))
	assert.Equal(t, int64(1), DenseRankOf(nil, 0))
}

func TestDenseRanks(t *testing.T) {
	assert.Equal(t, []int64{1, 1, 2}, DenseRanks([]int64{50, 50, 30}))
	assert.Equal(t, []int64{1, 2, 2, 2, 3}, DenseRanks([]int64{9, 5, 5, 5, 1}))
	assert.Empty(t, DenseRanks(nil))
}
