package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func collect(m *axisMap, lo, hi int64) map[ID]int64 {
	got := make(map[ID]int64)
	m.ascend(lo, hi, func(coord int64, id ID) bool {
		got[id] = coord
		return true
	})
	return got
}

func TestAxisMapRange(t *testing.T) {
	m := newAxisMap()
	m.add(-5, 1)
	m.add(0, 2)
	m.add(0, 3)
	m.add(7, 4)
	m.add(12, 5)

	tests := []struct {
		name   string
		lo, hi int64
		want   map[ID]int64
	}{
		{"all", -100, 100, map[ID]int64{1: -5, 2: 0, 3: 0, 4: 7, 5: 12}},
		{"inclusive bounds", 0, 7, map[ID]int64{2: 0, 3: 0, 4: 7}},
		{"single coordinate", 12, 12, map[ID]int64{5: 12}},
		{"gap", 1, 6, map[ID]int64{}},
		{"empty range", 7, 0, map[ID]int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collect(m, tt.lo, tt.hi))
		})
	}
}

func TestAxisMapRemove(t *testing.T) {
	m := newAxisMap()
	m.add(3, 1)
	m.add(3, 2)
	assert.Equal(t, 2, m.len())
	assert.Equal(t, 1, m.coords())

	assert.True(t, m.remove(3, 1))
	assert.False(t, m.remove(3, 1), "second remove of the same id")
	assert.False(t, m.remove(4, 2), "wrong coordinate")
	assert.Equal(t, map[ID]int64{2: 3}, collect(m, 0, 10))

	assert.True(t, m.remove(3, 2))
	assert.Equal(t, 0, m.len())
	assert.Equal(t, 0, m.coords(), "empty coordinates are dropped")
}

func TestAxisMapDuplicateAdd(t *testing.T) {
	m := newAxisMap()
	m.add(1, 9)
	m.add(1, 9)
	assert.Equal(t, 1, m.len())
}

func TestAxisMapEarlyStop(t *testing.T) {
	m := newAxisMap()
	for i := int64(0); i < 10; i++ {
		m.add(i, ID(i))
	}
	n := 0
	m.ascend(0, 9, func(int64, ID) bool {
		n++
		return n < 3
	})
	assert.Equal(t, 3, n)
}
