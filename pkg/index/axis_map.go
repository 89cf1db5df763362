package index

import "github.com/google/btree"

// btreeDegree is the branching factor of every face map.
const btreeDegree = 32

// faceEntry holds the identifiers sharing one face coordinate.
type faceEntry struct {
	coord int64
	ids   map[ID]struct{}
}

func lessFaceEntry(a, b *faceEntry) bool {
	return a.coord < b.coord
}

// axisMap is an ordered map from a face coordinate to the set of
// identifiers whose cuboid has that coordinate on the face.
type axisMap struct {
	tree *btree.BTreeG[*faceEntry]
	size int
}

func newAxisMap() *axisMap {
	return &axisMap{tree: btree.NewG(btreeDegree, lessFaceEntry)}
}

// add registers id under coord.
func (m *axisMap) add(coord int64, id ID) {
	e, ok := m.tree.Get(&faceEntry{coord: coord})
	if !ok {
		e = &faceEntry{coord: coord, ids: make(map[ID]struct{}, 1)}
		m.tree.ReplaceOrInsert(e)
	}
	if _, dup := e.ids[id]; !dup {
		e.ids[id] = struct{}{}
		m.size++
	}
}

// remove unregisters id from coord and reports whether it was present.
// Coordinates left without identifiers are dropped from the tree.
func (m *axisMap) remove(coord int64, id ID) bool {
	e, ok := m.tree.Get(&faceEntry{coord: coord})
	if !ok {
		return false
	}
	if _, ok := e.ids[id]; !ok {
		return false
	}
	delete(e.ids, id)
	m.size--
	if len(e.ids) == 0 {
		m.tree.Delete(e)
	}
	return true
}

// ascend calls fn for every identifier whose coordinate lies in the closed
// range [lo, hi], in ascending coordinate order. Iteration stops early if
// fn returns false.
func (m *axisMap) ascend(lo, hi int64, fn func(coord int64, id ID) bool) {
	if lo > hi {
		return
	}
	m.tree.AscendGreaterOrEqual(&faceEntry{coord: lo}, func(e *faceEntry) bool {
		if e.coord > hi {
			return false
		}
		for id := range e.ids {
			if !fn(e.coord, id) {
				return false
			}
		}
		return true
	})
}

// len returns the number of (coordinate, identifier) registrations.
func (m *axisMap) len() int {
	return m.size
}

// coords returns the number of distinct coordinates.
func (m *axisMap) coords() int {
	return m.tree.Len()
}
