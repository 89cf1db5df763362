package index

import (
	"errors"
	"fmt"
	"slices"

	"github.com/chazu/cubeset/pkg/cuboid"
	"github.com/dhconnelly/rtreego"
)

// Compile-time interface checks.
var _ Index = (*RTreeIndex)(nil)
var _ rtreego.Spatial = (*rtreeEntry)(nil)

// maxExactCoord is the largest magnitude a coordinate may have and still be
// represented exactly (plus one) as a float64 rectangle bound.
const maxExactCoord = 1<<52 - 1

// ErrCoordinateRange is returned by RTreeIndex.Insert for coordinates that
// cannot be represented exactly as float64.
var ErrCoordinateRange = errors.New("coordinate out of r-tree range")

// R-tree node fill parameters.
const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
)

// rtreeEntry wraps a stored cuboid for the R-tree. The rectangle is the
// half-open float box [min, max+1) on every axis, so two cuboids sharing a
// lattice point always produce rectangles with a positive-volume overlap.
type rtreeEntry struct {
	id   ID
	c    cuboid.Cuboid
	rect rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (e *rtreeEntry) Bounds() rtreego.Rect {
	return e.rect
}

// RTreeIndex implements Index on top of github.com/dhconnelly/rtreego.
// Overlap pruning is tighter than FaceIndex because an R-tree search
// tests all three axes at once.
type RTreeIndex struct {
	nextID  ID
	tree    *rtreego.Rtree
	entries map[ID]*rtreeEntry
}

// NewRTreeIndex returns an empty RTreeIndex.
func NewRTreeIndex() *RTreeIndex {
	return &RTreeIndex{
		tree:    rtreego.NewTree(3, rtreeMinChildren, rtreeMaxChildren),
		entries: make(map[ID]*rtreeEntry),
	}
}

// toRect converts c into its half-open float rectangle.
func toRect(c cuboid.Cuboid) (rtreego.Rect, error) {
	p := make(rtreego.Point, 3)
	lengths := make([]float64, 3)
	for i, a := range cuboid.Axes {
		lo, hi := c.Min(a), c.Max(a)
		if lo < -maxExactCoord || hi > maxExactCoord {
			return rtreego.Rect{}, fmt.Errorf("%w: %s", ErrCoordinateRange, c)
		}
		p[i] = float64(lo)
		lengths[i] = float64(hi-lo) + 1
	}
	return rtreego.NewRect(p, lengths)
}

// Insert stores c under a fresh identifier.
func (ri *RTreeIndex) Insert(c cuboid.Cuboid) (ID, error) {
	if err := c.Validate(); err != nil {
		return 0, fmt.Errorf("index insert: %w", err)
	}
	rect, err := toRect(c)
	if err != nil {
		return 0, fmt.Errorf("index insert: %w", err)
	}
	id := ri.nextID
	ri.nextID++

	e := &rtreeEntry{id: id, c: c, rect: rect}
	ri.entries[id] = e
	ri.tree.Insert(e)
	return id, nil
}

// Remove deletes id from the tree and the identifier map.
func (ri *RTreeIndex) Remove(id ID) (cuboid.Cuboid, error) {
	e, ok := ri.entries[id]
	if !ok {
		return cuboid.Cuboid{}, fmt.Errorf("index remove %d: %w", id, ErrUnknownID)
	}
	if !ri.tree.Delete(e) {
		panic(fmt.Sprintf("index: id %d missing from r-tree", id))
	}
	delete(ri.entries, id)
	return e.c, nil
}

// Get returns the cuboid stored under id.
func (ri *RTreeIndex) Get(id ID) (cuboid.Cuboid, bool) {
	e, ok := ri.entries[id]
	if !ok {
		return cuboid.Cuboid{}, false
	}
	return e.c, true
}

// Len returns the number of stored cuboids.
func (ri *RTreeIndex) Len() int {
	return len(ri.entries)
}

// Cuboids returns the stored cuboids in identifier order.
func (ri *RTreeIndex) Cuboids() []cuboid.Cuboid {
	ids := make([]ID, 0, len(ri.entries))
	for id := range ri.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]cuboid.Cuboid, len(ids))
	for i, id := range ids {
		out[i] = ri.entries[id].c
	}
	return out
}

// Candidates returns the identifiers whose rectangles intersect q's.
// A query outside the representable range yields no candidates, which is
// exact because nothing outside that range can be stored.
func (ri *RTreeIndex) Candidates(q cuboid.Cuboid) []ID {
	rect, err := toRect(clampToRange(q))
	if err != nil {
		return nil
	}
	hits := ri.tree.SearchIntersect(rect)
	ids := make([]ID, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.(*rtreeEntry).id)
	}
	slices.Sort(ids)
	return ids
}

// Overlaps returns the stored cuboids intersecting q.
func (ri *RTreeIndex) Overlaps(q cuboid.Cuboid) []Overlap {
	return refine(ri, q, ri.Candidates(q))
}

// clampToRange shrinks q to the representable coordinate range. Returns an
// invalid cuboid if q lies entirely outside it.
func clampToRange(q cuboid.Cuboid) cuboid.Cuboid {
	bound := cuboid.Cuboid{
		XMin: -maxExactCoord, XMax: maxExactCoord,
		YMin: -maxExactCoord, YMax: maxExactCoord,
		ZMin: -maxExactCoord, ZMax: maxExactCoord,
	}
	if c, ok := cuboid.Intersect(q, bound); ok {
		return c
	}
	return cuboid.Cuboid{XMin: 1}
}
