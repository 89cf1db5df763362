package index

import (
	"fmt"
	"math"
	"slices"

	"github.com/chazu/cubeset/pkg/cuboid"
)

// Compile-time interface check.
var _ Index = (*FaceIndex)(nil)

// Face is one of the six bounding planes of a cuboid.
type Face int

const (
	FaceXMin Face = iota
	FaceXMax
	FaceYMin
	FaceYMax
	FaceZMin
	FaceZMax
	numFaces
)

// Axis returns the axis the face is perpendicular to.
func (f Face) Axis() cuboid.Axis {
	return cuboid.Axis(f / 2)
}

// Coord returns the coordinate of face f of c.
func (f Face) Coord(c cuboid.Cuboid) int64 {
	if f%2 == 0 {
		return c.Min(f.Axis())
	}
	return c.Max(f.Axis())
}

func (f Face) String() string {
	bound := "min"
	if f%2 == 1 {
		bound = "max"
	}
	return f.Axis().String() + "_" + bound
}

// FaceIndex keeps the stored cuboids in a map keyed by identifier plus one
// ordered map per face coordinate. A query range-scans the six face maps,
// so only cuboids with a face inside the query are visited instead of the
// whole store.
//
// All seven structures are updated inside Insert and Remove; nothing else
// writes to them.
type FaceIndex struct {
	nextID ID
	store  map[ID]cuboid.Cuboid
	faces  [numFaces]*axisMap

	// maxSpan[a] bounds max-min on axis a over every cuboid ever inserted.
	// It never shrinks, which keeps the enclosure scan sound.
	maxSpan [3]uint64
}

// NewFaceIndex returns an empty FaceIndex.
func NewFaceIndex() *FaceIndex {
	fi := &FaceIndex{store: make(map[ID]cuboid.Cuboid)}
	for f := range fi.faces {
		fi.faces[f] = newAxisMap()
	}
	return fi
}

// Insert stores c under a fresh identifier.
func (fi *FaceIndex) Insert(c cuboid.Cuboid) (ID, error) {
	if err := c.Validate(); err != nil {
		return 0, fmt.Errorf("index insert: %w", err)
	}
	id := fi.nextID
	fi.nextID++

	fi.store[id] = c
	for f := Face(0); f < numFaces; f++ {
		fi.faces[f].add(f.Coord(c), id)
	}
	for _, a := range cuboid.Axes {
		span := uint64(c.Max(a)) - uint64(c.Min(a))
		fi.maxSpan[a] = max(fi.maxSpan[a], span)
	}
	return id, nil
}

// Remove deletes id from the store and from all six face maps.
func (fi *FaceIndex) Remove(id ID) (cuboid.Cuboid, error) {
	c, ok := fi.store[id]
	if !ok {
		return cuboid.Cuboid{}, fmt.Errorf("index remove %d: %w", id, ErrUnknownID)
	}
	for f := Face(0); f < numFaces; f++ {
		if !fi.faces[f].remove(f.Coord(c), id) {
			panic(fmt.Sprintf("index: id %d missing from %s map at %d", id, f, f.Coord(c)))
		}
	}
	delete(fi.store, id)
	return c, nil
}

// Get returns the cuboid stored under id.
func (fi *FaceIndex) Get(id ID) (cuboid.Cuboid, bool) {
	c, ok := fi.store[id]
	return c, ok
}

// Len returns the number of stored cuboids.
func (fi *FaceIndex) Len() int {
	return len(fi.store)
}

// Cuboids returns the stored cuboids in identifier order.
func (fi *FaceIndex) Cuboids() []cuboid.Cuboid {
	ids := make([]ID, 0, len(fi.store))
	for id := range fi.store {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]cuboid.Cuboid, len(ids))
	for i, id := range ids {
		out[i] = fi.store[id]
	}
	return out
}

// faceCandidates collects every identifier with at least one face
// coordinate inside q's range on that face's axis.
func (fi *FaceIndex) faceCandidates(q cuboid.Cuboid, set map[ID]struct{}) {
	for f := Face(0); f < numFaces; f++ {
		a := f.Axis()
		fi.faces[f].ascend(q.Min(a), q.Max(a), func(_ int64, id ID) bool {
			set[id] = struct{}{}
			return true
		})
	}
}

// enclosing adds the stored cuboids that contain q. Such a cuboid has no
// face inside q's ranges, so the face scan cannot see it. Its min face on
// the narrowest axis lies in [q.max-maxSpan, q.min), which bounds the scan.
func (fi *FaceIndex) enclosing(q cuboid.Cuboid, set map[ID]struct{}) {
	a := cuboid.AxisX
	for _, b := range cuboid.Axes[1:] {
		if fi.maxSpan[b] < fi.maxSpan[a] {
			a = b
		}
	}
	if q.Min(a) == math.MinInt64 {
		return
	}
	lo := saturatingSub(q.Max(a), fi.maxSpan[a])
	hi := q.Min(a) - 1
	fi.faces[Face(a)*2].ascend(lo, hi, func(_ int64, id ID) bool {
		if fi.store[id].Contains(q) {
			set[id] = struct{}{}
		}
		return true
	})
}

// Candidates returns every identifier that may intersect q: those with a
// face inside the query ranges plus any cuboid enclosing q.
func (fi *FaceIndex) Candidates(q cuboid.Cuboid) []ID {
	set := make(map[ID]struct{})
	fi.faceCandidates(q, set)
	fi.enclosing(q, set)
	return sortedIDs(set)
}

// Overlaps returns the stored cuboids intersecting q. The enclosure scan is
// skipped when the face scan already found an overlap: a cuboid enclosing q
// would intersect that overlap too, which the disjoint store rules out.
func (fi *FaceIndex) Overlaps(q cuboid.Cuboid) []Overlap {
	set := make(map[ID]struct{})
	fi.faceCandidates(q, set)
	if out := refine(fi, q, sortedIDs(set)); len(out) > 0 {
		return out
	}
	clear(set)
	fi.enclosing(q, set)
	return refine(fi, q, sortedIDs(set))
}

func sortedIDs(set map[ID]struct{}) []ID {
	ids := make([]ID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// saturatingSub returns v-d clamped at math.MinInt64.
func saturatingSub(v int64, d uint64) int64 {
	// Distance from math.MinInt64 up to v.
	room := uint64(v) + 1<<63
	if d > room {
		return math.MinInt64
	}
	return int64(uint64(v) - d)
}
