// Package index stores the disjoint cuboids of the current "on" region and
// answers overlap queries against them. Implementations (face maps, R-tree)
// sit behind the Index interface so the engine can swap backends without
// changing the reconciliation logic.
package index

import (
	"errors"
	"fmt"

	"github.com/chazu/cubeset/pkg/cuboid"
)

// ErrUnknownID is returned by Remove for an identifier that is not stored.
// It always indicates an index-maintenance bug in the caller.
var ErrUnknownID = errors.New("unknown cuboid identifier")

// ID identifies a stored cuboid. Identifiers are never reused while live and
// carry no meaning beyond that.
type ID uint64

// Overlap pairs a stored cuboid with its intersection with a query.
type Overlap struct {
	ID     ID
	Stored cuboid.Cuboid
	Common cuboid.Cuboid
}

// Index is the spatial index abstraction. Implementations are not safe for
// concurrent use; a single owner drives all updates.
type Index interface {
	// Insert stores c under a fresh identifier. It does not check c against
	// stored cuboids; keeping the set disjoint is the caller's job.
	Insert(c cuboid.Cuboid) (ID, error)

	// Remove deletes id from every internal structure and returns the
	// cuboid that was stored under it.
	Remove(id ID) (cuboid.Cuboid, error)

	// Get returns the cuboid stored under id.
	Get(id ID) (cuboid.Cuboid, bool)

	// Candidates returns a superset of the identifiers whose cuboids
	// intersect q, in ascending identifier order.
	Candidates(q cuboid.Cuboid) []ID

	// Overlaps returns exactly the stored cuboids that intersect q, in
	// ascending identifier order. It may rely on the stored set being
	// pairwise disjoint.
	Overlaps(q cuboid.Cuboid) []Overlap

	// Len returns the number of stored cuboids.
	Len() int

	// Cuboids returns a snapshot of every stored cuboid.
	Cuboids() []cuboid.Cuboid
}

// Kind names an Index implementation.
type Kind string

const (
	KindFace  Kind = "face"
	KindRTree Kind = "rtree"
)

// Kinds lists the selectable implementations.
var Kinds = []Kind{KindFace, KindRTree}

// New returns an empty index of the given kind. An empty kind selects the
// face-map index.
func New(kind Kind) (Index, error) {
	switch kind {
	case KindFace, "":
		return NewFaceIndex(), nil
	case KindRTree:
		return NewRTreeIndex(), nil
	}
	return nil, fmt.Errorf("unknown index kind %q, expected one of %v", kind, Kinds)
}

// refine turns candidate identifiers into exact overlaps.
func refine(idx Index, q cuboid.Cuboid, ids []ID) []Overlap {
	var out []Overlap
	for _, id := range ids {
		c, ok := idx.Get(id)
		if !ok {
			continue
		}
		if o, ok := cuboid.Intersect(c, q); ok {
			out = append(out, Overlap{ID: id, Stored: c, Common: o})
		}
	}
	return out
}
