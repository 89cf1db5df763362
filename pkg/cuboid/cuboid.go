// Package cuboid defines the closed axis-aligned integer box used throughout
// cubeset, together with the set operations the reconciliation engine is
// built on: intersection and subtraction.
package cuboid

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

var (
	// ErrInvalidCuboid is returned when a cuboid has min > max on some axis.
	ErrInvalidCuboid = errors.New("invalid cuboid")

	// ErrVolumeOverflow is returned when a volume does not fit in an int64.
	ErrVolumeOverflow = errors.New("volume overflows int64")
)

// Axis selects one of the three coordinate axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Axes lists every axis in x, y, z order.
var Axes = [3]Axis{AxisX, AxisY, AxisZ}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "unknown"
	}
}

// Cuboid is a closed box of integer lattice points. Both bounds of every
// axis are inclusive. Cuboids are values; operations never modify their
// receiver.
type Cuboid struct {
	XMin, XMax int64
	YMin, YMax int64
	ZMin, ZMax int64
}

// New builds a cuboid and validates it.
func New(xMin, xMax, yMin, yMax, zMin, zMax int64) (Cuboid, error) {
	c := Cuboid{xMin, xMax, yMin, yMax, zMin, zMax}
	if err := c.Validate(); err != nil {
		return Cuboid{}, err
	}
	return c, nil
}

// Validate returns ErrInvalidCuboid (wrapped with the offending axis) if
// any axis has min > max.
func (c Cuboid) Validate() error {
	for _, a := range Axes {
		if c.Min(a) > c.Max(a) {
			return fmt.Errorf("%w: %s=%d..%d", ErrInvalidCuboid, a, c.Min(a), c.Max(a))
		}
	}
	return nil
}

// Valid reports whether every axis range is non-empty.
func (c Cuboid) Valid() bool {
	return c.XMin <= c.XMax && c.YMin <= c.YMax && c.ZMin <= c.ZMax
}

// Min returns the lower bound on axis a.
func (c Cuboid) Min(a Axis) int64 {
	switch a {
	case AxisX:
		return c.XMin
	case AxisY:
		return c.YMin
	default:
		return c.ZMin
	}
}

// Max returns the upper bound on axis a.
func (c Cuboid) Max(a Axis) int64 {
	switch a {
	case AxisX:
		return c.XMax
	case AxisY:
		return c.YMax
	default:
		return c.ZMax
	}
}

// Extent returns the number of lattice points along axis a.
func (c Cuboid) Extent(a Axis) (uint64, error) {
	lo, hi := c.Min(a), c.Max(a)
	if lo > hi {
		return 0, fmt.Errorf("%w: %s=%d..%d", ErrInvalidCuboid, a, lo, hi)
	}
	// hi-lo computed in uint64 cannot wrap for lo <= hi.
	n := uint64(hi) - uint64(lo)
	if n == math.MaxUint64 {
		return 0, ErrVolumeOverflow
	}
	return n + 1, nil
}

// Volume returns the number of lattice points in c.
func (c Cuboid) Volume() (int64, error) {
	v := uint64(1)
	for _, a := range Axes {
		n, err := c.Extent(a)
		if err != nil {
			return 0, err
		}
		hi, lo := bits.Mul64(v, n)
		if hi != 0 || lo > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %s", ErrVolumeOverflow, c)
		}
		v = lo
	}
	return int64(v), nil
}

// Contains reports whether o lies entirely inside c.
func (c Cuboid) Contains(o Cuboid) bool {
	return c.XMin <= o.XMin && o.XMax <= c.XMax &&
		c.YMin <= o.YMin && o.YMax <= c.YMax &&
		c.ZMin <= o.ZMin && o.ZMax <= c.ZMax
}

// String renders c in the reboot step syntax, e.g. "x=1..2,y=3..4,z=5..6".
func (c Cuboid) String() string {
	return fmt.Sprintf("x=%d..%d,y=%d..%d,z=%d..%d", c.XMin, c.XMax, c.YMin, c.YMax, c.ZMin, c.ZMax)
}

// Intersect returns the cuboid common to a and b. The second result is
// false when they share no lattice point.
func Intersect(a, b Cuboid) (Cuboid, bool) {
	o := Cuboid{
		XMin: max(a.XMin, b.XMin), XMax: min(a.XMax, b.XMax),
		YMin: max(a.YMin, b.YMin), YMax: min(a.YMax, b.YMax),
		ZMin: max(a.ZMin, b.ZMin), ZMax: min(a.ZMax, b.ZMax),
	}
	if !o.Valid() {
		return Cuboid{}, false
	}
	return o, true
}

// Overlaps reports whether a and b share at least one lattice point.
func Overlaps(a, b Cuboid) bool {
	_, ok := Intersect(a, b)
	return ok
}

// segment is a closed 1-D range; empty segments have lo > hi.
type segment struct{ lo, hi int64 }

var emptySegment = segment{1, 0}

// split cuts [lo, hi] into the parts before, inside and after [olo, ohi].
// The caller guarantees lo <= olo <= ohi <= hi, so the ±1 steps below
// cannot wrap.
func split(lo, hi, olo, ohi int64) [3]segment {
	s := [3]segment{emptySegment, {olo, ohi}, emptySegment}
	if lo < olo {
		s[0] = segment{lo, olo - 1}
	}
	if ohi < hi {
		s[2] = segment{ohi + 1, hi}
	}
	return s
}

// Subtract returns the part of a not covered by b as a list of pairwise
// disjoint cuboids. When a and b do not overlap the result is [a]; when b
// covers a it is empty. At most 26 fragments are produced.
func Subtract(a, b Cuboid) []Cuboid {
	o, ok := Intersect(a, b)
	if !ok {
		return []Cuboid{a}
	}
	if o == a {
		return nil
	}

	xs := split(a.XMin, a.XMax, o.XMin, o.XMax)
	ys := split(a.YMin, a.YMax, o.YMin, o.YMax)
	zs := split(a.ZMin, a.ZMax, o.ZMin, o.ZMax)

	out := make([]Cuboid, 0, 26)
	for _, x := range xs {
		if x.lo > x.hi {
			continue
		}
		for _, y := range ys {
			if y.lo > y.hi {
				continue
			}
			for _, z := range zs {
				if z.lo > z.hi {
					continue
				}
				f := Cuboid{x.lo, x.hi, y.lo, y.hi, z.lo, z.hi}
				if f == o {
					continue
				}
				out = append(out, f)
			}
		}
	}
	return out
}
