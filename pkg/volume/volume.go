// Package volume sums the lattice-point volume of a disjoint cuboid region.
package volume

import (
	"fmt"
	"math"

	"github.com/chazu/cubeset/pkg/cuboid"
)

// InitializationArea is the cube the initialization procedure is limited to.
var InitializationArea = cuboid.Cuboid{
	XMin: -50, XMax: 50,
	YMin: -50, YMax: 50,
	ZMin: -50, ZMax: 50,
}

// Total returns the summed volume of cs. The cuboids must be pairwise
// disjoint for the result to be the volume of their union.
func Total(cs []cuboid.Cuboid) (int64, error) {
	var sum int64
	for _, c := range cs {
		v, err := c.Volume()
		if err != nil {
			return 0, err
		}
		if sum, err = add(sum, v); err != nil {
			return 0, err
		}
	}
	return sum, nil
}

// Clipped returns the summed volume of cs restricted to limit. Cuboids that
// do not reach into limit contribute nothing.
func Clipped(cs []cuboid.Cuboid, limit cuboid.Cuboid) (int64, error) {
	if err := limit.Validate(); err != nil {
		return 0, fmt.Errorf("limit: %w", err)
	}
	var sum int64
	for _, c := range cs {
		o, ok := cuboid.Intersect(c, limit)
		if !ok {
			continue
		}
		v, err := o.Volume()
		if err != nil {
			return 0, err
		}
		if sum, err = add(sum, v); err != nil {
			return 0, err
		}
	}
	return sum, nil
}

// add sums two non-negative volumes.
func add(a, b int64) (int64, error) {
	if a > math.MaxInt64-b {
		return 0, fmt.Errorf("%w: sum exceeds %d", cuboid.ErrVolumeOverflow, int64(math.MaxInt64))
	}
	return a + b, nil
}
