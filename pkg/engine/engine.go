// Package engine applies on/off cuboid commands to a spatial index, keeping
// the stored cuboids pairwise disjoint so that their volumes can simply be
// summed afterwards.
//
// An Engine is single-threaded: commands are applied strictly in order and
// the index is owned exclusively by the engine for the whole run.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/cubeset/pkg/command"
	"github.com/chazu/cubeset/pkg/cuboid"
	"github.com/chazu/cubeset/pkg/index"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// ErrOverlap is returned when invariant checks find two stored cuboids that
// intersect.
var ErrOverlap = errors.New("stored cuboids overlap")

// StepError wraps a failure while applying one command.
type StepError struct {
	Step    int // 1-based position in the command sequence
	Command command.Command
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Step, e.Command, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Stats counts what a run did to the index.
type Stats struct {
	Commands  int `json:"commands"`   // commands applied
	On        int `json:"on"`         // "on" commands
	Off       int `json:"off"`        // "off" commands
	Inserted  int `json:"inserted"`   // cuboids inserted, including reinserted fragments
	Removed   int `json:"removed"`    // cuboids removed by "off" commands
	PeakCount int `json:"peak_count"` // largest number of stored cuboids seen
}

// Region is the final disjoint cuboid set produced by a run.
type Region struct {
	Cuboids []cuboid.Cuboid
	Stats   Stats
}

// Len returns the number of cuboids in the region.
func (r Region) Len() int {
	return len(r.Cuboids)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for per-step debug output.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithInvariantChecks makes the engine verify pairwise disjointness of the
// stored region after every command. This is quadratic in the number of
// stored cuboids and meant for tests and small inputs.
func WithInvariantChecks(on bool) Option {
	return func(e *Engine) {
		e.check = on
	}
}

// Engine reconciles commands against its index.
type Engine struct {
	idx   index.Index
	log   logrus.FieldLogger
	check bool
	step  int
	stats Stats
}

// New returns an engine that owns idx. idx should be empty.
func New(idx index.Index, opts ...Option) *Engine {
	e := &Engine{idx: idx, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stats returns the counters accumulated so far.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Apply reconciles one command against the stored region. Any error leaves
// the engine unusable; there is no partial-state recovery.
func (e *Engine) Apply(cmd command.Command) error {
	e.step++
	if err := e.apply(cmd); err != nil {
		return &StepError{Step: e.step, Command: cmd, Err: err}
	}
	return nil
}

func (e *Engine) apply(cmd command.Command) error {
	r := cmd.Cuboid
	if err := r.Validate(); err != nil {
		return err
	}
	overlaps := e.idx.Overlaps(r)

	var inserted, removed int
	var err error
	if cmd.Flag == command.On {
		e.stats.On++
		inserted, err = e.turnOn(r, overlaps)
	} else {
		e.stats.Off++
		inserted, removed, err = e.turnOff(r, overlaps)
	}
	if err != nil {
		return err
	}

	e.stats.Commands++
	e.stats.Inserted += inserted
	e.stats.Removed += removed
	e.stats.PeakCount = max(e.stats.PeakCount, e.idx.Len())

	e.log.WithFields(logrus.Fields{
		"step":     e.step,
		"flag":     cmd.Flag.String(),
		"overlaps": len(overlaps),
		"inserted": inserted,
		"removed":  removed,
		"stored":   e.idx.Len(),
	}).Debug("applied step")

	if e.check {
		return CheckDisjoint(e.idx.Cuboids())
	}
	return nil
}

// turnOn carves every already-stored cuboid out of r and stores whatever
// remains. Stored cuboids are left untouched.
func (e *Engine) turnOn(r cuboid.Cuboid, overlaps []index.Overlap) (int, error) {
	fragments := []cuboid.Cuboid{r}
	for _, o := range overlaps {
		fragments = lo.FlatMap(fragments, func(f cuboid.Cuboid, _ int) []cuboid.Cuboid {
			return cuboid.Subtract(f, o.Stored)
		})
		if len(fragments) == 0 {
			break
		}
	}
	for _, f := range fragments {
		if _, err := e.idx.Insert(f); err != nil {
			return 0, err
		}
	}
	return len(fragments), nil
}

// turnOff removes every stored cuboid touching r and reinserts the parts of
// it that lie outside r.
func (e *Engine) turnOff(r cuboid.Cuboid, overlaps []index.Overlap) (int, int, error) {
	inserted := 0
	for _, o := range overlaps {
		stored, err := e.idx.Remove(o.ID)
		if err != nil {
			return inserted, 0, err
		}
		for _, f := range cuboid.Subtract(stored, r) {
			if _, err := e.idx.Insert(f); err != nil {
				return inserted, 0, err
			}
			inserted++
		}
	}
	return inserted, len(overlaps), nil
}

// Region snapshots the stored cuboids.
func (e *Engine) Region() Region {
	return Region{Cuboids: e.idx.Cuboids(), Stats: e.stats}
}

// Run applies cmds in order and returns the final region. The context is
// checked between commands; the first error aborts the run.
func (e *Engine) Run(ctx context.Context, cmds []command.Command) (Region, error) {
	for _, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return Region{}, err
		}
		if err := e.Apply(cmd); err != nil {
			return Region{}, err
		}
	}
	return e.Region(), nil
}

// Run processes cmds with a fresh index of the given kind.
func Run(ctx context.Context, kind index.Kind, cmds []command.Command, opts ...Option) (Region, error) {
	idx, err := index.New(kind)
	if err != nil {
		return Region{}, err
	}
	return New(idx, opts...).Run(ctx, cmds)
}

// CheckDisjoint verifies that no two cuboids share a lattice point.
func CheckDisjoint(cs []cuboid.Cuboid) error {
	for i, a := range cs {
		for _, b := range cs[i+1:] {
			if o, ok := cuboid.Intersect(a, b); ok {
				return fmt.Errorf("%w: %s and %s share %s", ErrOverlap, a, b, o)
			}
		}
	}
	return nil
}
