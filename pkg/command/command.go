// Package command turns reboot step text into validated on/off cuboid
// commands for the engine.
//
// A step line looks like:
//
//	on x=10..12,y=10..12,z=10..12
//	off x=-48..-32,y=26..41,z=-47..-37
//
// Blank lines and lines starting with '#' are ignored by Parse.
package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/cubeset/pkg/cuboid"
)

// ErrSyntax is wrapped by every malformed-line error.
var ErrSyntax = errors.New("syntax error")

// Flag says whether a command turns its cuboid on or off.
type Flag bool

const (
	Off Flag = false
	On  Flag = true
)

func (f Flag) String() string {
	if f {
		return "on"
	}
	return "off"
}

// ParseFlag accepts "on" or "off".
func ParseFlag(s string) (Flag, error) {
	switch s {
	case "on":
		return On, nil
	case "off":
		return Off, nil
	}
	return Off, fmt.Errorf("%w: flag %q, expected on or off", ErrSyntax, s)
}

// Command is one reboot step.
type Command struct {
	Flag   Flag
	Cuboid cuboid.Cuboid
}

// String renders the command in step syntax.
func (c Command) String() string {
	return c.Flag.String() + " " + c.Cuboid.String()
}

// ParseError reports a malformed line in a step listing.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseLine parses a single step such as "on x=1..2,y=3..4,z=5..6". Axes may
// come in any order but each must appear exactly once.
func ParseLine(line string) (Command, error) {
	flagText, ranges, ok := strings.Cut(strings.TrimSpace(line), " ")
	if !ok {
		return Command{}, fmt.Errorf("%w: %q, expected \"<on|off> x=..,y=..,z=..\"", ErrSyntax, line)
	}
	flag, err := ParseFlag(flagText)
	if err != nil {
		return Command{}, err
	}
	c, err := ParseCuboid(ranges)
	if err != nil {
		return Command{}, err
	}
	return Command{Flag: flag, Cuboid: c}, nil
}

// ParseCuboid parses "x=a..b,y=c..d,z=e..f" and validates the result.
func ParseCuboid(s string) (cuboid.Cuboid, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return cuboid.Cuboid{}, fmt.Errorf("%w: %q, expected three axis ranges", ErrSyntax, s)
	}

	var lo, hi [3]int64
	var seen [3]bool
	for _, part := range parts {
		name, rng, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return cuboid.Cuboid{}, fmt.Errorf("%w: range %q, expected axis=min..max", ErrSyntax, part)
		}
		a, err := parseAxis(name)
		if err != nil {
			return cuboid.Cuboid{}, err
		}
		if seen[a] {
			return cuboid.Cuboid{}, fmt.Errorf("%w: axis %s given twice", ErrSyntax, a)
		}
		seen[a] = true
		lo[a], hi[a], err = parseRange(rng)
		if err != nil {
			return cuboid.Cuboid{}, err
		}
	}
	return cuboid.New(lo[0], hi[0], lo[1], hi[1], lo[2], hi[2])
}

func parseAxis(s string) (cuboid.Axis, error) {
	for _, a := range cuboid.Axes {
		if s == a.String() {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: axis %q, expected x, y or z", ErrSyntax, s)
}

func parseRange(s string) (int64, int64, error) {
	minText, maxText, ok := strings.Cut(s, "..")
	if !ok {
		return 0, 0, fmt.Errorf("%w: range %q, expected min..max", ErrSyntax, s)
	}
	lo, err := strconv.ParseInt(minText, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bound %q: %v", ErrSyntax, minText, err)
	}
	hi, err := strconv.ParseInt(maxText, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bound %q: %v", ErrSyntax, maxText, err)
	}
	return lo, hi, nil
}

// Parse reads one step per line. The first malformed line aborts parsing
// with a *ParseError.
func Parse(r io.Reader) ([]Command, error) {
	var cmds []Command
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		cmd, err := ParseLine(text)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: text, Err: err}
		}
		cmds = append(cmds, cmd)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading steps: %w", err)
	}
	return cmds, nil
}

// ParseString is Parse over a string.
func ParseString(s string) ([]Command, error) {
	return Parse(strings.NewReader(s))
}
