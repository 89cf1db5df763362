package script

import (
	"fmt"

	"github.com/chazu/cubeset/pkg/command"
	"github.com/chazu/cubeset/pkg/cuboid"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource converts Lisp ; line comments to the // comments zygomys
// understands. String literals are copied through untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/8)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Collapse ;; and ;;; headers.
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpCuboid wraps a cuboid.Cuboid so it can be bound to a name and passed
// to on/off.
type sexpCuboid struct {
	c cuboid.Cuboid
}

func (s *sexpCuboid) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(cuboid %d %d %d %d %d %d)", s.c.XMin, s.c.XMax, s.c.YMin, s.c.YMax, s.c.ZMin, s.c.ZMax)
}
func (s *sexpCuboid) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toInt64 extracts an integer coordinate. Floats are rejected rather than
// truncated.
func toInt64(s zygo.Sexp) (int64, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// bounds reads six integers x0 x1 y0 y1 z0 z1 into a validated cuboid.
func bounds(args []zygo.Sexp) (cuboid.Cuboid, error) {
	if len(args) != 6 {
		return cuboid.Cuboid{}, fmt.Errorf("expected 6 bounds (x0 x1 y0 y1 z0 z1), got %d", len(args))
	}
	var v [6]int64
	for i, a := range args {
		n, err := toInt64(a)
		if err != nil {
			return cuboid.Cuboid{}, fmt.Errorf("bound %d: %w", i+1, err)
		}
		v[i] = n
	}
	return cuboid.New(v[0], v[1], v[2], v[3], v[4], v[5])
}

// toCuboid accepts either a single cuboid value or six integer bounds.
func toCuboid(args []zygo.Sexp) (cuboid.Cuboid, error) {
	if len(args) == 1 {
		if c, ok := args[0].(*sexpCuboid); ok {
			return c.c, nil
		}
		return cuboid.Cuboid{}, fmt.Errorf("expected cuboid, got %T (%s)", args[0], args[0].SexpString(nil))
	}
	return bounds(args)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// recorder collects the commands a script emits.
type recorder struct {
	cmds []command.Command
}

func (r *recorder) emit(flag command.Flag, c cuboid.Cuboid) {
	r.cmds = append(r.cmds, command.Command{Flag: flag, Cuboid: c})
}

// registerBuiltins installs the step builtins into a zygomys environment.
// Emitted commands are appended to rec in evaluation order.
func registerBuiltins(env *zygo.Zlisp, rec *recorder) {

	// -----------------------------------------------------------------------
	// (cuboid x0 x1 y0 y1 z0 z1)
	// -----------------------------------------------------------------------
	env.AddFunction("cuboid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		c, err := bounds(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cuboid: %w", err)
		}
		return &sexpCuboid{c: c}, nil
	})

	// -----------------------------------------------------------------------
	// (on c) or (on x0 x1 y0 y1 z0 z1), and the same for off
	// -----------------------------------------------------------------------
	for _, flag := range []command.Flag{command.On, command.Off} {
		flag := flag
		env.AddFunction(flag.String(), func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			c, err := toCuboid(args)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			rec.emit(flag, c)
			return &sexpCuboid{c: c}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (step "on x=10..12,y=10..12,z=10..12")
	// -----------------------------------------------------------------------
	env.AddFunction("step", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("step requires exactly 1 argument, got %d", len(args))
		}
		line, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("step: %w", err)
		}
		cmd, err := command.ParseLine(line)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("step: %w", err)
		}
		rec.emit(cmd.Flag, cmd.Cuboid)
		return &sexpCuboid{c: cmd.Cuboid}, nil
	})
}
