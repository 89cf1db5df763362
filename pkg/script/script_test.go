package script

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chazu/cubeset/pkg/command"
	"github.com/chazu/cubeset/pkg/cuboid"
)

func TestEvaluateEmptyString(t *testing.T) {
	eng := NewEngine()

	for _, src := range []string{"", "   \n\t  \n  "} {
		cmds, evalErrs, err := eng.Evaluate(src)
		if err != nil {
			t.Fatalf("unexpected fatal error: %v", err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("unexpected eval errors: %v", evalErrs)
		}
		if len(cmds) != 0 {
			t.Errorf("expected no commands, got %d", len(cmds))
		}
	}
}

func TestEvaluatePlainExpression(t *testing.T) {
	eng := NewEngine()

	cmds, evalErrs, err := eng.Evaluate("(def x 10)\n(+ x 2)")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if len(cmds) != 0 {
		t.Errorf("expected no commands from plain arithmetic, got %d", len(cmds))
	}
}

func TestEvaluateCommands(t *testing.T) {
	eng := NewEngine()

	source := `
(def a (cuboid 0 9 0 9 0 9))
(on a)
(off 5 14 5 14 5 14)
(on (cuboid 1 2 3 4 5 6))
`
	cmds, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}

	want := []command.Command{
		{Flag: command.On, Cuboid: cuboid.Cuboid{XMin: 0, XMax: 9, YMin: 0, YMax: 9, ZMin: 0, ZMax: 9}},
		{Flag: command.Off, Cuboid: cuboid.Cuboid{XMin: 5, XMax: 14, YMin: 5, YMax: 14, ZMin: 5, ZMax: 14}},
		{Flag: command.On, Cuboid: cuboid.Cuboid{XMin: 1, XMax: 2, YMin: 3, YMax: 4, ZMin: 5, ZMax: 6}},
	}
	if len(cmds) != len(want) {
		t.Fatalf("expected %d commands, got %d: %v", len(want), len(cmds), cmds)
	}
	for i := range want {
		if cmds[i] != want[i] {
			t.Errorf("command %d = %s, want %s", i, cmds[i], want[i])
		}
	}
}

func TestEvaluateComputedBounds(t *testing.T) {
	eng := NewEngine()

	source := `
(def lower (- 0 50))
(def upper (+ lower 100))
(on lower upper lower upper lower upper)
`
	cmds, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	want := cuboid.Cuboid{XMin: -50, XMax: 50, YMin: -50, YMax: 50, ZMin: -50, ZMax: 50}
	if cmds[0].Cuboid != want {
		t.Errorf("cuboid = %s, want %s", cmds[0].Cuboid, want)
	}
}

func TestEvaluateStep(t *testing.T) {
	eng := NewEngine()

	cmds, evalErrs, err := eng.Evaluate(`(step "off x=-48..-32,y=26..41,z=-47..-37")`)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if len(cmds) != 1 || cmds[0].String() != "off x=-48..-32,y=26..41,z=-47..-37" {
		t.Errorf("unexpected commands: %v", cmds)
	}
}

func TestEvaluateBuiltinErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantMsg string
	}{
		{"inverted bounds", "(cuboid 3 2 0 0 0 0)", "invalid cuboid"},
		{"too few bounds", "(on 1 2 3)", "expected 6 bounds"},
		{"float bound", "(off 1.5 2 0 0 0 0)", "expected integer"},
		{"not a cuboid", `(on "x")`, "expected cuboid"},
		{"bad step", `(step "on x=1..2")`, "syntax error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := NewEngine()
			cmds, evalErrs, err := eng.Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if cmds != nil {
				t.Errorf("expected nil commands on error, got %v", cmds)
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected at least one eval error")
			}
			if !strings.Contains(evalErrs[0].Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", evalErrs[0].Message, tt.wantMsg)
			}
		})
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine()

	cmds, evalErrs, err := eng.Evaluate("(on 1 2 3 4 5 6)\n(on 1 2")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if cmds != nil {
		t.Fatal("expected nil commands on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := NewEngine()

	cmds, evalErrs, err := eng.Evaluate("(on undefined_cuboid)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if cmds != nil {
		t.Fatal("expected nil commands on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

// TestScriptMatchesText checks that the Lisp fixture emits exactly the
// commands of its text counterpart.
func TestScriptMatchesText(t *testing.T) {
	src, err := os.ReadFile("../../examples/small.lisp")
	if err != nil {
		t.Fatal(err)
	}
	text, err := os.Open("../../examples/small.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer text.Close()

	want, err := command.Parse(text)
	if err != nil {
		t.Fatal(err)
	}

	got, evalErrs, err := NewEngine().Evaluate(string(src))
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if len(got) != len(want) {
		t.Fatalf("script emitted %d commands, text has %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine()

	for i := 0; i < 5; i++ {
		cmds, evalErrs, err := eng.Evaluate("(on 0 1 0 1 0 1)")
		if err != nil {
			t.Fatalf("iteration %d: unexpected fatal error: %v", i, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("iteration %d: unexpected eval errors: %v", i, evalErrs)
		}
		if len(cmds) != 1 {
			t.Errorf("iteration %d: expected 1 command, got %d", i, len(cmds))
		}
	}
}

func TestPreprocessComments(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"single semicolon", "; simple comment", "// simple comment"},
		{"double semicolon", ";; header", "// header"},
		{"trailing comment", "(on a) ; turn on", "(on a) // turn on"},
		{"semicolon in string", `(step "on x=1..2;")`, `(step "on x=1..2;")`},
		{"escaped quote in string", `"a\";b" ; c`, `"a\";b" // c`},
		{"no comment", "(+ 1 2)", "(+ 1 2)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	if s := e.Error(); !strings.Contains(s, "line 5") || !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain line and message, got: %s", s)
	}

	e2 := EvalError{Message: "no location"}
	if s := e2.Error(); strings.Contains(s, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s)
	}
}

func TestEvaluateTimeout(t *testing.T) {
	// waitWithTimeout is exercised directly with a channel that never sends,
	// since a script that loops forever would also pin a goroutine.
	var mu sync.Mutex
	var gen uint64 = 1
	ch := make(chan evalResult)

	done := make(chan struct{})
	var resultErr error
	go func() {
		defer close(done)
		_, _, resultErr = waitWithTimeout(ch, 1, &mu, &gen)
	}()

	select {
	case <-done:
		if resultErr == nil {
			t.Fatal("expected timeout error, got nil")
		}
		if !strings.Contains(resultErr.Error(), "timed out") {
			t.Errorf("expected timeout error message, got: %v", resultErr)
		}
	case <-time.After(EvalTimeout + 2*time.Second):
		t.Fatal("test itself timed out waiting for evaluation timeout")
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2)

	ch := make(chan evalResult, 1)
	ch <- evalResult{}

	_, _, err := waitWithTimeout(ch, 1, &mu, &gen)
	if err == nil {
		t.Fatal("expected error for stale generation")
	}
	if !strings.Contains(err.Error(), "superseded") {
		t.Errorf("expected superseded error, got: %v", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line format", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line info", "some generic error", 0, "some generic error"},
		{"line format lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short line format", "line 3: bad bound", 3, "bad bound"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

type errString string

func (e errString) Error() string { return string(e) }
