package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVolumeCommand(t *testing.T) {
	out, _, err := execute(t, "", "volume", "examples/reboot.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "total:   2758514936282235\n")
	assert.Contains(t, out, "clipped: 474140 (x=-50..50,y=-50..50,z=-50..50)\n")
}

func TestVolumeCommandHumanRTree(t *testing.T) {
	out, _, err := execute(t, "", "volume", "--human", "--index", "rtree", "examples/reboot.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "total:   2,758,514,936,282,235\n")
	assert.Contains(t, out, "clipped: 474,140 ")
}

func TestVolumeCommandStdin(t *testing.T) {
	steps := "on x=0..1,y=0..1,z=0..1\noff x=0..0,y=0..0,z=0..0\n"
	for _, args := range [][]string{{"volume"}, {"volume", "-"}} {
		out, _, err := execute(t, steps, args...)
		require.NoError(t, err)
		assert.Contains(t, out, "total:   7\n")
	}
}

func TestVolumeCommandLispAndLimit(t *testing.T) {
	out, _, err := execute(t, "", "volume", "--limit", "x=11..13,y=11..13,z=11..13", "examples/small.lisp")
	require.NoError(t, err)
	assert.Contains(t, out, "total:   39\n")
	// The 11..13 cube is on, minus the 11..11 corner point.
	assert.Contains(t, out, "clipped: 26 (x=11..13,y=11..13,z=11..13)\n")
}

func TestVolumeCommandForcedFormat(t *testing.T) {
	_, errOut, err := execute(t, "(on 0 1 0 1 0 1)", "volume", "--format", "text")
	require.Error(t, err)
	assert.Contains(t, errOut, "<stdin>:1:")

	out, _, err := execute(t, "(on 0 1 0 1 0 1)", "volume", "--format", "lisp")
	require.NoError(t, err)
	assert.Contains(t, out, "total:   8\n")
}

func TestVolumeCommandJSON(t *testing.T) {
	out, _, err := execute(t, "", "volume", "--json", "examples/small.txt")
	require.NoError(t, err)

	var result Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, int64(39), result.Total)
	assert.Equal(t, 4, result.Stats.Commands)
	assert.Empty(t, result.Errors)
}

func TestCheckCommand(t *testing.T) {
	out, _, err := execute(t, "", "check", "examples/small.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "total:   39\n")
	assert.Contains(t, out, "steps:   4 (3 on, 1 off)\n")
	assert.Contains(t, out, "region is disjoint\n")
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing file", []string{"volume", "examples/nope.txt"}},
		{"too many args", []string{"volume", "a", "b"}},
		{"unknown index", []string{"volume", "--index", "kd", "examples/small.txt"}},
		{"bad limit", []string{"volume", "--limit", "x=1..0,y=0..0,z=0..0", "examples/small.txt"}},
		{"bad format", []string{"volume", "--format", "csv", "examples/small.txt"}},
		{"bad log level", []string{"volume", "--log-level", "loud", "examples/small.txt"}},
		{"missing config", []string{"volume", "--config", "nope.yaml", "examples/small.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestParseErrorReported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte("on x=0..1,y=0..1,z=0..1\n\nflip x=0..1,y=0..1,z=0..1\n"), 0o644))

	_, errOut, err := execute(t, "", "volume", path)
	assert.ErrorIs(t, err, errRunFailed)
	assert.Contains(t, errOut, path+":3: syntax error")
}

func TestConfigFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cubeset.yaml")
	logPath := filepath.Join(dir, "cubeset.log")
	cfg := "index: rtree\nlimit: x=10..10,y=10..10,z=10..10\nlog:\n  level: debug\n  logfile: " + logPath + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	out, errOut, err := execute(t, "", "volume", "--config", cfgPath, "examples/small.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "clipped: 1 (x=10..10,y=10..10,z=10..10)\n")
	assert.Empty(t, errOut, "logs go to the configured file")

	logs, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logs), "applied step")
	assert.Contains(t, string(logs), "run complete")

	// --limit beats the file.
	out, _, err = execute(t, "", "volume", "--config", cfgPath, "--limit", "x=-50..50,y=-50..50,z=-50..50", "examples/small.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "clipped: 39 ")
}
