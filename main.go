package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/chazu/cubeset/pkg/config"
	"github.com/chazu/cubeset/pkg/index"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// errRunFailed signals that errors were already printed and only the exit
// status remains.
var errRunFailed = errors.New("run failed")

// cliOptions carries flag values for one invocation.
type cliOptions struct {
	configPath string
	logLevel   string
	logFile    string

	limit  string
	format string
	index  string
	check  bool
	human  bool
	json   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "cubeset:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "cubeset",
		Short: "Exact volume of on/off cuboid reboot steps",
		Long: `cubeset applies a sequence of "on" and "off" steps over axis-aligned
integer cuboids and reports how many lattice points end up on.

Steps are read as text, one per line:
  on x=10..12,y=10..12,z=10..12
  off x=9..11,y=9..11,z=9..11

or as a Lisp script (.lisp) using (cuboid ...), (on ...), (off ...) and
(step "...").`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (.yaml, .yml or .toml)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFile, "log-file", "", "write logs to a rotating file instead of stderr")

	root.AddCommand(newVolumeCmd(opts), newCheckCmd(opts))
	return root
}

func addRunFlags(cmd *cobra.Command, opts *cliOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.limit, "limit", "", "clip cuboid, e.g. x=-50..50,y=-50..50,z=-50..50 (default: initialization area)")
	f.StringVar(&opts.format, "format", "", "source format: text or lisp (default: from file extension)")
	f.StringVar(&opts.index, "index", "", fmt.Sprintf("spatial index backend %v", index.Kinds))
	f.BoolVar(&opts.json, "json", false, "print the result as JSON")
}

func newVolumeCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "volume [file]",
		Short: "Print the total and clipped volume of a step file",
		Long: `Runs every step and prints the total volume of the cubes left on and the
volume inside the clip cuboid. Reads stdin when file is omitted or "-".

Examples:
  cubeset volume examples/reboot.txt
  cubeset volume --human --index rtree examples/reboot.txt
  cubeset volume --limit x=0..10,y=0..10,z=0..10 < steps.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSteps(cmd, opts, args, false)
		},
	}
	addRunFlags(cmd, opts)
	cmd.Flags().BoolVar(&opts.check, "check", false, "verify the region stays disjoint after every step")
	cmd.Flags().BoolVar(&opts.human, "human", false, "print volumes with thousands separators")
	return cmd
}

func newCheckCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Run a step file with disjointness checks and print engine stats",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSteps(cmd, opts, args, true)
		},
	}
	addRunFlags(cmd, opts)
	return cmd
}

// loadConfig merges the config file, if any, with flag overrides.
func loadConfig(cmd *cobra.Command, opts *cliOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return config.Config{}, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("index") {
		cfg.Index = index.Kind(opts.index)
	}
	if flags.Changed("limit") {
		cfg.Limit = opts.limit
	}
	if flags.Changed("check") {
		cfg.Check = opts.check
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFile != "" {
		cfg.Log.Logfile = opts.logFile
	}
	return cfg, cfg.Validate()
}

func readSource(cmd *cobra.Command, args []string) (string, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), "", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", err
	}
	return string(data), args[0], nil
}

func runSteps(cmd *cobra.Command, opts *cliOptions, args []string, checkMode bool) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	if checkMode {
		cfg.Check = true
	}

	logger, closeLog, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	source, path, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	format, err := FormatFor(path, opts.format)
	if err != nil {
		return err
	}

	result := NewApp(cfg, logger).Evaluate(cmd.Context(), source, format)

	out := cmd.OutOrStdout()
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else if result.OK() {
		printResult(out, result, checkMode, opts.human)
	}
	if !result.OK() {
		if !opts.json {
			printErrors(cmd.ErrOrStderr(), path, result.Errors)
		}
		return errRunFailed
	}
	return nil
}

func printResult(w io.Writer, r Result, withStats, human bool) {
	num := func(v int64) string {
		if human {
			return humanize.Comma(v)
		}
		return fmt.Sprint(v)
	}
	fmt.Fprintf(w, "total:   %s\n", num(r.Total))
	fmt.Fprintf(w, "clipped: %s (%s)\n", num(r.Clipped), r.Limit)
	if !withStats {
		return
	}
	st := r.Stats
	fmt.Fprintf(w, "cuboids: %d (peak %d)\n", r.Cuboids, st.PeakCount)
	fmt.Fprintf(w, "steps:   %d (%d on, %d off)\n", st.Commands, st.On, st.Off)
	fmt.Fprintf(w, "churn:   %d inserted, %d removed\n", st.Inserted, st.Removed)
	fmt.Fprintln(w, "region is disjoint")
}

func printErrors(w io.Writer, path string, errs []ErrorData) {
	if path == "" {
		path = "<stdin>"
	}
	for _, e := range errs {
		if e.Line > 0 {
			fmt.Fprintf(w, "%s:%d: %s\n", path, e.Line, e.Message)
		} else {
			fmt.Fprintf(w, "%s: %s\n", path, e.Message)
		}
	}
}
