package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chazu/cubeset/pkg/command"
	"github.com/chazu/cubeset/pkg/config"
	"github.com/chazu/cubeset/pkg/engine"
	"github.com/chazu/cubeset/pkg/script"
	"github.com/chazu/cubeset/pkg/volume"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Format names a step source syntax.
type Format string

const (
	FormatText Format = "text"
	FormatLisp Format = "lisp"
)

// FormatFor picks the source format. An explicit value wins; otherwise
// files ending in .lisp are scripts and everything else is step text.
func FormatFor(path, explicit string) (Format, error) {
	switch Format(explicit) {
	case FormatText, FormatLisp:
		return Format(explicit), nil
	case "":
	default:
		return "", fmt.Errorf("unknown format %q (want text or lisp)", explicit)
	}
	if strings.EqualFold(filepath.Ext(path), ".lisp") {
		return FormatLisp, nil
	}
	return FormatText, nil
}

// App runs step sources through the engine and reports volumes.
type App struct {
	cfg    config.Config
	log    logrus.FieldLogger
	script *script.Engine
}

// ErrorData is a JSON-serializable positional error.
type ErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// Result is the outcome of one run.
type Result struct {
	RunID   string       `json:"run_id"`
	Total   int64        `json:"total"`
	Clipped int64        `json:"clipped"`
	Limit   string       `json:"limit"`
	Cuboids int          `json:"cuboids"`
	Stats   engine.Stats `json:"stats"`
	Errors  []ErrorData  `json:"errors"`
}

// OK reports whether the run finished without errors.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// NewApp creates an App. cfg is expected to be validated already.
func NewApp(cfg config.Config, log logrus.FieldLogger) *App {
	return &App{
		cfg:    cfg,
		log:    log,
		script: script.NewEngine(),
	}
}

// Evaluate parses source in the given format, reconciles the commands and
// sums the resulting region.
func (a *App) Evaluate(ctx context.Context, source string, format Format) Result {
	result := Result{
		RunID:  uuid.NewString(),
		Errors: []ErrorData{},
	}
	log := a.log.WithField("run_id", result.RunID)

	limit, err := a.cfg.LimitCuboid()
	if err != nil {
		return result.fail(log, err)
	}
	result.Limit = limit.String()

	// Step 1: turn the source into commands.
	cmds, errs := a.commands(source, format)
	if len(errs) > 0 {
		result.Errors = errs
		log.WithField("errors", len(errs)).Warn("source rejected")
		return result
	}

	// Step 2: reconcile them into a disjoint region.
	opts := []engine.Option{engine.WithLogger(log), engine.WithInvariantChecks(a.cfg.Check)}
	region, err := engine.Run(ctx, a.cfg.Index, cmds, opts...)
	if err != nil {
		return result.fail(log, err)
	}
	result.Cuboids = region.Len()
	result.Stats = region.Stats

	// Step 3: volumes.
	if result.Total, err = volume.Total(region.Cuboids); err != nil {
		return result.fail(log, err)
	}
	if result.Clipped, err = volume.Clipped(region.Cuboids, limit); err != nil {
		return result.fail(log, err)
	}

	log.WithFields(logrus.Fields{
		"commands": len(cmds),
		"cuboids":  result.Cuboids,
		"total":    result.Total,
		"clipped":  result.Clipped,
		"index":    string(a.cfg.Index),
	}).Info("run complete")
	return result
}

func (a *App) commands(source string, format Format) ([]command.Command, []ErrorData) {
	if format == FormatLisp {
		cmds, evalErrs, err := a.script.Evaluate(source)
		if err != nil {
			return nil, []ErrorData{{Message: err.Error()}}
		}
		if len(evalErrs) > 0 {
			out := make([]ErrorData, 0, len(evalErrs))
			for _, e := range evalErrs {
				out = append(out, ErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
			}
			return nil, out
		}
		return cmds, nil
	}

	cmds, err := command.ParseString(source)
	if err != nil {
		var line int
		var pe *command.ParseError
		if errors.As(err, &pe) {
			line = pe.Line
			err = pe.Err
		}
		return nil, []ErrorData{{Line: line, Message: err.Error()}}
	}
	return cmds, nil
}

func (r Result) fail(log logrus.FieldLogger, err error) Result {
	log.WithError(err).Error("run failed")
	r.Errors = append(r.Errors, ErrorData{Message: err.Error()})
	return r
}
