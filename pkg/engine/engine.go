// Package engine provides the Lisp evaluation engine for kerf.
// It wraps zygomys in a sandboxed environment, exposes the geometry kernel
// as builtins and collects every query the script makes into a Report.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chazu/kerf/pkg/config"
	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/kernel"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/sirupsen/logrus"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter for kerf evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment and a fresh kernel for determinism.
type Engine struct {
	gens generations
	cfg  config.Config
}

// NewEngine creates an Engine whose kernels, sampling defaults and timeout
// come from cfg.
func NewEngine(cfg config.Config) *Engine {
	return &Engine{cfg: cfg}
}

// Timeout is the hard limit for a single evaluation.
func (e *Engine) Timeout() time.Duration {
	if e.cfg.Eval.Timeout > 0 {
		return e.cfg.Eval.Timeout
	}
	return EvalTimeout
}

// Evaluate runs Lisp source and returns the report of its queries.
//
// Return semantics:
//   - On success: returns report + nil errors + nil error
//   - On parse/eval failure: returns nil report + eval errors + nil error
//   - On fatal failure: returns nil + nil + error (ErrTimeout,
//     ErrSuperseded or a recovered panic)
func (e *Engine) Evaluate(source string) (*Report, []EvalError, error) {
	gen := e.gens.next()
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		report, evalErrs, err := e.evaluate(source)
		ch <- outcome{report: report, errors: evalErrs, err: err}
	}()
	return e.gens.await(ch, gen, e.Timeout())
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Report, []EvalError, error) {
	report := newReport()

	// Empty source is a valid program with an empty report.
	if strings.TrimSpace(source) == "" {
		return report, nil, nil
	}

	k := kernel.New(e.cfg)

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, k, e.cfg, report)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	report.Diagnostics = k.Recorder().Diagnostics()
	diag.Logger().WithFields(logrus.Fields{
		"queries":     len(report.Queries),
		"meshes":      len(report.Meshes),
		"diagnostics": len(report.Diagnostics),
	}).Debug("evaluated script")
	return report, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
