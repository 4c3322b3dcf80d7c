// Package diag defines the kernel's error taxonomy and the caller-visible
// channel used to report per-element failures from batch queries.
package diag

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors. Every error returned by the kernel matches one of these
// with errors.Is.
var (
	// ErrUnsupported marks an operation that is deliberately not
	// implemented for a geometry kind, e.g. NURBS curve intersection.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrDegenerate marks input that cannot produce a meaningful result:
	// a zero-length tangent, a zero-radius circle, an empty control net.
	ErrDegenerate = errors.New("degenerate input")

	// ErrOutOfRange marks a parameter that could not be recovered by
	// clamping.
	ErrOutOfRange = errors.New("parameter out of range")

	// ErrTolerance marks a caller-supplied tolerance that is not usable.
	ErrTolerance = errors.New("invalid tolerance")

	// ErrInvalid marks structurally malformed input, such as a knot vector
	// whose length does not match its control points.
	ErrInvalid = errors.New("invalid input")
)

// Code classifies a Diagnostic.
type Code string

const (
	CodeUnsupported Code = "UNSUPPORTED"
	CodeDegenerate  Code = "DEGENERATE"
	CodeOutOfRange  Code = "OUT_OF_RANGE"
	CodeTolerance   Code = "TOLERANCE"
	CodeInvalid     Code = "INVALID"
)

// Diagnostic is a query-level error. Index identifies the batch element the
// diagnostic belongs to, or -1 when it applies to the whole query.
type Diagnostic struct {
	Code    Code   `json:"code"`
	Op      string `json:"op"`
	Index   int    `json:"index"`
	Message string `json:"message"`
}

func (d Diagnostic) Error() string {
	context := ""
	if d.Index >= 0 {
		context = fmt.Sprintf(" (element %d)", d.Index)
	}
	if d.Op != "" {
		return fmt.Sprintf("%s: %s: %s%s", d.Code, d.Op, d.Message, context)
	}
	return fmt.Sprintf("%s: %s%s", d.Code, d.Message, context)
}

// Unwrap maps the code back to its sentinel so errors.Is works on
// diagnostics.
func (d Diagnostic) Unwrap() error {
	switch d.Code {
	case CodeUnsupported:
		return ErrUnsupported
	case CodeDegenerate:
		return ErrDegenerate
	case CodeOutOfRange:
		return ErrOutOfRange
	case CodeTolerance:
		return ErrTolerance
	case CodeInvalid:
		return ErrInvalid
	}
	return nil
}

// CodeOf returns the code matching err's sentinel, or CodeInvalid.
func CodeOf(err error) Code {
	switch {
	case errors.Is(err, ErrUnsupported):
		return CodeUnsupported
	case errors.Is(err, ErrDegenerate):
		return CodeDegenerate
	case errors.Is(err, ErrOutOfRange):
		return CodeOutOfRange
	case errors.Is(err, ErrTolerance):
		return CodeTolerance
	}
	return CodeInvalid
}

// Unsupported returns an ErrUnsupported-wrapping error for op.
func Unsupported(op, format string, args ...any) error {
	return Diagnostic{Code: CodeUnsupported, Op: op, Index: -1, Message: fmt.Sprintf(format, args...)}
}

// Degenerate returns an ErrDegenerate-wrapping error for op.
func Degenerate(op, format string, args ...any) error {
	return Diagnostic{Code: CodeDegenerate, Op: op, Index: -1, Message: fmt.Sprintf(format, args...)}
}

// Tolerance returns an ErrTolerance-wrapping error for op.
func Tolerance(op, format string, args ...any) error {
	return Diagnostic{Code: CodeTolerance, Op: op, Index: -1, Message: fmt.Sprintf(format, args...)}
}

// Recorder collects diagnostics from batch operations so one degenerate
// element does not abort the batch. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	diags []Diagnostic
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record stores err against the batch element index. A nil recorder or a
// nil error is a no-op, so callers may pass a nil *Recorder to ignore
// diagnostics.
func (r *Recorder) Record(op string, index int, err error) {
	if r == nil || err == nil {
		return
	}
	var d Diagnostic
	if !errors.As(err, &d) {
		d = Diagnostic{Code: CodeOf(err), Message: err.Error()}
	}
	if d.Op == "" {
		d.Op = op
	}
	d.Index = index

	Logger().WithField("op", d.Op).WithField("index", index).Warn(d.Message)

	r.mu.Lock()
	r.diags = append(r.diags, d)
	r.mu.Unlock()
}

// Diagnostics returns a copy of everything recorded so far.
func (r *Recorder) Diagnostics() []Diagnostic {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.diags))
	copy(out, r.diags)
	return out
}

// Len returns the number of recorded diagnostics.
func (r *Recorder) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.diags)
}

// Err joins all recorded diagnostics, or returns nil when there are none.
func (r *Recorder) Err() error {
	diags := r.Diagnostics()
	if len(diags) == 0 {
		return nil
	}
	errs := make([]error, len(diags))
	for i, d := range diags {
		errs[i] = d
	}
	return errors.Join(errs...)
}

// Reset discards all recorded diagnostics.
func (r *Recorder) Reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.diags = nil
	r.mu.Unlock()
}
