package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// EvalTimeout is the limit used when the configuration leaves it unset.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine's timeout.
	ErrTimeout = errors.New("evaluation timed out")

	// ErrSuperseded is returned when a newer Evaluate started while this
	// one was running.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

// outcome carries one evaluation back from its goroutine.
type outcome struct {
	report *Report
	errors []EvalError
	err    error
}

// generations numbers evaluations. Only the latest may report.
type generations struct {
	mu sync.Mutex
	n  uint64
}

func (g *generations) next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.n
}

func (g *generations) current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// await blocks until evaluation gen delivers on ch or timeout passes. A
// timed-out goroutine keeps running; its late outcome is never read.
func (g *generations) await(ch <-chan outcome, gen uint64, timeout time.Duration) (*Report, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		if gen != g.current() {
			return nil, nil, ErrSuperseded
		}
		return out.report, out.errors, out.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}
