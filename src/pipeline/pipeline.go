// Package pipeline runs the build as an ordered list of classified
// stages. Classification replaces exit-code convention: a fatal stage
// failure stops the run immediately with no partial state promoted, a
// best-effort failure is logged and swallowed. There are no retries;
// re-invocation is the retry mechanism.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sofmeright/slipway/src/logs"
)

// Class classifies how a stage failure propagates.
type Class int

const (
	// Fatal stops the pipeline immediately.
	Fatal Class = iota
	// BestEffort failures are logged and ignored.
	BestEffort
)

func (c Class) String() string {
	if c == BestEffort {
		return "best-effort"
	}
	return "fatal"
}

// Stage is one blocking step of the pipeline.
type Stage struct {
	Name  string
	Class Class
	Run   func(ctx context.Context) error
}

// Result records a completed (or failed, or skipped) stage.
type Result struct {
	Name    string
	Class   Class
	Err     error
	Elapsed time.Duration
}

// Status returns "success", "failed", or "ignored" for display.
func (r Result) Status() string {
	switch {
	case r.Err == nil:
		return "success"
	case r.Class == BestEffort:
		return "ignored"
	default:
		return "failed"
	}
}

// Run executes stages in order. The returned results cover every stage
// that ran. The error is the first fatal failure, wrapped with its stage
// name; best-effort failures never surface as the run error.
func Run(ctx context.Context, stages []Stage) ([]Result, error) {
	results := make([]Result, 0, len(stages))

	for _, st := range stages {
		start := time.Now()
		err := st.Run(ctx)
		res := Result{Name: st.Name, Class: st.Class, Err: err, Elapsed: time.Since(start)}
		results = append(results, res)

		if err == nil {
			continue
		}
		if st.Class == BestEffort {
			logs.Warn("stage failed, continuing", "stage", st.Name, "err", err)
			continue
		}
		return results, fmt.Errorf("%s: %w", st.Name, err)
	}

	return results, nil
}
