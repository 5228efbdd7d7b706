package script

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ebogdum/dualfs/backends"
	"github.com/ebogdum/dualfs/core"
	"github.com/ebogdum/dualfs/fserr"
	"github.com/ebogdum/dualfs/metrics"
)

// DefaultStepTimeout bounds how long a callback step is awaited
const DefaultStepTimeout = 30 * time.Second

// Runner executes scripts sequentially against one dispatcher
type Runner struct {
	dispatcher *core.Dispatcher
	logger     *zap.Logger

	// StepTimeout bounds how long a callback step is awaited
	StepTimeout time.Duration
	// KeepGoing continues after a failed step instead of stopping
	KeepGoing bool
}

// NewRunner creates a runner for d
func NewRunner(d *core.Dispatcher, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		dispatcher:  d,
		logger:      logger,
		StepTimeout: DefaultStepTimeout,
	}
}

// StepResult is the outcome of one step
type StepResult struct {
	Index    int
	Op       string
	Mode     backends.Mode
	Result   any
	Err      error
	Passed   bool
	Reason   string
	Duration time.Duration
}

// Report collects the results of a run
type Report struct {
	Steps  []StepResult
	Failed int
}

// OK reports whether every executed step passed
func (r *Report) OK() bool {
	return r.Failed == 0
}

// Run executes the steps of s in order. A callback step completes before the
// next step starts. The returned error is non-nil only when ctx ends the run.
func (r *Runner) Run(ctx context.Context, s *Script) (*Report, error) {
	report := &Report{}
	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res := r.runStep(ctx, i+1, step)
		report.Steps = append(report.Steps, res)

		if res.Passed {
			r.logger.Info("Script step passed",
				zap.Int("step", res.Index),
				zap.String("operation", res.Op),
				zap.String("mode", res.Mode.String()),
				zap.Duration("duration", res.Duration))
			continue
		}

		report.Failed++
		metrics.ScriptStepFailuresTotal.WithLabelValues(step.Op).Inc()
		r.logger.Warn("Script step failed",
			zap.Int("step", res.Index),
			zap.String("operation", res.Op),
			zap.String("mode", res.Mode.String()),
			zap.String("reason", res.Reason),
			zap.Error(res.Err))
		if !r.KeepGoing {
			break
		}
	}
	return report, nil
}

func (r *Runner) runStep(ctx context.Context, index int, step Step) StepResult {
	mode, err := step.mode()
	res := StepResult{Index: index, Op: step.Op, Mode: mode}
	if err != nil {
		res.Err = err
		res.Reason = err.Error()
		return res
	}

	start := time.Now()
	res.Result, res.Err = r.invoke(ctx, step, mode)
	res.Duration = time.Since(start)
	res.Passed, res.Reason = check(step.Expect, res.Result, res.Err)
	return res
}

// invoke performs the step and, in callback mode, waits for the continuation
func (r *Runner) invoke(ctx context.Context, step Step, mode backends.Mode) (any, error) {
	inv := core.Invocation{Op: step.Op, Args: core.Args(step.Args)}
	if mode == backends.ModeBlocking {
		return r.dispatcher.Call(ctx, inv)
	}

	type outcome struct {
		result any
		err    error
	}
	// buffered: a late continuation after a timeout must not block the backend
	done := make(chan outcome, 1)
	inv.Callback = func(result any, err error) {
		done <- outcome{result, err}
	}
	if _, err := r.dispatcher.Call(ctx, inv); err != nil {
		return nil, err
	}

	timer := time.NewTimer(r.StepTimeout)
	defer timer.Stop()
	select {
	case o := <-done:
		return o.result, o.err
	case <-timer.C:
		return nil, fmt.Errorf("continuation not invoked within %s", r.StepTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// check compares an outcome with the expectation
func check(expect *Expect, result any, err error) (bool, string) {
	if expect == nil || expect.Error == "" {
		if err != nil {
			return false, "unexpected error: " + err.Error()
		}
		if expect != nil && expect.Result != nil {
			if got := Render(result); got != *expect.Result {
				return false, fmt.Sprintf("result %q, expected %q", got, *expect.Result)
			}
		}
		return true, ""
	}

	if err == nil {
		return false, fmt.Sprintf("succeeded, expected %s", expect.Error)
	}
	if got := fserr.KindOf(err).String(); got != expect.Error {
		return false, fmt.Sprintf("failed with %s, expected %s", got, expect.Error)
	}
	return true, ""
}

// Render formats an operation result as text
func Render(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}
