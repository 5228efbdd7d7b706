// Package core contains the dual-mode dispatcher: it validates invocations,
// routes them to the blocking or callback branch of a backend and enforces
// the result contract on the way back.
package core

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ebogdum/dualfs/backends"
	"github.com/ebogdum/dualfs/core/log"
	"github.com/ebogdum/dualfs/fserr"
	"github.com/ebogdum/dualfs/metrics"
)

// Dispatcher routes operations to one backend. It holds no per-call state
// and is safe for concurrent use.
type Dispatcher struct {
	backend  backends.Backend
	blocking backends.Blocking
	callback backends.Callback
	name     string
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher for backend
func NewDispatcher(backend backends.Backend, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		backend: backend,
		name:    backend.Name(),
		logger:  logger.With(zap.String("backend", backend.Name())),
	}
	d.blocking, _ = backend.(backends.Blocking)
	d.callback, _ = backend.(backends.Callback)
	return d
}

// Backend returns the backend the dispatcher routes to
func (d *Dispatcher) Backend() backends.Backend {
	return d.backend
}

// Supports reports whether op can be dispatched in mode
func (d *Dispatcher) Supports(op backends.Op, mode backends.Mode) bool {
	return backends.Supports(d.backend, op, mode)
}

// prepare rejects an invocation before any I/O. present holds, in input
// order, whether each required input was supplied.
func (d *Dispatcher) prepare(op backends.Op, mode backends.Mode, present ...bool) error {
	for i, name := range op.Inputs() {
		if i < len(present) && !present[i] {
			return d.reject(op, mode, fserr.Invocation(op.String(), "missing required input %q", name))
		}
	}
	if !d.Supports(op, mode) {
		return d.reject(op, mode, fserr.Capability(op.String(), mode.String(), d.name))
	}
	return nil
}

func (d *Dispatcher) reject(op backends.Op, mode backends.Mode, err *fserr.Error) error {
	metrics.OperationsTotal.WithLabelValues(d.name, op.String(), mode.String(), err.Kind.String()).Inc()
	d.logger.Debug("Invocation rejected",
		zap.String("operation", op.String()),
		zap.String("mode", mode.String()),
		zap.Error(err))
	return err
}

// finish records the outcome of an operation and re-tags errors that a
// backend returned outside the taxonomy.
func (d *Dispatcher) finish(op backends.Op, mode backends.Mode, path string, start time.Time, err error) error {
	if err != nil && fserr.KindOf(err) == fserr.KindUnknown {
		err = fserr.Translate(op.String(), path, err)
	}

	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = fserr.KindOf(err).String()
	}
	duration := time.Since(start)
	metrics.OperationsTotal.WithLabelValues(d.name, op.String(), mode.String(), outcome).Inc()
	metrics.OperationDuration.WithLabelValues(d.name, op.String(), mode.String()).Observe(duration.Seconds())

	d.logger.Debug("Operation completed",
		zap.String("operation", op.String()),
		zap.String("mode", mode.String()),
		zap.String("path", log.SanitizePath(path)),
		zap.String("outcome", outcome),
		zap.Duration("duration", duration))
	return err
}

// deliver wraps a continuation so that it runs at most once, receives a
// zero result alongside any error, and is accounted for in metrics.
func deliver[T any](d *Dispatcher, op backends.Op, path string, done func(T, error)) func(T, error) {
	start := time.Now()
	pending := metrics.PendingCallbacks.WithLabelValues(d.name)
	pending.Inc()

	var fired atomic.Bool
	return func(v T, err error) {
		if !fired.CompareAndSwap(false, true) {
			metrics.ContinuationViolationsTotal.WithLabelValues(d.name, op.String()).Inc()
			d.logger.Warn("Backend invoked continuation more than once",
				zap.String("operation", op.String()),
				zap.String("path", log.SanitizePath(path)))
			return
		}
		pending.Dec()

		if err = d.finish(op, backends.ModeCallback, path, start, err); err != nil {
			var zero T
			done(zero, err)
			return
		}
		done(v, nil)
	}
}

// deliverErr is deliver for operations without a result
func deliverErr(d *Dispatcher, op backends.Op, path string, done func(error)) func(error) {
	wrapped := deliver(d, op, path, func(_ struct{}, err error) { done(err) })
	return func(err error) { wrapped(struct{}{}, err) }
}

// existence normalizes a pathExists outcome: only NotImplemented survives
// as an error, every other failure reads as absent.
func (d *Dispatcher) existence(path string, ok bool, err error) (bool, error) {
	if err == nil {
		return ok, nil
	}
	if fserr.KindOf(err) == fserr.KindNotImplemented {
		return false, err
	}
	d.logger.Debug("Existence check failed, reporting absent",
		zap.String("path", log.SanitizePath(path)),
		zap.Error(err))
	return false, nil
}
