package executor

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Executor operations. Callers should compare
// with errors.Is since wrapped variants (via github.com/pkg/errors) may
// carry additional context.
var (
	// ErrEmptyTask is returned by Submit when the supplied callable is nil.
	ErrEmptyTask = errors.New("executor: empty task")

	// ErrPoolShutdown is returned when a task cannot run because the
	// executor has been stopped, either at submit time or because the
	// task was still pending when Stop drained the queues.
	ErrPoolShutdown = errors.New("executor: pool is shut down")

	// ErrInvalidSize is returned by Resize when asked to size the pool to
	// zero workers.
	ErrInvalidSize = errors.New("executor: invalid pool size")

	// ErrInvalidDelay is returned by ScheduleAfter when given a negative
	// delay.
	ErrInvalidDelay = errors.New("executor: invalid delay")
)

// panicError wraps a recovered panic value so it can travel through a
// ResultHandle's error field without tearing down the worker that ran it.
type panicError struct {
	value any
}

func (p panicError) Error() string {
	return fmt.Sprintf("executor: task panicked: %v", p.value)
}

