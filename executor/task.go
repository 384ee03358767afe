package executor

import "time"

// Priority is the total order used to schedule tasks. Higher values run
// first; equal priorities fall back to FIFO order by submission sequence.
type Priority int

const (
	Low Priority = iota
	Normal
	High
	Critical
)

// String renders the priority the way it would appear in a log line.
func (p Priority) String() string {
	switch p {
	case Low:
		return "low"
	case Normal:
		return "normal"
	case High:
		return "high"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// Strategy selects how a submitted task is scheduled.
type Strategy int

const (
	// Immediate places the task directly into a worker queue.
	Immediate Strategy = iota
	// Deferred holds the task in a side queue until ExecuteDeferred or
	// WaitForAll moves it into the immediate queues.
	Deferred
	// Scheduled, passed to Submit, carries no instant and is queued like
	// Immediate. ScheduleAfter and ScheduleAt are the calls that hold a
	// task on the not-before min-heap until its instant arrives, then
	// resubmit it as Immediate.
	Scheduled
)

// task is the internal, queueable unit of work. The generic payload is
// erased behind the run closure, which is built at Submit time and knows
// how to complete the caller's typed ResultHandle.
type task struct {
	priority  Priority
	seq       uint64
	notBefore time.Time // zero value means "no constraint"
	run       func()
	fail      func(error)
}

// less implements the queue ordering contract: priority descending, then
// submission sequence ascending (FIFO within a priority band).
func (t *task) less(other *task) bool {
	if t.priority != other.priority {
		return t.priority > other.priority
	}
	return t.seq < other.seq
}
