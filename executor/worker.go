package executor

import (
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type workerState int32

const (
	workerIdle workerState = iota
	workerRunning
	workerExiting
)

func (s workerState) String() string {
	switch s {
	case workerIdle:
		return "idle"
	case workerRunning:
		return "running"
	case workerExiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// worker owns one goroutine, one optional work-stealing deque, and a
// lifecycle state. The executor exclusively owns its workers; the worker
// only ever reaches back into shared queues it is handed a reference to.
type worker struct {
	id     int
	deque  *workStealingDeque // nil when UseWorkStealing is false
	state  atomic.Int32
	exitCh chan struct{} // closed to request this specific worker stop (Resize shrink)
}

func newWorker(id int, useDeque bool) *worker {
	w := &worker{id: id, exitCh: make(chan struct{})}
	if useDeque {
		w.deque = newWorkStealingDeque(64)
	}
	return w
}

func (w *worker) setState(s workerState) {
	w.state.Store(int32(s))
}

func (w *worker) getState() workerState {
	return workerState(w.state.Load())
}

// run is the worker's main loop (spec.md §4.1 "Scheduling algorithm").
func (e *Executor) run(w *worker) {
	defer e.wg.Done()

	if e.config.PinThreads {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	if e.config.SetPriority {
		// Go exposes no portable thread-niceness syscall; honored only
		// as a logged best-effort hint per spec.md §4.1.
		e.config.Logger.Debug("thread priority hint is not portable, ignoring",
			zap.Int("worker", w.id), zap.Int("requested_priority", e.config.ThreadPriority))
	}

	idleBackoff := backoff.NewExponentialBackOff()
	idleBackoff.InitialInterval = time.Millisecond
	idleBackoff.MaxInterval = 20 * time.Millisecond
	idleBackoff.MaxElapsedTime = 0 // never gives up on its own; only the loop's timeout governs exit

	idleSince := time.Now()
	for {
		select {
		case <-e.stopCh:
			return
		case <-w.exitCh:
			e.requeueAndExit(w)
			return
		default:
		}

		t, ok := e.nextTask(w)
		if ok {
			idleBackoff.Reset()
			w.setState(workerRunning)
			e.runTask(w, t)
			w.setState(workerIdle)
			idleSince = time.Now()
			continue
		}

		w.setState(workerIdle)
		select {
		case <-e.stopCh:
			return
		case <-w.exitCh:
			e.requeueAndExit(w)
			return
		case <-e.wake:
			continue
		case <-time.After(nextBackoff(idleBackoff, e.config.ThreadIdleTimeout)):
			if time.Since(idleSince) >= e.config.ThreadIdleTimeout && e.tryRetireIdle(w) {
				return
			}
		}
	}
}

// nextBackoff caps an exponential backoff step at the configured idle
// timeout, so no single wait between polls is longer than
// ThreadIdleTimeout.
func nextBackoff(b *backoff.ExponentialBackOff, idleTimeout time.Duration) time.Duration {
	d := b.NextBackOff()
	if d <= 0 || d > idleTimeout {
		return idleTimeout
	}
	return d
}

// nextTask pulls the next task for this worker: own deque first, then
// stealing from peers (if enabled), else the global queue.
func (e *Executor) nextTask(w *worker) (*task, bool) {
	if w.deque != nil {
		if t, ok := w.deque.pop(); ok {
			return t, true
		}
		return e.stealFrom(w)
	}
	return e.global.pop()
}

// stealFrom scans peers round-robin starting at (self+1) mod n, stealing
// from the tail (least-recently-pushed) of the first non-empty peer.
func (e *Executor) stealFrom(w *worker) (*task, bool) {
	e.workersMu.RLock()
	peers := e.workers
	e.workersMu.RUnlock()

	n := len(peers)
	if n <= 1 {
		return nil, false
	}
	for i := 1; i < n; i++ {
		victim := peers[(w.id+i)%n]
		if victim.id == w.id || victim.deque == nil {
			continue
		}
		if t, ok := victim.deque.steal(); ok {
			return t, true
		}
	}
	return nil, false
}

// runTask executes a task's closure, bookkeeping active/pending counts and
// never letting a task's panic tear down the worker (spec.md §4.1 failure
// semantics).
func (e *Executor) runTask(w *worker, t *task) {
	e.active.Inc()
	defer func() {
		if r := recover(); r != nil {
			e.config.Logger.Warn("task panicked, recovered",
				zap.Int("worker", w.id), zap.Any("recover", r))
			if t.fail != nil {
				t.fail(panicError{value: r})
			}
		}
		e.active.Dec()
		e.pending.Dec()
		e.checkQuiescent()
	}()
	t.run()
}

// tryRetireIdle exits the worker if the live count exceeds MinThreads;
// otherwise it keeps waiting.
func (e *Executor) tryRetireIdle(w *worker) bool {
	e.workersMu.Lock()
	if len(e.workers) <= e.config.MinThreads {
		e.workersMu.Unlock()
		return false
	}
	idx := -1
	for i, peer := range e.workers {
		if peer.id == w.id {
			idx = i
			break
		}
	}
	if idx == -1 {
		e.workersMu.Unlock()
		return false
	}
	e.workers = append(e.workers[:idx], e.workers[idx+1:]...)
	e.workersMu.Unlock()

	w.setState(workerExiting)
	e.config.Logger.Debug("worker exiting after idle timeout", zap.Int("worker", w.id))
	return true
}

// requeueAndExit drains a worker's own deque back into the pool before
// terminating, so a targeted Resize-shrink never drops work.
func (e *Executor) requeueAndExit(w *worker) {
	w.setState(workerExiting)
	if w.deque == nil {
		return
	}
	for _, t := range w.deque.drain() {
		e.pending.Dec() // was counted when first enqueued; enqueueImmediate re-counts it
		e.enqueueImmediate(t)
	}
}
