// Package executor implements a work-stealing, priority-aware thread pool
// with deferred and scheduled execution strategies.
//
// It generalizes the teacher's batch-oriented workerpool.WorkerPool into a
// long-lived pool: Start spawns workers, Submit/ScheduleAfter/ScheduleAt
// enqueue work at any time, and Stop drains outstanding work and joins the
// workers. The priority queue, work-stealing deque, and worker-loop shape
// all descend from workerpool.go and strategies/priority_based.go.
package executor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	stateStopped int32 = iota
	stateRunning
)

// Executor owns a bounded worker set, the global queue (when work stealing
// is disabled), the deferred queue, and the scheduled-task min-heap.
type Executor struct {
	config Config

	stateMu  sync.Mutex
	runState atomic.Int32
	stopCh   chan struct{}
	wg       sync.WaitGroup

	workersMu sync.RWMutex
	workers   []*worker
	nextID    int

	global *priorityQueue
	wake   chan struct{}

	deferredMu    sync.Mutex
	deferredTasks []*task

	scheduled     *scheduledHeap
	scheduledWake chan struct{}

	seq     atomic.Uint64
	pending atomic.Int64
	active  atomic.Int64

	doneMu   sync.Mutex
	doneCond *sync.Cond
}

// New constructs an Executor with the given configuration but does not
// start it; call Start to spawn workers.
func New(config Config) *Executor {
	config = config.normalize()
	e := &Executor{
		config:    config,
		global:    newPriorityQueue(),
		scheduled: newScheduledHeap(),
	}
	e.doneCond = sync.NewCond(&e.doneMu)
	e.runState.Store(stateStopped)
	return e
}

// Start spawns MinThreads workers and the scheduled-task timer. Calling
// Start on an already-running executor is a no-op.
func (e *Executor) Start() {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if e.runState.Load() == stateRunning {
		return
	}

	e.stopCh = make(chan struct{})
	e.wake = make(chan struct{}, e.config.MaxThreads)
	e.scheduledWake = make(chan struct{}, 1)

	e.workersMu.Lock()
	e.workers = nil
	e.nextID = 0
	for i := 0; i < e.config.MinThreads; i++ {
		e.spawnWorkerLocked()
	}
	e.workersMu.Unlock()

	e.wg.Add(1)
	go e.timerLoop()

	if e.config.StatsInterval > 0 {
		e.wg.Add(1)
		go e.statsLoop()
	}

	e.runState.Store(stateRunning)
	e.config.Logger.Debug("executor started",
		zap.Int("min_threads", e.config.MinThreads),
		zap.Int("max_threads", e.config.MaxThreads),
		zap.Bool("work_stealing", e.config.UseWorkStealing))
}

// spawnWorkerLocked assumes workersMu is held for writing.
func (e *Executor) spawnWorkerLocked() *worker {
	w := newWorker(e.nextID, e.config.UseWorkStealing)
	e.nextID++
	e.workers = append(e.workers, w)
	e.wg.Add(1)
	go e.run(w)
	return w
}

// Stop marks the executor Stopped, wakes every worker, lets in-flight
// tasks finish (no preemption), then drains and fails everything still
// pending with ErrPoolShutdown. Stop is idempotent.
func (e *Executor) Stop() {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if e.runState.Load() == stateStopped {
		return
	}
	e.runState.Store(stateStopped)
	close(e.stopCh)
	e.wg.Wait()

	var drained []*task
	e.workersMu.Lock()
	for _, w := range e.workers {
		if w.deque != nil {
			drained = append(drained, w.deque.drain()...)
		}
	}
	e.workers = nil
	e.workersMu.Unlock()

	drained = append(drained, e.global.drain()...)

	e.deferredMu.Lock()
	drained = append(drained, e.deferredTasks...)
	e.deferredTasks = nil
	e.deferredMu.Unlock()

	drained = append(drained, e.scheduled.drain()...)

	for _, t := range drained {
		e.failTask(t, ErrPoolShutdown)
	}

	e.config.Logger.Debug("executor stopped", zap.Int("tasks_dropped", len(drained)))
}

func (e *Executor) failTask(t *task, err error) {
	e.pending.Dec()
	if t.fail != nil {
		t.fail(err)
	}
	e.checkQuiescent()
}

// Submit enqueues fn for execution under the given strategy and priority,
// returning a ResultHandle that completes exactly once. Submit is a
// package-level generic function (Go methods cannot be generic) operating
// on a concrete *Executor.
func Submit[T any](e *Executor, strategy Strategy, priority Priority, fn func(context.Context) (T, error)) (*ResultHandle[T], error) {
	if fn == nil {
		return nil, ErrEmptyTask
	}
	handle := newResultHandle[T]()
	t := &task{priority: priority, seq: e.seq.Inc()}
	t.run = func() {
		v, err := fn(context.Background())
		handle.complete(v, err)
	}
	t.fail = func(err error) {
		var zero T
		handle.complete(zero, err)
	}

	switch strategy {
	case Deferred:
		if e.runState.Load() != stateRunning {
			return nil, ErrPoolShutdown
		}
		e.pending.Inc()
		e.deferredMu.Lock()
		e.deferredTasks = append(e.deferredTasks, t)
		e.deferredMu.Unlock()
	default:
		// Immediate, and Scheduled-without-a-time (matching the original
		// AsyncExecutor::schedule's SCHEDULED case, which also just runs
		// immediately): both go straight into the immediate queues.
		if err := e.enqueueImmediate(t); err != nil {
			return nil, err
		}
	}
	return handle, nil
}

// ScheduleAfter enqueues fn to run no earlier than delay from now.
func ScheduleAfter[T any](e *Executor, delay time.Duration, priority Priority, fn func(context.Context) (T, error)) (*ResultHandle[T], error) {
	if delay < 0 {
		return nil, ErrInvalidDelay
	}
	return scheduleAt(e, time.Now().Add(delay), priority, fn)
}

// ScheduleAt enqueues fn to run no earlier than the given instant.
func ScheduleAt[T any](e *Executor, at time.Time, priority Priority, fn func(context.Context) (T, error)) (*ResultHandle[T], error) {
	return scheduleAt(e, at, priority, fn)
}

func scheduleAt[T any](e *Executor, at time.Time, priority Priority, fn func(context.Context) (T, error)) (*ResultHandle[T], error) {
	if fn == nil {
		return nil, ErrEmptyTask
	}
	if e.runState.Load() != stateRunning {
		return nil, ErrPoolShutdown
	}

	handle := newResultHandle[T]()
	t := &task{priority: priority, seq: e.seq.Inc(), notBefore: at}
	t.run = func() {
		v, err := fn(context.Background())
		handle.complete(v, err)
	}
	t.fail = func(err error) {
		var zero T
		handle.complete(zero, err)
	}

	e.pending.Inc()
	e.scheduled.push(t)
	select {
	case e.scheduledWake <- struct{}{}:
	default:
	}
	return handle, nil
}

// enqueueImmediate places t on the work-stealing deque of the
// shortest-queued worker (tie-break lowest id) or the global queue, and
// raises a single worker-wakeup signal.
func (e *Executor) enqueueImmediate(t *task) error {
	if e.runState.Load() != stateRunning {
		e.pending.Inc() // counted here so failTask's release leaves pending balanced
		e.failTask(t, ErrPoolShutdown)
		return ErrPoolShutdown
	}
	e.pending.Inc()

	if e.config.UseWorkStealing {
		w := e.pickShortestDeque()
		if w == nil {
			e.global.push(t) // the worker set is empty; global is the fallback
		} else {
			w.deque.push(t)
		}
	} else {
		e.global.push(t)
	}

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return nil
}

func (e *Executor) pickShortestDeque() *worker {
	e.workersMu.RLock()
	defer e.workersMu.RUnlock()

	var best *worker
	bestSize := -1
	for _, w := range e.workers {
		if w.deque == nil {
			continue
		}
		size := w.deque.size()
		if best == nil || size < bestSize || (size == bestSize && w.id < best.id) {
			best = w
			bestSize = size
		}
	}
	return best
}

// ExecuteDeferred moves every accumulated Deferred task into the immediate
// queues.
func (e *Executor) ExecuteDeferred() {
	e.deferredMu.Lock()
	tasks := e.deferredTasks
	e.deferredTasks = nil
	e.deferredMu.Unlock()

	for _, t := range tasks {
		e.pending.Dec() // was counted once at Submit(Deferred); enqueueImmediate re-counts it
		_ = e.enqueueImmediate(t)
	}
}

// WaitForAll flushes deferred tasks, then blocks until pending and active
// both reach zero.
func (e *Executor) WaitForAll() {
	e.ExecuteDeferred()

	e.doneMu.Lock()
	for e.pending.Load() != 0 || e.active.Load() != 0 {
		e.doneCond.Wait()
	}
	e.doneMu.Unlock()
}

func (e *Executor) checkQuiescent() {
	if e.pending.Load() == 0 && e.active.Load() == 0 {
		e.doneMu.Lock()
		e.doneCond.Broadcast()
		e.doneMu.Unlock()
	}
}

// Resize grows or shrinks the live worker set to n. Shrinking requeues any
// tasks held in a departing worker's own deque rather than dropping them.
func (e *Executor) Resize(n int) error {
	if n < 1 {
		return errors.Wrap(ErrInvalidSize, "resize")
	}

	e.workersMu.Lock()
	cur := len(e.workers)
	switch {
	case n > cur:
		for i := cur; i < n; i++ {
			e.spawnWorkerLocked()
		}
		e.workersMu.Unlock()
	case n < cur:
		removed := append([]*worker(nil), e.workers[n:]...)
		e.workers = e.workers[:n]
		e.workersMu.Unlock()
		for _, w := range removed {
			close(w.exitCh)
		}
	default:
		e.workersMu.Unlock()
	}

	if n > e.config.MaxThreads {
		e.config.MaxThreads = n
	}
	return nil
}

// QueueSize returns the number of tasks waiting across all queues
// (per-worker deques, the global queue, the deferred queue, and the
// scheduled heap). It is an
// approximate, point-in-time observer.
func (e *Executor) QueueSize() int {
	total := e.global.size()
	e.workersMu.RLock()
	for _, w := range e.workers {
		if w.deque != nil {
			total += w.deque.size()
		}
	}
	e.workersMu.RUnlock()

	e.deferredMu.Lock()
	total += len(e.deferredTasks)
	e.deferredMu.Unlock()

	total += e.scheduled.size()
	return total
}

// ActiveCount returns the number of tasks currently executing.
func (e *Executor) ActiveCount() int {
	return int(e.active.Load())
}

// ClearQueue drops every pending (not yet running) task, failing each with
// ErrPoolShutdown, and reports how many were removed. Deferred and
// scheduled tasks are untouched; see ExecuteDeferred and the scheduled
// heap, which flush independently.
func (e *Executor) ClearQueue() int {
	var drained []*task
	drained = append(drained, e.global.drain()...)
	e.workersMu.RLock()
	for _, w := range e.workers {
		if w.deque != nil {
			drained = append(drained, w.deque.drain()...)
		}
	}
	e.workersMu.RUnlock()

	for _, t := range drained {
		e.failTask(t, ErrPoolShutdown)
	}
	return len(drained)
}

// timerLoop pops due scheduled tasks and resubmits them as Immediate.
func (e *Executor) timerLoop() {
	defer e.wg.Done()

	for {
		next, ok := e.scheduled.peek()
		var wait time.Duration
		if !ok {
			wait = time.Hour // idle; woken early by scheduledWake on new push
		} else {
			wait = time.Until(next.notBefore)
			if wait < 0 {
				wait = 0
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-e.stopCh:
			timer.Stop()
			return
		case <-e.scheduledWake:
			timer.Stop()
			continue
		case <-timer.C:
			e.fireDueScheduledTasks()
		}
	}
}

func (e *Executor) fireDueScheduledTasks() {
	now := time.Now()
	for {
		next, ok := e.scheduled.peek()
		if !ok || next.notBefore.After(now) {
			return
		}
		t, ok := e.scheduled.pop()
		if !ok {
			return
		}
		e.pending.Dec() // was counted at schedule time; enqueueImmediate re-counts it
		_ = e.enqueueImmediate(t)
	}
}

// statsLoop logs periodic occupancy snapshots when StatsInterval > 0.
func (e *Executor) statsLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.StatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.config.Logger.Debug("executor stats",
				zap.Int("queue_size", e.QueueSize()),
				zap.Int("active_count", e.ActiveCount()))
		}
	}
}
